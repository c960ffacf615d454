//go:build e2e

/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package e2e

import (
	"context"
	"net/http"
	"time"

	"s3-event-bridge/app"
)

func (suite *E2E) TestQueueBridge() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.StartConsumer(ctx) }()

	suite.Require().Eventually(func() bool {
		resp, err := http.Get("http://localhost:3000/healthcheck/readiness")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 1*time.Minute, 1*time.Second)

	suite.uploadFile(ctx, "2024/a.csv", "a.csv")
	suite.uploadFile(ctx, "2024/b.csv", "b.csv")

	expected := map[string]string{
		"2024/a.csv.count": "4\n",
		"2024/b.csv.count": "2\n",
	}
	for key, want := range expected {
		suite.Require().Eventually(func() bool {
			count, ok := suite.readResult(ctx, key)
			return ok && count == want
		}, 2*time.Minute, 2*time.Second, key)
	}

	cancel()
	select {
	case err := <-done:
		suite.NoError(err)
	case <-time.After(time.Minute):
		suite.Fail("consumer did not stop")
	}
}
