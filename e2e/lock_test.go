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
	"time"

	"github.com/go-redis/redis/v9"

	adaptersout "s3-event-bridge/adapters/out"
	"s3-event-bridge/logging"
)

func (suite *E2E) TestLockOutlivesItsTTLWhileHeld() {
	ctx := context.Background()
	ttl := 2 * time.Second
	locker := adaptersout.NewRedisLocker(mockCache, "", false, ttl, logging.NewDiscardLog())
	defer locker.Close()

	client := redis.NewClient(&redis.Options{Addr: mockCache})
	defer client.Close()

	key := "s3://data/2026/"
	suite.Require().NoError(locker.Lock(ctx, key))

	time.Sleep(3 * ttl)

	remaining, err := client.PTTL(ctx, "s3-event-bridge:lock:"+key).Result()
	suite.Require().NoError(err)
	suite.Greater(remaining, time.Duration(0))

	suite.Require().NoError(locker.Unlock(ctx, key))

	exists, err := client.Exists(ctx, "s3-event-bridge:lock:"+key).Result()
	suite.Require().NoError(err)
	suite.Equal(int64(0), exists)
}
