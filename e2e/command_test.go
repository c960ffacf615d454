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

	"s3-event-bridge/app"
)

func (suite *E2E) TestCommandMode() {
	ctx := context.Background()
	suite.uploadFile(ctx, "2025/b.csv", "b.csv")

	suite.setEnvironmentVariable("BUCKET", sourceBucket)
	suite.setEnvironmentVariable("KEY_PREFIX", "2025/")

	suite.Require().NoError(app.RunCommand(ctx))

	count, ok := suite.readResult(ctx, "2025/b.csv.count")
	suite.Require().True(ok)
	suite.Equal("2\n", count)
}

func (suite *E2E) TestCommandModeRequiresBucket() {
	suite.setEnvironmentVariable("BUCKET", "")
	suite.setEnvironmentVariable("KEY_PREFIX", "2025/")

	suite.Error(app.RunCommand(context.Background()))
}
