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

package in

import (
	"context"
	"fmt"
	"os"
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/domain/services/pipeline"
	"s3-event-bridge/logging"
)

// CommandController runs a single unit of work whose bucket and prefix come from the
// environment, using the same variable names the handler receives.
type CommandController struct {
	processor    pipeline.UnitProcessor
	bucketVar    string
	keyPrefixVar string
	lookupEnv    func(string) (string, bool)
	logger       logging.Logger
}

func NewCommandController(processor pipeline.UnitProcessor, bucketVar, keyPrefixVar string, logger logging.Logger) *CommandController {
	return &CommandController{
		processor:    processor,
		bucketVar:    bucketVar,
		keyPrefixVar: keyPrefixVar,
		lookupEnv:    os.LookupEnv,
		logger:       logger,
	}
}

func (c *CommandController) Run(ctx context.Context) (entities.Outcome, error) {
	bucket, ok := c.lookupEnv(c.bucketVar)
	if !ok || bucket == "" {
		return "", fmt.Errorf("%s is required", c.bucketVar)
	}

	prefix, ok := c.lookupEnv(c.keyPrefixVar)
	if !ok {
		return "", fmt.Errorf("%s is required", c.keyPrefixVar)
	}

	batch := entities.Batch{Bucket: bucket, Prefix: prefix}
	c.logger.Infow("Running single unit of work", "bucket", bucket, "prefix", prefix)

	outcome, err := c.processor.Process(ctx, batch)
	if err != nil {
		return "", fmt.Errorf("failed to handle batch of records %s. %w", batch, err)
	}

	return outcome, nil
}
