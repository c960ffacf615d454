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

package pipeline

import (
	"context"
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/domain/services/command"
	"s3-event-bridge/logging"
)

type Command interface {
	Run(ctx context.Context, rootFolder, bucket, prefix string) (command.Status, error)
}

// Executor runs the handler over the workspace. An unsuccessful exit ends the run without
// uploading anything.
type Executor struct {
	command Command
	logger  logging.Logger
}

func NewExecutor(handler Command, logger logging.Logger) *Executor {
	return &Executor{command: handler, logger: logger}
}

func (e *Executor) Run(ctx context.Context, run *Run) (entities.JobStatus, error) {
	status, err := e.command.Run(ctx, run.Workspace.Path(), run.Batch.Bucket, run.Batch.Prefix)
	if err != nil {
		return entities.NextJob, err
	}

	if !status.Success {
		e.logger.Warnw("Handler command was not successful", "run_id", run.ID, "exit_code", status.ExitCode)
		run.Outcome = entities.Declined
		return entities.Complete, nil
	}

	return entities.NextJob, nil
}
