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
	"s3-event-bridge/domain/services/filter"
	"s3-event-bridge/logging"
)

// Gate stops the run before anything is transferred when the execution filter returns false
// over the listed objects.
type Gate struct {
	filter *filter.ExecutionFilter
	logger logging.Logger
}

func NewGate(executionFilter *filter.ExecutionFilter, logger logging.Logger) *Gate {
	return &Gate{filter: executionFilter, logger: logger}
}

func (g *Gate) Run(ctx context.Context, run *Run) (entities.JobStatus, error) {
	if g.filter == nil {
		return entities.NextJob, nil
	}

	rejects, err := g.filter.Rejects(ctx, run.Objects)
	if err != nil {
		return entities.NextJob, err
	}

	if rejects {
		g.logger.Infow("Execution filter returned false. Stopping before download", "run_id", run.ID, "total", len(run.Objects))
		run.Outcome = entities.Filtered
		return entities.Complete, nil
	}

	g.logger.Infow("Execution filter didn't return false. Proceeding to download", "run_id", run.ID)
	return entities.NextJob, nil
}
