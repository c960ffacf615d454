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
	"s3-event-bridge/domain/services/snapshot"
	"s3-event-bridge/logging"
)

// Snapshotter records the downloaded content before the handler runs. When results go to a
// different bucket every file the handler leaves behind must be uploaded, so the snapshot is
// empty.
type Snapshotter struct {
	logger logging.Logger
}

func NewSnapshotter(logger logging.Logger) *Snapshotter {
	return &Snapshotter{logger: logger}
}

func (s *Snapshotter) Run(_ context.Context, run *Run) (entities.JobStatus, error) {
	if run.TargetBucket != run.Batch.Bucket {
		run.Snapshot = entities.EmptySnapshot()
		return entities.NextJob, nil
	}

	signatures, err := snapshot.Compute(run.Workspace, "/")
	if err != nil {
		return entities.NextJob, err
	}

	run.Snapshot = signatures
	s.logger.Debugw("Computed workspace snapshot", "run_id", run.ID, "files", len(signatures))

	return entities.NextJob, nil
}
