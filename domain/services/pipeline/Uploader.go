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
	"github.com/pkg/errors"
	"github.com/uber-go/tally/v4"
	"golang.org/x/sync/errgroup"
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/domain/ports/out"
	"s3-event-bridge/domain/services/snapshot"
	"s3-event-bridge/fileutils"
	"s3-event-bridge/logging"
	"s3-event-bridge/metrics"
)

// Uploader pushes every file that is new or changed since the snapshot to the target bucket,
// under the unit prefix.
type Uploader struct {
	store        out.ObjectStoreWriter
	metricsScope tally.Scope
	logger       logging.Logger
}

func NewUploader(store out.ObjectStoreWriter, metricsScope tally.Scope, logger logging.Logger) *Uploader {
	return &Uploader{store: store, metricsScope: metricsScope, logger: logger}
}

func (u *Uploader) Run(ctx context.Context, run *Run) (entities.JobStatus, error) {
	differences, err := snapshot.Diff(run.Workspace, "/", run.Snapshot)
	if err != nil {
		return entities.NextJob, err
	}
	run.Changed = differences

	u.logger.Infow("Uploading files with found differences", "run_id", run.ID, "total", len(differences))

	group, groupCtx := errgroup.WithContext(ctx)

	for _, localPath := range differences {
		relative, err := snapshot.Relative("/", localPath)
		if err != nil {
			return entities.NextJob, errors.Wrapf(err, "failed to convert local file path %s to bucket path", localPath)
		}

		localPath := localPath
		key := run.Batch.Prefix + relative

		group.Go(func() error {
			u.logger.Infow("Uploading file", "run_id", run.ID, "key", key)

			if err := u.upload(groupCtx, run, localPath, key); err != nil {
				return errors.Wrapf(err, "failed to upload file to %s", key)
			}

			u.metricsScope.Counter(metrics.ObjectsUploaded).Inc(1)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return entities.NextJob, err
	}

	return entities.NextJob, nil
}

func (u *Uploader) upload(ctx context.Context, run *Run, localPath, key string) error {
	file, err := run.Workspace.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	contentType, err := fileutils.ContentType(file, localPath)
	if err != nil {
		return err
	}

	return u.store.Put(ctx, run.TargetBucket, key, file, contentType)
}
