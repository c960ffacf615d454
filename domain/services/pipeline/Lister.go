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
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/domain/ports/out"
	"s3-event-bridge/logging"
)

// Lister collects every object under the unit prefix, following continuation tokens.
type Lister struct {
	store  out.ObjectStoreReader
	logger logging.Logger
}

func NewLister(store out.ObjectStoreReader, logger logging.Logger) *Lister {
	return &Lister{store: store, logger: logger}
}

func (l *Lister) Run(ctx context.Context, run *Run) (entities.JobStatus, error) {
	l.logger.Infow("Listing input objects", "run_id", run.ID, "bucket", run.Batch.Bucket, "prefix", run.Batch.Prefix)

	objects := make([]entities.ObjectRecord, 0)
	var token *string

	for {
		page, err := l.store.List(ctx, run.Batch.Bucket, run.Batch.Prefix, token)
		if err != nil {
			return entities.NextJob, errors.Wrapf(err, "failed to list objects under %s", run.Batch)
		}

		objects = append(objects, page.Objects...)

		if page.NextToken == nil || *page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	run.Objects = objects
	l.logger.Infow("Listed input objects", "run_id", run.ID, "total", len(objects))

	return entities.NextJob, nil
}
