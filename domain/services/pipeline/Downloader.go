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
	"path"
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/domain/ports/out"
	"s3-event-bridge/domain/services/matcher"
	"s3-event-bridge/logging"
	"s3-event-bridge/metrics"
	"strings"
)

// Downloader pulls the listed objects matching any pull pattern into the workspace. Local paths
// are the keys with the unit prefix removed.
type Downloader struct {
	store        out.ObjectStoreReader
	pullMatchers matcher.Set
	metricsScope tally.Scope
	logger       logging.Logger
}

func NewDownloader(store out.ObjectStoreReader, pullMatchers matcher.Set, metricsScope tally.Scope, logger logging.Logger) *Downloader {
	return &Downloader{store: store, pullMatchers: pullMatchers, metricsScope: metricsScope, logger: logger}
}

func (d *Downloader) Run(ctx context.Context, run *Run) (entities.JobStatus, error) {
	group, groupCtx := errgroup.WithContext(ctx)

	for _, object := range run.Objects {
		key := object.GetKey()
		if key == "" || !d.pullMatchers.Match(key) {
			continue
		}

		if strings.HasSuffix(key, "/") {
			d.logger.Debugw("Skipping folder placeholder", "run_id", run.ID, "key", key)
			continue
		}

		group.Go(func() error {
			if err := d.download(groupCtx, run, key); err != nil {
				return errors.Wrapf(err, "failed to download object %s from bucket %s", key, run.Batch.Bucket)
			}

			d.metricsScope.Counter(metrics.ObjectsDownloaded).Inc(1)
			d.logger.Infow("Downloaded", "run_id", run.ID, "key", key)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return entities.NextJob, err
	}

	return entities.NextJob, nil
}

func (d *Downloader) download(ctx context.Context, run *Run, key string) error {
	name := LocalName(key, run.Batch.Prefix)

	if err := run.Workspace.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}

	file, err := run.Workspace.Create(name)
	if err != nil {
		return err
	}
	defer file.Close()

	return d.store.Get(ctx, run.Batch.Bucket, key, file)
}

// LocalName is the workspace path of an object. Keys outside prefix are kept as they are.
func LocalName(key, prefix string) string {
	return "/" + strings.TrimPrefix(key, prefix)
}
