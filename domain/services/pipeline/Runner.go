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
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uber-go/tally/v4"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"reflect"
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/domain/ports/out"
	"s3-event-bridge/logging"
	"s3-event-bridge/metrics"
	"strings"
)

//go:generate go run -mod=mod github.com/golang/mock/mockgen -destination=../../../mocks/mock_unit_processor.go -package=mocks s3-event-bridge/domain/services/pipeline UnitProcessor

// UnitProcessor runs the whole pipeline for a single unit of work.
type UnitProcessor interface {
	Process(ctx context.Context, batch entities.Batch) (entities.Outcome, error)
}

type Job interface {
	Run(ctx context.Context, run *Run) (entities.JobStatus, error)
}

type Runner struct {
	jobs             []Job
	workspaceFactory out.WorkspaceFactory
	locker           out.Locker
	targetBucket     string
	metricsScope     tally.Scope
	logger           logging.Logger
}

// NewRunner builds a runner executing the jobs in order. The locker is optional. An empty
// targetBucket uploads back to the bucket the unit came from.
func NewRunner(jobs []Job, workspaceFactory out.WorkspaceFactory, locker out.Locker, targetBucket string, metricsScope tally.Scope, logger logging.Logger) *Runner {
	return &Runner{
		jobs:             jobs,
		workspaceFactory: workspaceFactory,
		locker:           locker,
		targetBucket:     targetBucket,
		metricsScope:     metricsScope,
		logger:           logger,
	}
}

func (r *Runner) Process(ctx context.Context, batch entities.Batch) (outcome entities.Outcome, err error) {
	span, ctx := tracer.StartSpanFromContext(ctx, "bridge.unit", tracer.ResourceName(batch.String()))
	defer func() { span.Finish(tracer.WithError(err)) }()

	stopwatch := r.metricsScope.Timer(metrics.UnitDuration).Start()
	defer stopwatch.Stop()

	run := &Run{
		ID:           uuid.NewString(),
		Batch:        batch,
		TargetBucket: r.targetBucket,
	}
	if run.TargetBucket == "" {
		run.TargetBucket = batch.Bucket
	}

	r.logger.Infow("Processing unit of work", "run_id", run.ID, "bucket", batch.Bucket, "prefix", batch.Prefix, "target_bucket", run.TargetBucket)

	outcome, err = r.process(ctx, run)
	if err != nil {
		r.metricsScope.Counter(metrics.UnitsFailed).Inc(1)
		r.logger.Errorw("Unit of work failed", "run_id", run.ID, "bucket", batch.Bucket, "prefix", batch.Prefix, "error", err)
		return "", errors.Wrapf(err, "failed to process %s", batch)
	}

	switch outcome {
	case entities.Filtered:
		r.metricsScope.Counter(metrics.UnitsFiltered).Inc(1)
	case entities.Declined:
		r.metricsScope.Counter(metrics.UnitsDeclined).Inc(1)
	}
	r.metricsScope.Counter(metrics.UnitsCompleted).Inc(1)
	r.logger.Infow("Unit of work completed", "run_id", run.ID, "bucket", batch.Bucket, "prefix", batch.Prefix, "outcome", outcome)

	return outcome, nil
}

func (r *Runner) process(ctx context.Context, run *Run) (entities.Outcome, error) {
	if r.locker != nil {
		lockKey := run.Batch.String()
		if err := r.locker.Lock(ctx, lockKey); err != nil {
			return "", errors.Wrapf(err, "failed to lock %s", lockKey)
		}

		defer func() {
			if err := r.locker.Unlock(context.Background(), lockKey); err != nil {
				r.logger.Warnw("Failed to release lock", "run_id", run.ID, "key", lockKey, "error", err)
			}
		}()
	}

	workspace, err := r.workspaceFactory.NewWorkspace()
	if err != nil {
		return "", errors.Wrap(err, "failed to create workspace")
	}
	run.Workspace = workspace
	r.logger.Infow("Created workspace to hold input and output files", "run_id", run.ID, "path", workspace.Path())

	defer func() {
		if err := r.workspaceFactory.DestroyWorkspace(workspace.GetID()); err != nil {
			r.logger.Warnw("Failed to destroy workspace", "run_id", run.ID, "path", workspace.Path(), "error", err)
		}
	}()

	run.Outcome = entities.Uploaded

	for _, job := range r.jobs {
		r.logger.Debugw("Running job", "run_id", run.ID, "job", jobName(job))

		jobSpan, jobCtx := tracer.StartSpanFromContext(ctx, "bridge.phase", tracer.ResourceName(jobName(job)))
		status, err := job.Run(jobCtx, run)
		jobSpan.Finish(tracer.WithError(err))
		if err != nil {
			return "", err
		}

		if status == entities.Complete {
			break
		}
	}

	return run.Outcome, nil
}

func (r *Runner) Name() string {
	var jobs []string
	for _, job := range r.jobs {
		jobs = append(jobs, jobName(job))
	}

	return "Pipeline with jobs: " + strings.Join(jobs, ", ")
}

func jobName(job Job) string {
	kind := reflect.TypeOf(job)
	if kind.Kind() == reflect.Pointer {
		kind = kind.Elem()
	}

	return kind.Name()
}
