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
	adapterentities "s3-event-bridge/adapters/entities"
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/domain/ports/out"
	"s3-event-bridge/domain/services/batcher"
	"s3-event-bridge/domain/services/pipeline"
	"s3-event-bridge/logging"
	"s3-event-bridge/metrics"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uber-go/tally/v4"
	"go.uber.org/multierr"
)

const (
	baseLapseTime = 300 * time.Millisecond
	backoffBase   = 2
	maxSleep      = 20 * time.Minute
)

// QueueController drains a queue of bucket notifications. Messages are only deleted after
// every unit of work derived from them succeeded, so failures are redelivered once the
// visibility timeout expires.
type QueueController struct {
	queue        out.Queue
	batcher      *batcher.EventBatcher
	processor    pipeline.UnitProcessor
	backOff      *backoff.ExponentialBackOff
	logger       logging.Logger
	metricsScope tally.Scope
}

func NewQueueController(queue out.Queue, eventBatcher *batcher.EventBatcher, processor pipeline.UnitProcessor, metricsScope tally.Scope, logger logging.Logger) *QueueController {
	backOff := backoff.NewExponentialBackOff()
	backOff.InitialInterval = baseLapseTime
	backOff.Multiplier = backoffBase
	backOff.MaxInterval = maxSleep
	backOff.RandomizationFactor = 0
	backOff.MaxElapsedTime = 0
	backOff.Reset()

	return &QueueController{
		queue:        queue,
		batcher:      eventBatcher,
		processor:    processor,
		backOff:      backOff,
		logger:       logger,
		metricsScope: metricsScope,
	}
}

// Consume runs ticks until ctx is done. A tick in progress is allowed to finish, its units of
// work don't observe the cancellation.
func (q *QueueController) Consume(ctx context.Context) {
	q.logger.Infow("Start of queue processing")

	for {
		select {
		case <-ctx.Done():
			q.logger.Infow("End of queue processing")
			return
		default:
			q.wait(ctx, q.Tick(ctx))
		}
	}
}

// Tick performs one receive, process and delete cycle and returns how long to wait before the
// next one.
func (q *QueueController) Tick(ctx context.Context) time.Duration {
	messages, err := q.queue.Receive(ctx)
	if err != nil {
		q.metricsScope.Counter(metrics.PollErrors).Inc(1)
		q.logger.Warnw("Error while consuming messages from queue", "error", err)
		return q.fail()
	}

	if len(messages) == 0 {
		return q.pass()
	}

	q.metricsScope.Counter(metrics.MessagesReceived).Inc(int64(len(messages)))
	work := detach(ctx)

	var handlingErr error
	for _, batch := range q.batcher.Batch(q.notifications(messages)) {
		if _, err := q.processor.Process(work, batch); err != nil {
			handlingErr = multierr.Append(handlingErr, err)
		}
	}

	if handlingErr != nil {
		q.logger.Warnw("Error encountered while handling events. Messages won't be deleted", "failures", len(multierr.Errors(handlingErr)), "error", handlingErr)
		return q.pass()
	}

	q.logger.Infow("Deleting queue messages", "total", len(messages))

	failed, err := q.queue.DeleteBatch(work, messages)
	if err != nil {
		q.logger.Warnw("Couldn't delete queue messages", "error", err)
		return q.fail()
	}

	if failed > 0 {
		q.logger.Warnw("Couldn't delete some queue messages", "failed", failed, "total", len(messages))
	}
	q.metricsScope.Counter(metrics.MessagesDeleted).Inc(int64(len(messages) - failed))

	return q.pass()
}

// notifications drops bodies that can't be parsed. Their messages are still deleted along with
// the rest, since there is no unit of work to retry for them.
func (q *QueueController) notifications(messages []entities.QueueMessage) []entities.Notification {
	var notifications []entities.Notification

	for _, message := range messages {
		parsed, err := adapterentities.ParseNotifications(message.Body)
		if err != nil {
			q.metricsScope.Counter(metrics.MessagesInvalid).Inc(1)
			q.logger.Warnw("Couldn't parse the body of queue message", "message_id", message.ID, "error", err)
			continue
		}

		notifications = append(notifications, parsed...)
	}

	return notifications
}

func (q *QueueController) pass() time.Duration {
	q.backOff.Reset()
	return baseLapseTime
}

func (q *QueueController) fail() time.Duration {
	return q.backOff.NextBackOff()
}

func (q *QueueController) wait(ctx context.Context, delay time.Duration) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// detachedContext keeps the values of its parent but is never canceled.
type detachedContext struct {
	parent context.Context
}

func detach(ctx context.Context) context.Context {
	return detachedContext{parent: ctx}
}

func (detachedContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (detachedContext) Done() <-chan struct{}       { return nil }
func (detachedContext) Err() error                  { return nil }
func (d detachedContext) Value(key any) any         { return d.parent.Value(key) }
