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
	"encoding/json"
	"fmt"
	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/multierr"
	adapterentities "s3-event-bridge/adapters/entities"
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/domain/services/batcher"
	"s3-event-bridge/domain/services/pipeline"
	"s3-event-bridge/logging"
)

const sqsEventSource = "aws:sqs"

type LambdaController struct {
	batcher   *batcher.EventBatcher
	processor pipeline.UnitProcessor
	logger    logging.Logger
}

func NewLambdaController(eventBatcher *batcher.EventBatcher, processor pipeline.UnitProcessor, logger logging.Logger) *LambdaController {
	return &LambdaController{batcher: eventBatcher, processor: processor, logger: logger}
}

// Handle accepts either an SQS event whose bodies are bucket notifications or a bucket
// notification invoked directly. Every unit of work is attempted and an error is returned when
// any of them failed, so the platform retries the invocation.
func (l *LambdaController) Handle(ctx context.Context, payload json.RawMessage) error {
	notifications, err := l.notifications(payload)
	if err != nil {
		return err
	}

	var handlingErr error
	for _, batch := range l.batcher.Batch(notifications) {
		if _, err := l.processor.Process(ctx, batch); err != nil {
			handlingErr = multierr.Append(handlingErr, fmt.Errorf("failed to handle batch of records %s. %w", batch, err))
		}
	}

	return handlingErr
}

func (l *LambdaController) notifications(payload json.RawMessage) ([]entities.Notification, error) {
	var probe struct {
		Records []struct {
			EventSource string `json:"eventSource"`
		} `json:"Records"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event. %w", err)
	}

	if len(probe.Records) == 0 || probe.Records[0].EventSource != sqsEventSource {
		var event events.S3Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal S3 event. %w", err)
		}

		return adapterentities.FromS3Event(event), nil
	}

	var event events.SQSEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal SQS event. %w", err)
	}

	var notifications []entities.Notification
	for _, message := range event.Records {
		parsed, err := adapterentities.ParseNotifications(message.Body)
		if err != nil {
			l.logger.Warnw("Couldn't parse the body of queue message", "message_id", message.MessageId, "error", err)
			continue
		}

		notifications = append(notifications, parsed...)
	}

	return notifications, nil
}
