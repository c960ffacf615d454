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

package out

import (
	"context"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/pkg/awsutils"
)

type SQSQueue struct {
	svc               awsutils.SQS
	queueURL          string
	maxMessages       int64
	visibilityTimeout int64
	waitTime          int64
}

func NewSQSQueue(awsSession *session.Session, awsConfig *aws.Config, queueURL string, maxMessages, visibilityTimeout, waitTime int64) *SQSQueue {
	svc := awsutils.SQS{}
	svc.Init(awsSession, awsConfig)

	if maxMessages < 1 || maxMessages > awsutils.MaxMessagesToFetch {
		maxMessages = awsutils.MaxMessagesToFetch
	}

	return &SQSQueue{
		svc:               svc,
		queueURL:          queueURL,
		maxMessages:       maxMessages,
		visibilityTimeout: visibilityTimeout,
		waitTime:          waitTime,
	}
}

func (q *SQSQueue) Receive(ctx context.Context) ([]entities.QueueMessage, error) {
	messages, err := q.svc.ReceiveMessages(ctx, q.queueURL, q.maxMessages, q.visibilityTimeout, q.waitTime)
	if err != nil {
		return nil, err
	}

	received := make([]entities.QueueMessage, 0, len(messages))
	for _, message := range messages {
		received = append(received, entities.QueueMessage{
			ID:            aws.StringValue(message.MessageId),
			ReceiptHandle: aws.StringValue(message.ReceiptHandle),
			Body:          aws.StringValue(message.Body),
		})
	}

	return received, nil
}

// DeleteBatch returns how many entries the queue rejected. The batch API takes at most ten
// entries per call, so larger slices are split.
func (q *SQSQueue) DeleteBatch(ctx context.Context, messages []entities.QueueMessage) (int, error) {
	failed := 0

	for start := 0; start < len(messages); start += awsutils.MaxMessagesToFetch {
		end := start + awsutils.MaxMessagesToFetch
		if end > len(messages) {
			end = len(messages)
		}

		chunk := make([]*sqs.Message, 0, end-start)
		for _, message := range messages[start:end] {
			chunk = append(chunk, &sqs.Message{ReceiptHandle: aws.String(message.ReceiptHandle)})
		}

		output, err := q.svc.DeleteMessages(ctx, q.queueURL, chunk)
		if err != nil {
			return failed, err
		}

		failed += len(output.Failed)
	}

	return failed, nil
}

func (q *SQSQueue) Ping(ctx context.Context) error {
	_, err := q.svc.QueueAttributes(ctx, q.queueURL)
	return err
}
