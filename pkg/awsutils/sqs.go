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

package awsutils

import (
	"context"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"strconv"
)

const (
	MaxMessagesToFetch = 10
	PollWaitTime       = 20
)

type SQS struct {
	svc *sqs.SQS
}

func (s *SQS) Init(awsSession *session.Session, awsConfig *aws.Config) {
	s.svc = sqs.New(awsSession, awsConfig)
}

func (s *SQS) ReceiveMessages(ctx context.Context, queueURL string, maxMessages, visibilityTimeout, waitTime int64) ([]*sqs.Message, error) {
	result, err := s.svc.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
		AttributeNames: []*string{
			aws.String(sqs.MessageSystemAttributeNameSentTimestamp),
		},
		QueueUrl:            &queueURL,
		MaxNumberOfMessages: aws.Int64(maxMessages),
		VisibilityTimeout:   aws.Int64(visibilityTimeout),
		WaitTimeSeconds:     aws.Int64(waitTime),
	})

	if err != nil {
		return nil, err
	}

	if len(result.Messages) == 0 {
		return nil, nil
	}

	return result.Messages, nil
}

// DeleteMessages removes up to ten messages in one request. Entries are identified by their
// position in messages.
func (s *SQS) DeleteMessages(ctx context.Context, queueURL string, messages []*sqs.Message) (*sqs.DeleteMessageBatchOutput, error) {
	entries := make([]*sqs.DeleteMessageBatchRequestEntry, 0, len(messages))
	for i, message := range messages {
		entries = append(entries, &sqs.DeleteMessageBatchRequestEntry{
			Id:            aws.String(strconv.Itoa(i)),
			ReceiptHandle: message.ReceiptHandle,
		})
	}

	return s.svc.DeleteMessageBatchWithContext(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: &queueURL,
		Entries:  entries,
	})
}

func (s *SQS) QueueAttributes(ctx context.Context, queueURL string) (map[string]*string, error) {
	result, err := s.svc.GetQueueAttributesWithContext(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       &queueURL,
		AttributeNames: []*string{aws.String(sqs.QueueAttributeNameApproximateNumberOfMessages)},
	})
	if err != nil {
		return nil, err
	}

	return result.Attributes, nil
}
