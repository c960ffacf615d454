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

package entities

import (
	"encoding/json"
	"fmt"
	"github.com/aws/aws-lambda-go/events"
	"net/url"
	"s3-event-bridge/domain/entities"
)

// SNSEnvelope is the body SQS receives when the bucket notifies through an SNS topic.
type SNSEnvelope struct {
	Type     string `json:"Type"`
	TopicArn string `json:"TopicArn"`
	Message  string `json:"Message"`
}

type rawNotification struct {
	Records *[]events.S3EventRecord `json:"Records"`
	Message *string                 `json:"Message"`
}

// ParseNotifications extracts the notifications of a queue message body. Bodies are either an S3
// event or an SNS envelope whose message is an S3 event.
func ParseNotifications(body string) ([]entities.Notification, error) {
	var raw rawNotification
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message. %w", err)
	}

	if raw.Records == nil && raw.Message != nil {
		var event events.S3Event
		if err := json.Unmarshal([]byte(*raw.Message), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal SNS message. %w", err)
		}

		return FromS3Event(event), nil
	}

	if raw.Records == nil {
		return nil, fmt.Errorf("message is not an S3 event")
	}

	return FromS3Event(events.S3Event{Records: *raw.Records}), nil
}

// FromS3Event converts every record of the event. Keys arrive URL encoded and are decoded here.
func FromS3Event(event events.S3Event) []entities.Notification {
	notifications := make([]entities.Notification, 0, len(event.Records))
	for _, record := range event.Records {
		notifications = append(notifications, entities.Notification{
			Bucket: record.S3.Bucket.Name,
			Key:    DecodeKey(record.S3.Object.Key),
		})
	}

	return notifications
}

// DecodeKey undoes the form encoding S3 applies to keys in notifications. Keys that aren't
// valid encodings are kept as they are.
func DecodeKey(key string) string {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}

	return decoded
}
