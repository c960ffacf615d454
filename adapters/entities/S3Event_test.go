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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"s3-event-bridge/domain/entities"
	"testing"
)

const s3Event = `{"Records":[
	{"eventSource":"aws:s3","eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"data"},"object":{"key":"2024/a.csv","size":3}}},
	{"eventSource":"aws:s3","eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"data"},"object":{"key":"2024/my+report%281%29.csv","size":3}}}
]}`

func TestParseNotifications(t *testing.T) {
	expected := []entities.Notification{
		{Bucket: "data", Key: "2024/a.csv"},
		{Bucket: "data", Key: "2024/my report(1).csv"},
	}

	t.Run("raw S3 event", func(t *testing.T) {
		notifications, err := ParseNotifications(s3Event)
		require.NoError(t, err)
		assert.Equal(t, expected, notifications)
	})

	t.Run("SNS envelope", func(t *testing.T) {
		body := `{"Type":"Notification","TopicArn":"arn:aws:sns:us-east-1:000000000000:uploads","Message":` + quote(s3Event) + `}`

		notifications, err := ParseNotifications(body)
		require.NoError(t, err)
		assert.Equal(t, expected, notifications)
	})

	t.Run("record without key", func(t *testing.T) {
		notifications, err := ParseNotifications(`{"Records":[{"s3":{"bucket":{"name":"data"},"object":{}}}]}`)
		require.NoError(t, err)
		assert.Equal(t, []entities.Notification{{Bucket: "data"}}, notifications)
	})

	t.Run("no records", func(t *testing.T) {
		notifications, err := ParseNotifications(`{"Records":[]}`)
		require.NoError(t, err)
		assert.Empty(t, notifications)
	})
}

func TestParseNotificationsInvalid(t *testing.T) {
	bodies := []string{
		"not json",
		`{"Service":"Amazon S3","Event":"s3:TestEvent"}`,
		`{"Message":"not json"}`,
		`{"Records":"nope"}`,
	}

	for _, body := range bodies {
		_, err := ParseNotifications(body)
		assert.Error(t, err, body)
	}
}

func TestDecodeKey(t *testing.T) {
	assert.Equal(t, "a b/c.txt", DecodeKey("a+b/c.txt"))
	assert.Equal(t, "a%zz", DecodeKey("a%zz"))
	assert.Equal(t, "plain/key", DecodeKey("plain/key"))
}

func quote(s string) string {
	quoted, _ := json.Marshal(s)
	return string(quoted)
}
