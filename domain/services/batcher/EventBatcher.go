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

package batcher

import (
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/domain/services/matcher"
	"s3-event-bridge/logging"
	"sort"
	"strings"
)

const keySeparator = "/"

// EventBatcher groups notifications into units of work sharing a bucket and a key prefix.
type EventBatcher struct {
	matchKey       *matcher.Matcher
	pullParentDirs int
	logger         logging.Logger
}

func NewEventBatcher(matchKey *matcher.Matcher, pullParentDirs int, logger logging.Logger) *EventBatcher {
	return &EventBatcher{matchKey: matchKey, pullParentDirs: pullParentDirs, logger: logger}
}

// Batch never fails. Malformed or unmatched notifications are logged and skipped, and the
// result is deduplicated and sorted by bucket and prefix.
func (b *EventBatcher) Batch(notifications []entities.Notification) []entities.Batch {
	unique := make(map[entities.Batch]struct{})

	for _, notification := range notifications {
		if notification.Key == "" {
			b.logger.Infow("Skipped event record without an object key", "bucket", notification.Bucket)
			continue
		}

		if notification.Bucket == "" {
			b.logger.Infow("Skipped event record without a bucket name", "key", notification.Key)
			continue
		}

		if !b.matchKey.Match(notification.Key) {
			b.logger.Infow("Skipped event record with a key that doesn't match the configured pattern",
				"bucket", notification.Bucket, "key", notification.Key, "pattern", b.matchKey.String())
			continue
		}

		unique[entities.Batch{Bucket: notification.Bucket, Prefix: Prefix(notification.Key, b.pullParentDirs)}] = struct{}{}
	}

	batches := make([]entities.Batch, 0, len(unique))
	for batch := range unique {
		batches = append(batches, batch)
	}

	sort.Slice(batches, func(i, j int) bool { return batches[i].Less(batches[j]) })

	return batches
}

// Prefix drops the last depth+1 components of key. A negative depth, or one reaching past the
// first component, yields the empty prefix. A non-empty prefix always ends with a slash.
func Prefix(key string, depth int) string {
	if depth < 0 {
		return ""
	}

	parts := strings.Split(key, keySeparator)
	drop := depth + 1
	if drop >= len(parts) {
		return ""
	}

	prefix := strings.Join(parts[:len(parts)-drop], keySeparator)
	if prefix == "" {
		return ""
	}

	return prefix + keySeparator
}
