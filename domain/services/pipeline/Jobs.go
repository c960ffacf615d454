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
	"github.com/uber-go/tally/v4"
	"s3-event-bridge/domain/ports/out"
	"s3-event-bridge/domain/services/filter"
	"s3-event-bridge/domain/services/matcher"
	"s3-event-bridge/logging"
)

// DefaultJobs is the bridge pipeline: list, filter, download, snapshot, execute, then upload
// the differences.
func DefaultJobs(store out.ObjectStore, executionFilter *filter.ExecutionFilter, pullMatchers matcher.Set, handler Command, metricsScope tally.Scope, logger logging.Logger) []Job {
	return []Job{
		NewLister(store, logger),
		NewGate(executionFilter, logger),
		NewDownloader(store, pullMatchers, metricsScope, logger),
		NewSnapshotter(logger),
		NewExecutor(handler, logger),
		NewUploader(store, metricsScope, logger),
	}
}
