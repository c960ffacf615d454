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
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/domain/ports/out"
)

// Run carries the state of one unit of work through the jobs of the pipeline.
type Run struct {
	ID           string
	Batch        entities.Batch
	TargetBucket string
	Workspace    out.Workspace
	Objects      []entities.ObjectRecord
	Snapshot     entities.Snapshot
	Changed      []string
	Outcome      entities.Outcome
}
