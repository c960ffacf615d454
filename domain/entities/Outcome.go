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

// Outcome tells how a unit of work completed. Failures are reported as errors instead.
type Outcome string

const (
	// Uploaded means the handler ran and its changes, possibly none, were pushed back.
	Uploaded Outcome = "uploaded"

	// Filtered means the execution filter returned false and nothing was downloaded.
	Filtered Outcome = "filtered"

	// Declined means the handler exited unsuccessfully and nothing was uploaded.
	Declined Outcome = "declined"
)
