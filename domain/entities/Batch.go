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

import "fmt"

// Batch is a unit of work: pull everything under Prefix in Bucket, run the handler, push back
// the changes. Notifications mapping to the same pair collapse into one Batch.
type Batch struct {
	Bucket string
	Prefix string
}

func (b Batch) String() string {
	return fmt.Sprintf("s3://%s/%s", b.Bucket, b.Prefix)
}

// Less orders batches by bucket and then by prefix.
func (b Batch) Less(other Batch) bool {
	if b.Bucket != other.Bucket {
		return b.Bucket < other.Bucket
	}

	return b.Prefix < other.Prefix
}
