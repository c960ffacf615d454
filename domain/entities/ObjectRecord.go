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

import "time"

type Owner struct {
	DisplayName *string `json:"DisplayName,omitempty"`
	ID          *string `json:"ID,omitempty"`
}

// ObjectRecord describes a listed object. It is also the document handed to the execution
// filter, so the JSON names follow the storage listing API.
type ObjectRecord struct {
	ChecksumAlgorithm []string   `json:"ChecksumAlgorithm,omitempty"`
	ETag              *string    `json:"ETag,omitempty"`
	Key               *string    `json:"Key,omitempty"`
	LastModified      *time.Time `json:"LastModified,omitempty"`
	Owner             *Owner     `json:"Owner,omitempty"`
	Size              int64      `json:"Size"`
	StorageClass      *string    `json:"StorageClass,omitempty"`
}

// GetKey returns the object key or an empty string when the listing omitted it.
func (o ObjectRecord) GetKey() string {
	if o.Key == nil {
		return ""
	}

	return *o.Key
}

// ObjectPage is a single page of a listing. NextToken is nil on the last page.
type ObjectPage struct {
	Objects   []ObjectRecord
	NextToken *string
}
