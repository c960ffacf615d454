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

// Snapshot maps a path relative to a working directory to the hash of the file content.
type Snapshot map[string]string

func EmptySnapshot() Snapshot {
	return Snapshot{}
}

func (s Snapshot) Equal(other Snapshot) bool {
	if len(s) != len(other) {
		return false
	}

	for path, hash := range s {
		if otherHash, ok := other[path]; !ok || otherHash != hash {
			return false
		}
	}

	return true
}
