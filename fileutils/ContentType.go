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

package fileutils

import (
	"io"
	"mime"
	"path"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

const defaultContentType = "application/octet-stream"

// Sniffed types that say nothing beyond text versus binary.
//
//nolint:gochecknoglobals
var genericContentTypes = map[string]bool{
	defaultContentType: true,
	"text/plain":       true,
}

//nolint:gochecknoglobals
var once sync.Once

func prefix(magic []byte) func([]byte, uint32) bool {
	return func(raw []byte, limit uint32) bool {
		if limit < uint32(len(magic)) || len(raw) < len(magic) {
			return false
		}

		return string(raw[:len(magic)]) == string(magic)
	}
}

func registerAdditionalTypes() {
	mimetype.Extend(prefix([]byte("PAR1")), "application/vnd.apache.parquet", ".parquet")
	mimetype.Extend(prefix([]byte{0x04, 0x22, 0x4D, 0x18}), "application/x-lz4", ".lz4")
}

// ContentType sniffs the content of file. When all the content tells is text or binary, a known
// extension of name wins. file is rewound before returning.
func ContentType(file io.ReadSeeker, name string) (string, error) {
	once.Do(registerAdditionalTypes)

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}

	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	sniffed, _, err := mime.ParseMediaType(detected.String())
	if err != nil || !genericContentTypes[sniffed] {
		return detected.String(), nil
	}

	if byExtension := mime.TypeByExtension(path.Ext(name)); byExtension != "" {
		return byExtension, nil
	}

	return detected.String(), nil
}
