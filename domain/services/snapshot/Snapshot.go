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

package snapshot

import (
	"fmt"
	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
	"io"
	"os"
	"path/filepath"
	"s3-event-bridge/domain/entities"
)

// Compute hashes every regular file under root. Symbolic links, devices, sockets and pipes are
// skipped and links are never followed. Directories produce no entries.
func Compute(fs afero.Fs, root string) (entities.Snapshot, error) {
	snapshot := entities.EmptySnapshot()

	err := walkFiles(fs, root, func(path, relative string) error {
		hash, err := HashFile(fs, path)
		if err != nil {
			return err
		}

		snapshot[relative] = hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute snapshot of %s. %w", root, err)
	}

	return snapshot, nil
}

// Diff walks the current tree under root and returns the paths of files that are new or whose
// content changed with respect to prior. Files removed since prior was taken are not reported.
func Diff(fs afero.Fs, root string, prior entities.Snapshot) ([]string, error) {
	differences := make([]string, 0)

	err := walkFiles(fs, root, func(path, relative string) error {
		hash, err := HashFile(fs, path)
		if err != nil {
			return err
		}

		if previous, ok := prior[relative]; !ok || previous != hash {
			differences = append(differences, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute differences in %s. %w", root, err)
	}

	return differences, nil
}

func HashFile(fs afero.Fs, path string) (string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	digest := xxhash.New()
	if _, err = io.Copy(digest, file); err != nil {
		return "", err
	}

	return fmt.Sprintf("%016x", digest.Sum64()), nil
}

// Relative returns path relative to root using forward slashes.
func Relative(root, path string) (string, error) {
	relative, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relative), nil
}

func walkFiles(fs afero.Fs, root string, visit func(path, relative string) error) error {
	return afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		relative, err := Relative(root, path)
		if err != nil {
			return err
		}

		return visit(path, relative)
	})
}
