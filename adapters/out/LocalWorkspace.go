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

package out

import (
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"os"
	"path/filepath"
)

const defaultDirPermission = 0755

// LocalWorkspace is a directory on the local disk exclusively owned by one unit of work. Every
// path is resolved inside that directory, so the pipeline can't write outside of it.
type LocalWorkspace struct {
	workspaceID string
	dir         string
	base        afero.Fs
	afero.Fs
}

func NewLocalWorkspace(base afero.Fs, parentDir string) (*LocalWorkspace, error) {
	workspaceID := uuid.New().String()
	dir := filepath.Join(parentDir, "s3-event-bridge-"+workspaceID)

	if err := base.MkdirAll(dir, defaultDirPermission); err != nil {
		return nil, err
	}

	return &LocalWorkspace{workspaceID: workspaceID, dir: dir, base: base, Fs: afero.NewBasePathFs(base, dir)}, nil
}

func (w *LocalWorkspace) Create(path string) (afero.File, error) {
	if err := w.MkdirAll(filepath.Dir(path), defaultDirPermission); err != nil {
		return nil, err
	}

	return w.Fs.Create(path)
}

func (w *LocalWorkspace) GetID() string {
	return w.workspaceID
}

// Path is the directory on the underlying filesystem. It's what external programs are given.
func (w *LocalWorkspace) Path() string {
	return w.dir
}

func (w *LocalWorkspace) Destroy() error {
	if err := w.base.RemoveAll(w.dir); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
