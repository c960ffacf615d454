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
	"fmt"
	"github.com/spf13/afero"
	"os"
	"s3-event-bridge/domain/ports/out"
	"sync"
)

type WorkspaceFactory struct {
	base       afero.Fs
	parentDir  string
	workspaces map[string]out.Workspace
	lock       sync.RWMutex
}

// NewWorkspaceFactory creates workspaces under parentDir, or the system temporary directory when
// it's empty.
func NewWorkspaceFactory(base afero.Fs, parentDir string) *WorkspaceFactory {
	if parentDir == "" {
		parentDir = os.TempDir()
	}

	return &WorkspaceFactory{base: base, parentDir: parentDir, workspaces: make(map[string]out.Workspace)}
}

func (f *WorkspaceFactory) NewWorkspace() (out.Workspace, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	workspace, err := NewLocalWorkspace(f.base, f.parentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory. %w", err)
	}

	f.workspaces[workspace.GetID()] = workspace

	return workspace, nil
}

func (f *WorkspaceFactory) DestroyWorkspace(workspaceID string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	workspace, ok := f.workspaces[workspaceID]
	if !ok {
		return fmt.Errorf("workspace not found")
	}

	delete(f.workspaces, workspaceID)

	return workspace.Destroy()
}

// Active is the number of workspaces not destroyed yet.
func (f *WorkspaceFactory) Active() int {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return len(f.workspaces)
}
