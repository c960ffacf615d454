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

package common

import (
	"context"
	"log"
	"os"
	"path"
	"runtime"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const testdataDir = "e2e/testdata/"

// ChangePathForTesting moves the working directory to the repository root.
func ChangePathForTesting(t *testing.T) {
	t.Helper()

	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("could not get caller")
	}

	dir := path.Join(path.Dir(filename), "..")
	err := os.Chdir(dir)

	if err != nil {
		panic(err)
	}
}

func LoadFile(t *testing.T, filename string) []byte {
	ChangePathForTesting(t)
	src, err := os.ReadFile(testdataDir + filename)
	if err != nil {
		panic(err)
	}

	return src
}

func RedirectContainerOutput(ctx context.Context, pool *dockertest.Pool, containerID string) {
	err := pool.Client.Logs(docker.LogsOptions{
		Context:      ctx,
		Container:    containerID,
		OutputStream: os.Stdout,
		Follow:       true,
		Stdout:       true,
		Stderr:       true,
		RawTerminal:  true,
		Timestamps:   true,
	})
	if err != nil {
		log.Println(err)
	}
}
