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

package command

import (
	"bytes"
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"s3-event-bridge/logging"
	"testing"
)

var defaultVars = EnvVars{RootFolder: "ROOT_FOLDER", Bucket: "BUCKET", KeyPrefix: "KEY_PREFIX"}

func TestArgv(t *testing.T) {
	type test struct {
		commandLine string
		fallback    []string
		expected    []string
		fails       bool
	}

	tests := []test{
		{commandLine: "python3 handler.py --flag", expected: []string{"python3", "handler.py", "--flag"}},
		{commandLine: `sh -c 'echo "a b" > out'`, expected: []string{"sh", "-c", `echo "a b" > out`}},
		{commandLine: "", fallback: []string{"./run.sh", "x"}, expected: []string{"./run.sh", "x"}},
		{commandLine: "   ", fallback: []string{"./run.sh"}, expected: []string{"./run.sh"}},
		{commandLine: "", fallback: nil, fails: true},
	}

	for _, tc := range tests {
		argv, err := Argv(tc.commandLine, tc.fallback)
		if tc.fails {
			assert.Error(t, err)
			continue
		}

		require.NoError(t, err)
		assert.Equal(t, tc.expected, argv)
	}
}

func TestNewHandlerCommandRequiresProgram(t *testing.T) {
	_, err := NewHandlerCommand(nil, defaultVars, logging.NewDiscardLog())
	assert.Error(t, err)
}

func TestRunPassesEnvironment(t *testing.T) {
	dir := t.TempDir()
	cmd, err := NewHandlerCommand([]string{"sh", "-c", `printf "%s|%s" "$BUCKET" "$KEY_PREFIX" > "$ROOT_FOLDER/env.txt"`}, defaultVars, logging.NewDiscardLog())
	require.NoError(t, err)

	status, err := cmd.Run(context.Background(), dir, "data", "2024/")

	require.NoError(t, err)
	assert.True(t, status.Success)
	content, err := os.ReadFile(filepath.Join(dir, "env.txt"))
	require.NoError(t, err)
	assert.Equal(t, "data|2024/", string(content))
}

func TestRunUsesConfiguredVariableNames(t *testing.T) {
	dir := t.TempDir()
	vars := EnvVars{RootFolder: "WORKDIR", Bucket: "SRC_BUCKET", KeyPrefix: "SRC_PREFIX"}
	cmd, err := NewHandlerCommand([]string{"sh", "-c", `test -d "$WORKDIR" && test "$SRC_BUCKET" = data && test "$SRC_PREFIX" = p/`}, vars, logging.NewDiscardLog())
	require.NoError(t, err)

	status, err := cmd.Run(context.Background(), dir, "data", "p/")

	require.NoError(t, err)
	assert.True(t, status.Success)
}

func TestRunReportsUnsuccessfulExit(t *testing.T) {
	cmd, err := NewHandlerCommand([]string{"sh", "-c", "echo failing >&2; exit 3"}, defaultVars, logging.NewDiscardLog())
	require.NoError(t, err)
	stderr := &bytes.Buffer{}
	cmd.stderr = stderr

	status, err := cmd.Run(context.Background(), t.TempDir(), "data", "")

	require.NoError(t, err)
	assert.False(t, status.Success)
	assert.Equal(t, 3, status.ExitCode)
	assert.Equal(t, "failing\n", stderr.String())
}

func TestRunMissingProgramIsAnError(t *testing.T) {
	cmd, err := NewHandlerCommand([]string{"/definitely/not/a/program"}, defaultVars, logging.NewDiscardLog())
	require.NoError(t, err)

	_, err = cmd.Run(context.Background(), t.TempDir(), "data", "")
	assert.Error(t, err)
}
