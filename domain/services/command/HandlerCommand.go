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
	"context"
	"errors"
	"fmt"
	"github.com/google/shlex"
	"io"
	"os"
	"os/exec"
	"s3-event-bridge/logging"
)

// EnvVars names the variables carrying the working directory, bucket and key prefix to the handler.
type EnvVars struct {
	RootFolder string
	Bucket     string
	KeyPrefix  string
}

// Status is the way the handler process ended.
type Status struct {
	ExitCode int
	Success  bool
}

type HandlerCommand struct {
	program string
	args    []string
	vars    EnvVars
	stdout  io.Writer
	stderr  io.Writer
	logger  logging.Logger
}

// Argv tokenizes commandLine like a POSIX shell would. An empty command line falls back to
// the given arguments, usually the ones the bridge itself was started with.
func Argv(commandLine string, fallback []string) ([]string, error) {
	argv, err := shlex.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize handler command %q. %w", commandLine, err)
	}

	if len(argv) == 0 {
		argv = fallback
	}

	if len(argv) == 0 {
		return nil, fmt.Errorf("empty handler command")
	}

	return argv, nil
}

func NewHandlerCommand(argv []string, vars EnvVars, logger logging.Logger) (*HandlerCommand, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("empty handler command")
	}

	return &HandlerCommand{
		program: argv[0],
		args:    argv[1:],
		vars:    vars,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		logger:  logger,
	}, nil
}

// Run starts the handler and waits for it. A process that ran and exited unsuccessfully is
// reported through Status, not as an error. Errors mean the process couldn't run at all.
func (c *HandlerCommand) Run(ctx context.Context, rootFolder, bucket, prefix string) (Status, error) {
	cmd := exec.CommandContext(ctx, c.program, c.args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=%s", c.vars.RootFolder, rootFolder),
		fmt.Sprintf("%s=%s", c.vars.Bucket, bucket),
		fmt.Sprintf("%s=%s", c.vars.KeyPrefix, prefix),
	)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr

	c.logger.Infow("Invoking handler command", "program", c.program, "args", c.args, "root_folder", rootFolder)

	err := cmd.Run()
	if err == nil {
		return Status{ExitCode: 0, Success: true}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Status{ExitCode: exitErr.ExitCode(), Success: false}, nil
	}

	return Status{ExitCode: -1}, fmt.Errorf("failed to execute program %s with args %v. %w", c.program, c.args, err)
}

func (c *HandlerCommand) String() string {
	return fmt.Sprintf("%s %v", c.program, c.args)
}
