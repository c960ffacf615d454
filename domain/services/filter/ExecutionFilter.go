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

package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/itchyny/gojq"
	"github.com/spf13/afero"
	"s3-event-bridge/domain/entities"
	"s3-event-bridge/logging"
)

// ExecutionFilter is a compiled jq expression run against the listing of a unit of work.
type ExecutionFilter struct {
	source string
	code   *gojq.Code
	logger logging.Logger
}

func Compile(expression string, logger logging.Logger) (*ExecutionFilter, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to parse execution filter expression. %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile execution filter expression. %w", err)
	}

	return &ExecutionFilter{source: expression, code: code, logger: logger}, nil
}

// Load compiles the filter given inline or in a file. It returns nil when neither is set.
func Load(fs afero.Fs, expression, file string, logger logging.Logger) (*ExecutionFilter, error) {
	switch {
	case expression == "" && file == "":
		return nil, nil
	case file == "":
		return Compile(expression, logger)
	case expression == "":
		content, err := afero.ReadFile(fs, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read execution filter file %s. %w", file, err)
		}

		return Compile(string(content), logger)
	default:
		return nil, fmt.Errorf("can't use both an execution filter expression and a file at the same time")
	}
}

// First runs the filter and returns its first result. found is false when the filter produced
// nothing. Results after the first are ignored.
func (f *ExecutionFilter) First(ctx context.Context, input any) (value any, found bool, err error) {
	iter := f.code.RunWithContext(ctx, input)

	value, found = iter.Next()
	if !found {
		return nil, false, nil
	}

	if evalErr, ok := value.(error); ok {
		return nil, true, evalErr
	}

	if _, more := iter.Next(); more {
		f.logger.Warnw("Filter returned more than one result; subsequent results are ignored", "filter", f.source)
	}

	return value, true, nil
}

// Rejects tells whether the first result of the filter over the given objects is the boolean
// false. Evaluation errors are logged and never reject.
func (f *ExecutionFilter) Rejects(ctx context.Context, objects []entities.ObjectRecord) (bool, error) {
	document, err := Document(objects)
	if err != nil {
		return false, err
	}

	value, found, err := f.First(ctx, document)
	if err != nil {
		f.logger.Warnw("Execution filter evaluation failed", "filter", f.source, "error", err)
		return false, nil
	}

	if !found {
		return false, nil
	}

	result, isBool := value.(bool)

	return isBool && !result, nil
}

func (f *ExecutionFilter) String() string {
	return f.source
}

// Document converts the object records to the generic JSON values the jq engine operates on.
func Document(objects []entities.ObjectRecord) (any, error) {
	if objects == nil {
		objects = []entities.ObjectRecord{}
	}

	raw, err := json.Marshal(objects)
	if err != nil {
		return nil, fmt.Errorf("failed serialization of objects for execution filter. %w", err)
	}

	var document any
	if err = json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("failed serialization of objects for execution filter. %w", err)
	}

	return document, nil
}
