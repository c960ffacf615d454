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

package pipeline

import (
	"context"
	"errors"
	"github.com/golang/mock/gomock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
	"io"
	"os"
	"path/filepath"
	adapters "s3-event-bridge/adapters/out"
	"s3-event-bridge/domain/entities"
	ports "s3-event-bridge/domain/ports/out"
	"s3-event-bridge/domain/services/command"
	"s3-event-bridge/domain/services/filter"
	"s3-event-bridge/domain/services/matcher"
	"s3-event-bridge/logging"
	"s3-event-bridge/mocks"
	"sync"
	"testing"
)

type fakeCommand struct {
	status command.Status
	err    error
	calls  int
	do     func(rootFolder string)
}

func (f *fakeCommand) Run(_ context.Context, rootFolder, _, _ string) (command.Status, error) {
	f.calls++
	if f.do != nil {
		f.do(rootFolder)
	}

	return f.status, f.err
}

type uploads struct {
	lock    sync.Mutex
	content map[string]string
}

func (u *uploads) put(_ context.Context, bucket, key string, reader io.Reader, _ string) error {
	body, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	u.lock.Lock()
	defer u.lock.Unlock()
	u.content[bucket+"/"+key] = string(body)

	return nil
}

func records(keys ...string) []entities.ObjectRecord {
	objects := make([]entities.ObjectRecord, 0, len(keys))
	for _, key := range keys {
		key := key
		objects = append(objects, entities.ObjectRecord{Key: &key, Size: 1})
	}

	return objects
}

func serve(contents map[string]string) func(context.Context, string, string, io.WriterAt) error {
	return func(_ context.Context, _, key string, writer io.WriterAt) error {
		_, err := writer.WriteAt([]byte(contents[key]), 0)
		return err
	}
}

type fixture struct {
	store   *mocks.MockObjectStore
	factory *adapters.WorkspaceFactory
	uploads *uploads
	handler Command
	filter  *filter.ExecutionFilter
	pull    []string
	target  string
	locker  *mocks.MockLocker
	scope   tally.TestScope
}

func newFixture(t *testing.T, mockCtrl *gomock.Controller) *fixture {
	return &fixture{
		store:   mocks.NewMockObjectStore(mockCtrl),
		factory: adapters.NewWorkspaceFactory(afero.NewOsFs(), t.TempDir()),
		uploads: &uploads{content: map[string]string{}},
		handler: &fakeCommand{status: command.Status{Success: true}},
		scope:   tally.NewTestScope("", nil),
	}
}

func (f *fixture) runner(t *testing.T) *Runner {
	pullMatchers, err := matcher.CompileAll(f.pull)
	require.NoError(t, err)

	logger := logging.NewDiscardLog()
	jobs := DefaultJobs(f.store, f.filter, pullMatchers, f.handler, f.scope, logger)

	var locker ports.Locker
	if f.locker != nil {
		locker = f.locker
	}

	return NewRunner(jobs, f.factory, locker, f.target, f.scope, logger)
}

func counter(scope tally.TestScope, name string) int64 {
	if c, ok := scope.Snapshot().Counters()[name+"+"]; ok {
		return c.Value()
	}

	return 0
}

var unit = entities.Batch{Bucket: "data", Prefix: "2024/"}

func TestProcessUploadsOnlyChangedFiles(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	f := newFixture(t, mockCtrl)
	f.pull = []string{"2024/*"}
	handler, err := command.NewHandlerCommand(
		[]string{"sh", "-c", `test -f "$ROOT_FOLDER/b.csv" && echo changed >> "$ROOT_FOLDER/a.csv"`},
		command.EnvVars{RootFolder: "ROOT_FOLDER", Bucket: "BUCKET", KeyPrefix: "KEY_PREFIX"},
		logging.NewDiscardLog())
	require.NoError(t, err)
	f.handler = handler

	f.store.EXPECT().List(gomock.Any(), "data", "2024/", nil).Return(entities.ObjectPage{Objects: records("2024/a.csv", "2024/b.csv")}, nil)
	f.store.EXPECT().Get(gomock.Any(), "data", gomock.Any(), gomock.Any()).
		DoAndReturn(serve(map[string]string{"2024/a.csv": "a\n", "2024/b.csv": "b\n"})).Times(2)
	f.store.EXPECT().Put(gomock.Any(), "data", "2024/a.csv", gomock.Any(), gomock.Any()).DoAndReturn(f.uploads.put)

	outcome, err := f.runner(t).Process(context.Background(), unit)

	require.NoError(t, err)
	assert.Equal(t, entities.Uploaded, outcome)
	assert.Equal(t, map[string]string{"data/2024/a.csv": "a\nchanged\n"}, f.uploads.content)
	assert.Equal(t, 0, f.factory.Active())
	assert.Equal(t, int64(2), counter(f.scope, "objects_downloaded"))
	assert.Equal(t, int64(1), counter(f.scope, "objects_uploaded"))
	assert.Equal(t, int64(1), counter(f.scope, "units_completed"))
}

func TestProcessDownloadsIntoWorkspace(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	f := newFixture(t, mockCtrl)
	f.pull = []string{"2024/**.csv"}
	var seen []string
	f.handler = &fakeCommand{status: command.Status{Success: true}, do: func(rootFolder string) {
		_ = filepath.Walk(rootFolder, func(path string, info os.FileInfo, err error) error {
			if err == nil && info.Mode().IsRegular() {
				relative, _ := filepath.Rel(rootFolder, path)
				seen = append(seen, filepath.ToSlash(relative))
			}
			return nil
		})
	}}

	f.store.EXPECT().List(gomock.Any(), "data", "2024/", nil).
		Return(entities.ObjectPage{Objects: records("2024/", "2024/notes.txt", "2024/q1/a.csv", "2024/b.csv")}, nil)
	f.store.EXPECT().Get(gomock.Any(), "data", gomock.Any(), gomock.Any()).
		DoAndReturn(serve(map[string]string{})).Times(2)

	outcome, err := f.runner(t).Process(context.Background(), unit)

	require.NoError(t, err)
	assert.Equal(t, entities.Uploaded, outcome)
	assert.ElementsMatch(t, []string{"q1/a.csv", "b.csv"}, seen)
}

func TestProcessFollowsContinuationTokens(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	f := newFixture(t, mockCtrl)
	token := "page-2"

	gomock.InOrder(
		f.store.EXPECT().List(gomock.Any(), "data", "2024/", nil).
			Return(entities.ObjectPage{Objects: records("2024/a.csv"), NextToken: &token}, nil),
		f.store.EXPECT().List(gomock.Any(), "data", "2024/", &token).
			Return(entities.ObjectPage{Objects: records("2024/b.csv")}, nil),
	)
	f.store.EXPECT().Get(gomock.Any(), "data", "2024/a.csv", gomock.Any()).Return(nil)
	f.store.EXPECT().Get(gomock.Any(), "data", "2024/b.csv", gomock.Any()).Return(nil)

	_, err := f.runner(t).Process(context.Background(), unit)
	require.NoError(t, err)
}

func TestProcessExecutionFilter(t *testing.T) {
	type test struct {
		name       string
		expression string
		filtered   bool
	}

	tests := []test{
		{name: "false stops before download", expression: "length > 5", filtered: true},
		{name: "true proceeds", expression: "length == 2", filtered: false},
		{name: "non boolean proceeds", expression: ".[0].Key", filtered: false},
		{name: "evaluation error proceeds", expression: ".[0].Key | tonumber", filtered: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			defer mockCtrl.Finish()

			f := newFixture(t, mockCtrl)
			executionFilter, err := filter.Compile(tc.expression, logging.NewDiscardLog())
			require.NoError(t, err)
			f.filter = executionFilter
			handler := &fakeCommand{status: command.Status{Success: true}}
			f.handler = handler

			f.store.EXPECT().List(gomock.Any(), "data", "2024/", nil).Return(entities.ObjectPage{Objects: records("2024/a.csv", "2024/b.csv")}, nil)
			if !tc.filtered {
				f.store.EXPECT().Get(gomock.Any(), "data", gomock.Any(), gomock.Any()).Return(nil).Times(2)
			}

			outcome, err := f.runner(t).Process(context.Background(), unit)

			require.NoError(t, err)
			if tc.filtered {
				assert.Equal(t, entities.Filtered, outcome)
				assert.Equal(t, 0, handler.calls)
				assert.Equal(t, int64(1), counter(f.scope, "units_filtered"))
			} else {
				assert.Equal(t, entities.Uploaded, outcome)
				assert.Equal(t, 1, handler.calls)
			}
		})
	}
}

func TestProcessDeclinedHandlerUploadsNothing(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	f := newFixture(t, mockCtrl)
	f.handler = &fakeCommand{status: command.Status{ExitCode: 1}, do: func(rootFolder string) {
		_ = os.WriteFile(filepath.Join(rootFolder, "new.csv"), []byte("new"), 0o644)
	}}

	f.store.EXPECT().List(gomock.Any(), "data", "2024/", nil).Return(entities.ObjectPage{Objects: records("2024/a.csv")}, nil)
	f.store.EXPECT().Get(gomock.Any(), "data", "2024/a.csv", gomock.Any()).Return(nil)

	outcome, err := f.runner(t).Process(context.Background(), unit)

	require.NoError(t, err)
	assert.Equal(t, entities.Declined, outcome)
	assert.Equal(t, int64(1), counter(f.scope, "units_declined"))
	assert.Equal(t, 0, f.factory.Active())
}

func TestProcessDifferentTargetBucketUploadsEverything(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	f := newFixture(t, mockCtrl)
	f.target = "results"

	f.store.EXPECT().List(gomock.Any(), "data", "2024/", nil).Return(entities.ObjectPage{Objects: records("2024/a.csv", "2024/b.csv")}, nil)
	f.store.EXPECT().Get(gomock.Any(), "data", gomock.Any(), gomock.Any()).
		DoAndReturn(serve(map[string]string{"2024/a.csv": "a", "2024/b.csv": "b"})).Times(2)
	f.store.EXPECT().Put(gomock.Any(), "results", gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(f.uploads.put).Times(2)

	outcome, err := f.runner(t).Process(context.Background(), unit)

	require.NoError(t, err)
	assert.Equal(t, entities.Uploaded, outcome)
	assert.Equal(t, map[string]string{"results/2024/a.csv": "a", "results/2024/b.csv": "b"}, f.uploads.content)
}

func TestProcessNoChangesUploadsNothing(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	f := newFixture(t, mockCtrl)
	f.target = "data"

	f.store.EXPECT().List(gomock.Any(), "data", "2024/", nil).Return(entities.ObjectPage{Objects: records("2024/a.csv")}, nil)
	f.store.EXPECT().Get(gomock.Any(), "data", "2024/a.csv", gomock.Any()).DoAndReturn(serve(map[string]string{"2024/a.csv": "a"}))

	outcome, err := f.runner(t).Process(context.Background(), unit)

	require.NoError(t, err)
	assert.Equal(t, entities.Uploaded, outcome)
	assert.Empty(t, f.uploads.content)
}

func TestProcessFailures(t *testing.T) {
	failure := errors.New("boom")

	type test struct {
		name   string
		expect func(f *fixture)
	}

	tests := []test{
		{name: "list", expect: func(f *fixture) {
			f.store.EXPECT().List(gomock.Any(), "data", "2024/", nil).Return(entities.ObjectPage{}, failure)
		}},
		{name: "download", expect: func(f *fixture) {
			f.store.EXPECT().List(gomock.Any(), "data", "2024/", nil).Return(entities.ObjectPage{Objects: records("2024/a.csv")}, nil)
			f.store.EXPECT().Get(gomock.Any(), "data", "2024/a.csv", gomock.Any()).Return(failure)
		}},
		{name: "handler start", expect: func(f *fixture) {
			f.handler = &fakeCommand{err: failure}
			f.store.EXPECT().List(gomock.Any(), "data", "2024/", nil).Return(entities.ObjectPage{}, nil)
		}},
		{name: "upload", expect: func(f *fixture) {
			f.handler = &fakeCommand{status: command.Status{Success: true}, do: func(rootFolder string) {
				_ = os.WriteFile(filepath.Join(rootFolder, "out.json"), []byte("{}"), 0o644)
			}}
			f.store.EXPECT().List(gomock.Any(), "data", "2024/", nil).Return(entities.ObjectPage{}, nil)
			f.store.EXPECT().Put(gomock.Any(), "data", "2024/out.json", gomock.Any(), gomock.Any()).Return(failure)
		}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mockCtrl := gomock.NewController(t)
			defer mockCtrl.Finish()

			f := newFixture(t, mockCtrl)
			tc.expect(f)

			_, err := f.runner(t).Process(context.Background(), unit)

			require.Error(t, err)
			assert.ErrorIs(t, err, failure)
			assert.Equal(t, 0, f.factory.Active())
			assert.Equal(t, int64(1), counter(f.scope, "units_failed"))
		})
	}
}

func TestProcessLocksPrefix(t *testing.T) {
	t.Run("lock held while processing", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		f.locker = mocks.NewMockLocker(mockCtrl)

		gomock.InOrder(
			f.locker.EXPECT().Lock(gomock.Any(), "s3://data/2024/").Return(nil),
			f.store.EXPECT().List(gomock.Any(), "data", "2024/", nil).Return(entities.ObjectPage{}, nil),
			f.locker.EXPECT().Unlock(gomock.Any(), "s3://data/2024/").Return(nil),
		)

		_, err := f.runner(t).Process(context.Background(), unit)
		require.NoError(t, err)
	})

	t.Run("lock not obtained fails the unit", func(t *testing.T) {
		mockCtrl := gomock.NewController(t)
		defer mockCtrl.Finish()

		f := newFixture(t, mockCtrl)
		f.locker = mocks.NewMockLocker(mockCtrl)
		f.locker.EXPECT().Lock(gomock.Any(), "s3://data/2024/").Return(errors.New("not obtained"))

		_, err := f.runner(t).Process(context.Background(), unit)
		assert.Error(t, err)
	})
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "/a.csv", LocalName("2024/a.csv", "2024/"))
	assert.Equal(t, "/q1/a.csv", LocalName("2024/q1/a.csv", "2024/"))
	assert.Equal(t, "/other/a.csv", LocalName("other/a.csv", "2024/"))
	assert.Equal(t, "/a.csv", LocalName("a.csv", ""))
}

func TestRunnerName(t *testing.T) {
	runner := NewRunner([]Job{NewSnapshotter(logging.NewDiscardLog()), NewGate(nil, logging.NewDiscardLog())}, nil, nil, "", tally.NoopScope, logging.NewDiscardLog())
	assert.Equal(t, "Pipeline with jobs: Snapshotter, Gate", runner.Name())
}
