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

package config

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"os"
	"strings"
)

const (
	defaultPort              = 3000
	defaultVisibilityTimeout = 30
	defaultMaxMessages       = 1
	defaultWaitTime          = 20
	defaultLockTTL           = 900
	defaultRegion            = "us-east-1"
)

type AppConfig struct {
	Bridge     Bridge
	Aws        AWS
	Queue      Queue
	Redis      Redis
	HTTPServer HTTPServer
	Tracing    Tracing
	DebugLog   bool
}

// Bridge holds the settings that drive every unit of work. It is resolved once and never mutated.
type Bridge struct {
	// Glob matched against notification keys. Empty matches every key.
	MatchKey string
	// Parent directories to pull, counted from the notified key. 0 is the containing folder,
	// a negative value pulls the whole bucket.
	PullParentDirs int
	// Globs selecting which listed objects are downloaded. Empty downloads everything listed.
	PullMatchKeys []string
	// jq expression evaluated against the listing. Mutually exclusive with ExecutionFilterFile.
	ExecutionFilterExpr string
	ExecutionFilterFile string
	// Bucket receiving the changed files. Empty means the notified bucket.
	TargetBucket string
	// Shell-tokenized handler command line. When empty the process arguments are used.
	HandlerCommand string
	RootFolderVar  string `validate:"required"`
	BucketVar      string `validate:"required"`
	KeyPrefixVar   string `validate:"required"`
}

type AWS struct {
	Region   string `validate:"required"`
	Endpoint string
}

type Queue struct {
	URL               string
	VisibilityTimeout int `validate:"min=0,max=43200"`
	MaxMessages       int `validate:"min=1,max=10"`
	WaitTime          int `validate:"min=0,max=20"`
}

type Redis struct {
	URL      string
	Password string
	UseTLS   bool
	// Seconds a lock survives without refresh. Held locks are refreshed, so this only bounds how
	// long a crashed consumer keeps the prefix blocked.
	LockTTL int `validate:"min=1"`
}

type HTTPServer struct {
	Enabled           bool
	Metrics           bool
	AuthorizationKeys []string
	Port              int `validate:"min=1,max=65535"`
}

type Tracing struct {
	Enabled bool
}

func NewConfig() *AppConfig {
	return &AppConfig{
		Bridge: Bridge{
			RootFolderVar: "ROOT_FOLDER",
			BucketVar:     "BUCKET",
			KeyPrefixVar:  "KEY_PREFIX",
		},
		Aws: AWS{
			Region: defaultRegion,
		},
		Queue: Queue{
			VisibilityTimeout: defaultVisibilityTimeout,
			MaxMessages:       defaultMaxMessages,
			WaitTime:          defaultWaitTime,
		},
		Redis: Redis{
			LockTTL: defaultLockTTL,
		},
		HTTPServer: HTTPServer{
			Port: defaultPort,
		},
	}
}

// Environment names understood for backwards compatibility with deployments that predate
// the sectioned configuration.
var legacyEnv = map[string]string{
	"bridge/matchkey":            "MATCH_KEY",
	"bridge/pullparentdirs":      "PULL_PARENT_DIRS",
	"bridge/pullmatchkeys":       "PULL_MATCH_KEYS",
	"bridge/executionfilterexpr": "EXECUTION_FILTER_EXPR",
	"bridge/executionfilterfile": "EXECUTION_FILTER_FILE",
	"bridge/targetbucket":        "TARGET_BUCKET",
	"bridge/handlercommand":      "HANDLER_COMMAND",
	"bridge/rootfoldervar":       "ROOT_FOLDER_VAR",
	"bridge/bucketvar":           "BUCKET_VAR",
	"bridge/keyprefixvar":        "KEY_PREFIX_VAR",
	"aws/endpoint":               "AWS_ENDPOINT_URL",
	"queue/url":                  "SQS_QUEUE_URL",
	"queue/visibilitytimeout":    "SQS_VISIBILITY_TIMEOUT",
	"queue/maxmessages":          "SQS_MAX_NUMBER_OF_MESSAGES",
}

func validateConfig(config AppConfig) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration. %w", err)
	}

	if config.Bridge.ExecutionFilterExpr != "" && config.Bridge.ExecutionFilterFile != "" {
		return fmt.Errorf("can't use both an execution filter expression and a file at the same time")
	}

	return nil
}

// see supershal approach https://github.com/spf13/viper/issues/188
func LoadConfig() (AppConfig, error) {
	const keyDelimiter = "/"
	v := viper.NewWithOptions(viper.KeyDelimiter(keyDelimiter))

	// Viper needs to know if a key exists in order to override it.
	b, err := yaml.Marshal(NewConfig())
	if err != nil {
		return AppConfig{}, err
	}

	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/app/config/")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.MergeConfig(bytes.NewReader(b)); err != nil {
		return AppConfig{}, err
	}

	// The bridge is usually configured through the environment alone
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return AppConfig{}, err
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(keyDelimiter, "_"))

	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, keyDelimiter, "_")), legacy); err != nil {
			return AppConfig{}, err
		}
	}

	config := AppConfig{}
	if err = v.Unmarshal(&config); err != nil {
		return AppConfig{}, err
	}

	if err = validateConfig(config); err != nil {
		return AppConfig{}, err
	}

	return config, nil
}
