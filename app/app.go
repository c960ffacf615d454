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

package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	adaptersin "s3-event-bridge/adapters/in"
	adaptersout "s3-event-bridge/adapters/out"
	"s3-event-bridge/config"
	portsout "s3-event-bridge/domain/ports/out"
	"s3-event-bridge/domain/services/batcher"
	"s3-event-bridge/domain/services/command"
	"s3-event-bridge/domain/services/filter"
	"s3-event-bridge/domain/services/matcher"
	"s3-event-bridge/domain/services/pipeline"
	bridgehttp "s3-event-bridge/http"
	"s3-event-bridge/logging"
	"s3-event-bridge/metrics"
	"s3-event-bridge/pkg/awsutils"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/afero"
	"github.com/uber-go/tally/v4"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

const serviceName = "s3-event-bridge"

// Bridge holds everything a unit of work needs, shared by the three entry points.
type Bridge struct {
	Config         *config.AppConfig
	Logger         *zap.SugaredLogger
	Session        *session.Session
	Batcher        *batcher.EventBatcher
	Runner         *pipeline.Runner
	MetricsScope   tally.Scope
	MetricsHandler http.Handler
	locker         *adaptersout.RedisLocker
	closers        []func()
}

// NewBridge loads the configuration and builds the pipeline. Any invalid setting is reported
// here, before the first unit of work runs.
//
//nolint:cyclop
func NewBridge(withMetrics bool) (*Bridge, error) {
	appConfig, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewZapLogger(appConfig.DebugLog)
	if err != nil {
		return nil, err
	}

	bridge := &Bridge{Config: &appConfig, Logger: logger}
	bridge.closers = append(bridge.closers, func() { _ = logger.Sync() })

	if appConfig.Tracing.Enabled {
		// Enable Datadog tracer
		tracer.Start(tracer.WithService(serviceName))
		bridge.closers = append(bridge.closers, tracer.Stop)

		// Enable Datadog Profiler
		if err = profiler.Start(profiler.WithService(serviceName)); err != nil {
			bridge.Close()
			return nil, err
		}
		bridge.closers = append(bridge.closers, profiler.Stop)
	}

	var metricsClose io.Closer
	if withMetrics && appConfig.HTTPServer.Metrics {
		bridge.MetricsScope, bridge.MetricsHandler, metricsClose = metrics.NewPrometheusScope()
	} else {
		bridge.MetricsScope, bridge.MetricsHandler, metricsClose = metrics.NewNoopScope()
	}
	bridge.closers = append(bridge.closers, func() { _ = metricsClose.Close() })

	var client awsutils.Clients
	bridge.Session, err = client.Session(appConfig.Aws.Region, appConfig.Aws.Endpoint)
	if err != nil {
		bridge.Close()
		return nil, fmt.Errorf("failed to initialize aws client. Error: %s, Region: %s, Endpoint: %s", err, appConfig.Aws.Region, appConfig.Aws.Endpoint)
	}

	if err = bridge.build(); err != nil {
		bridge.Close()
		return nil, err
	}

	return bridge, nil
}

func (b *Bridge) build() error {
	settings := b.Config.Bridge

	matchKey, err := matcher.Compile(settings.MatchKey)
	if err != nil {
		return fmt.Errorf("invalid key match pattern. %w", err)
	}

	pullMatchers, err := matcher.CompileAll(settings.PullMatchKeys)
	if err != nil {
		return fmt.Errorf("invalid pull match pattern. %w", err)
	}

	executionFilter, err := filter.Load(afero.NewOsFs(), settings.ExecutionFilterExpr, settings.ExecutionFilterFile, b.Logger)
	if err != nil {
		return err
	}

	argv, err := command.Argv(settings.HandlerCommand, os.Args[1:])
	if err != nil {
		return err
	}

	handler, err := command.NewHandlerCommand(argv, command.EnvVars{
		RootFolder: settings.RootFolderVar,
		Bucket:     settings.BucketVar,
		KeyPrefix:  settings.KeyPrefixVar,
	}, b.Logger)
	if err != nil {
		return err
	}

	var locker portsout.Locker
	if b.Config.Redis.URL != "" {
		b.locker = adaptersout.NewRedisLocker(b.Config.Redis.URL, b.Config.Redis.Password, b.Config.Redis.UseTLS, time.Duration(b.Config.Redis.LockTTL)*time.Second, b.Logger)
		b.closers = append(b.closers, func() { _ = b.locker.Close() })
		locker = b.locker
	}

	store := adaptersout.NewS3Storage(b.Session, nil)
	workspaceFactory := adaptersout.NewWorkspaceFactory(afero.NewOsFs(), "")
	jobs := pipeline.DefaultJobs(store, executionFilter, pullMatchers, handler, b.MetricsScope, b.Logger)

	b.Batcher = batcher.NewEventBatcher(matchKey, settings.PullParentDirs, b.Logger)
	b.Runner = pipeline.NewRunner(jobs, workspaceFactory, locker, settings.TargetBucket, b.MetricsScope, b.Logger)

	b.Logger.Infow("Bridge initialized", "pipeline", b.Runner.Name(), "handler", handler.String(), "match_key", matchKey.String(),
		"pull_parent_dirs", settings.PullParentDirs, "target_bucket", settings.TargetBucket, "lock", locker != nil)

	return nil
}

// Close releases clients in reverse creation order.
func (b *Bridge) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

// StartConsumer polls the configured queue until ctx is done, serving health checks and
// metrics meanwhile when the HTTP server is enabled.
func StartConsumer(ctx context.Context) error {
	bridge, err := NewBridge(true)
	if err != nil {
		return err
	}
	defer bridge.Close()

	appConfig := bridge.Config
	logger := bridge.Logger

	if appConfig.Queue.URL == "" {
		return fmt.Errorf("queue url is required. Define QUEUE_URL or SQS_QUEUE_URL")
	}

	queue := adaptersout.NewSQSQueue(bridge.Session, nil, appConfig.Queue.URL, int64(appConfig.Queue.MaxMessages),
		int64(appConfig.Queue.VisibilityTimeout), int64(appConfig.Queue.WaitTime))
	queueController := adaptersin.NewQueueController(queue, bridge.Batcher, bridge.Runner, bridge.MetricsScope, logger)

	if appConfig.HTTPServer.Enabled {
		fiberApp, err := bridgehttp.CreateFiberApp(bridge.fiberConfig(queue), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize fiber framework. Error: %s", err)
		}

		go func() {
			if err := fiberApp.Listen(fmt.Sprintf(":%d", appConfig.HTTPServer.Port)); err != nil {
				logger.Errorw("HTTP server stopped", "error", err)
			}
		}()
		defer func() { _ = fiberApp.Shutdown() }()
	}

	queueController.Consume(ctx)

	return nil
}

func (b *Bridge) fiberConfig(queue portsout.Queue) bridgehttp.FiberConfig {
	logger := b.Logger

	return bridgehttp.FiberConfig{
		AuthorizationKeys: b.Config.HTTPServer.AuthorizationKeys,
		Metrics:           adaptor.HTTPHandler(b.MetricsHandler),
		RequestLogger: func(c *fiber.Ctx) error {
			// Prevent generating lots of requests because of healthcheck
			if !strings.HasPrefix(c.Path(), "/healthcheck/") && !strings.HasPrefix(c.Path(), "/metrics") {
				logger.Infow("Received webapi request", "ip", c.IP(), "method", c.Method(), "path", c.Path())
			}
			return c.Next()
		},
		Readiness: func(c *fiber.Ctx) error {
			if err := queue.Ping(c.UserContext()); err != nil {
				logger.Errorw("Failed to connect to the queue in readiness.", "error", err)
				return c.Status(fiber.StatusServiceUnavailable).SendString(fmt.Sprintf("Queue not reachable. %s", err))
			}

			if b.locker != nil {
				if err := b.locker.Ping(c.UserContext()); err != nil {
					logger.Errorw("Failed to connect to the cache.", "error", err)
					return c.Status(fiber.StatusServiceUnavailable).SendString(fmt.Sprintf("Elasticache not connectable. %s", err))
				}
			}

			return c.SendStatus(fiber.StatusOK)
		},
		Liveness: func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		},
	}
}

// RunLambda hands control to the Lambda runtime. It only returns on initialization errors.
func RunLambda() error {
	bridge, err := NewBridge(false)
	if err != nil {
		return err
	}
	defer bridge.Close()

	controller := adaptersin.NewLambdaController(bridge.Batcher, bridge.Runner, bridge.Logger)
	lambda.Start(controller.Handle)

	return nil
}

// RunCommand processes the single unit of work named by the environment.
func RunCommand(ctx context.Context) error {
	bridge, err := NewBridge(false)
	if err != nil {
		return err
	}
	defer bridge.Close()

	controller := adaptersin.NewCommandController(bridge.Runner, bridge.Config.Bridge.BucketVar, bridge.Config.Bridge.KeyPrefixVar, bridge.Logger)
	outcome, err := controller.Run(ctx)
	if err != nil {
		return err
	}

	bridge.Logger.Infow("Done", "outcome", outcome)

	return nil
}
