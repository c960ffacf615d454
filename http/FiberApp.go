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

package http

import (
	"fmt"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/keyauth/v2"
	fibertrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gofiber/fiber.v2"
	"s3-event-bridge/logging"
)

const (
	metricsPath     = "/metrics"
	healthcheckPath = "/healthcheck"
)

type FiberConfig struct {
	AuthorizationKeys []string
	Metrics           fiber.Handler
	Readiness         fiber.Handler
	Liveness          fiber.Handler
	RequestLogger     fiber.Handler
}

func CreateFiberApp(fiberConfig FiberConfig, logger logging.Logger) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		// Preventing possible security issues when interacting with the authentication filter
		CaseSensitive:         true,
		UnescapePath:          false,
		StrictRouting:         true,
		DisableStartupMessage: true,
	})

	// Add datadog tracer middleware
	app.Use(fibertrace.Middleware())

	if len(fiberConfig.AuthorizationKeys) != 0 {
		scrapeKeys, err := ParseScrapeKeys(fiberConfig.AuthorizationKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare keys. %w", err)
		}

		authMiddleware := keyauth.New(keyauth.Config{
			ErrorHandler: func(ctx *fiber.Ctx, err error) error {
				response := struct {
					Error string
				}{
					Error: err.Error(),
				}
				return ctx.Status(fiber.StatusUnauthorized).JSON(response)
			},
			SuccessHandler: func(ctx *fiber.Ctx) error {
				return ctx.Next()
			},
			Filter:    FiberAuthFilter,
			Validator: FiberAuthValidator(scrapeKeys),
		})
		app.Use(authMiddleware)
	} else {
		logger.Infow("No API keys specified, metrics may be read by users with network access to the endpoint")
		logger.Infow("Please, consider defining the environment variable HTTPSERVER_AUTHORIZATIONKEYS in your secrets manager.")
	}

	if fiberConfig.RequestLogger != nil {
		app.Use(fiberConfig.RequestLogger)
	}

	app.Get(healthcheckPath+"/readiness", fiberConfig.Readiness)
	app.Get(healthcheckPath+"/liveness", fiberConfig.Liveness)
	app.Get(metricsPath, fiberConfig.Metrics)

	return app, nil
}
