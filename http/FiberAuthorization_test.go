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
	"crypto/sha256"
	"encoding/hex"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"s3-event-bridge/logging"
	"testing"
)

func scrapeKey(alias, secret string) string {
	hashed := sha256.Sum256([]byte(secret))
	return alias + ":" + hex.EncodeToString(hashed[:])
}

func TestParseScrapeKeys(t *testing.T) {
	keys, err := ParseScrapeKeys([]string{scrapeKey("prometheus", "a"), " " + scrapeKey("datadog", "b") + " "})
	require.NoError(t, err)

	expected := sha256.Sum256([]byte("b"))
	assert.Len(t, keys, 2)
	assert.Equal(t, expected[:], keys["datadog"])

	keys, err = ParseScrapeKeys(nil)
	assert.NoError(t, err)
	assert.Empty(t, keys)
}

func TestParseScrapeKeysRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
	}{
		{name: "empty", entries: []string{""}},
		{name: "short hash", entries: []string{"prometheus:cafe"}},
		{name: "not hex", entries: []string{"prometheus:" + string(make([]byte, 64))}},
		{name: "no alias", entries: []string{scrapeKey("", "a")}},
		{name: "hash only", entries: []string{scrapeKey("prometheus", "a")[len("prometheus:"):]}},
		{name: "duplicated alias", entries: []string{scrapeKey("prometheus", "a"), scrapeKey("prometheus", "b")}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			keys, err := ParseScrapeKeys(tt.entries)
			assert.Nil(t, keys)
			assert.Error(t, err)
		})
	}
}

func TestAuthenticatedScraperIsKnownToHandlers(t *testing.T) {
	scraper := func(c *fiber.Ctx) error {
		alias, _ := c.Locals(ScraperLocal).(string)
		return c.SendString(alias)
	}

	app, err := CreateFiberApp(FiberConfig{
		AuthorizationKeys: []string{scrapeKey("prometheus", "first"), scrapeKey("datadog", "second")},
		Metrics:           scraper,
		Readiness:         scraper,
		Liveness:          scraper,
	}, logging.NewDiscardLog())
	require.NoError(t, err)

	request := httptest.NewRequest("GET", metricsPath, http.NoBody)
	request.Header.Set("Authorization", "Bearer second")

	response, err := app.Test(request, -1)
	require.NoError(t, err)
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, response.StatusCode)
	assert.Equal(t, "datadog", string(body))
}
