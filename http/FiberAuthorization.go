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
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/keyauth/v2"
	"strings"
)

// ScraperLocal holds the alias of the key that authenticated a request.
const ScraperLocal = "scraper"

var errKeyFormat = errors.New("scrape keys must have the format <alias>:<sha256 hex of the secret>, " +
	"for instance generate a secret with `openssl rand -hex 32` and hash it with sha256sum")

// ScrapeKeys maps an alias to the SHA256 of its secret.
type ScrapeKeys map[string][]byte

// ParseScrapeKeys reads the configured <alias>:<hash> entries. Aliases must be unique.
func ParseScrapeKeys(entries []string) (ScrapeKeys, error) {
	keys := make(ScrapeKeys, len(entries))

	for index, entry := range entries {
		alias, hash, err := parseScrapeKey(strings.TrimSpace(entry))
		if err != nil {
			return nil, fmt.Errorf("invalid scrape key at index %d. %w", index, err)
		}

		if _, duplicated := keys[alias]; duplicated {
			return nil, fmt.Errorf("scrape key alias %q is defined more than once", alias)
		}

		keys[alias] = hash
	}

	return keys, nil
}

func parseScrapeKey(entry string) (string, []byte, error) {
	alias, encoded, found := strings.Cut(entry, ":")
	if !found || alias == "" || len(encoded) != hex.EncodedLen(sha256.Size) {
		return "", nil, errKeyFormat
	}

	hash, err := hex.DecodeString(encoded)
	if err != nil {
		return "", nil, errKeyFormat
	}

	return alias, hash, nil
}

// FiberAuthFilter tells which requests skip authentication. Only health checks do, since
// orchestrators probe them without credentials.
func FiberAuthFilter(ctx *fiber.Ctx) bool {
	switch ctx.OriginalURL() {
	case healthcheckPath + "/readiness", healthcheckPath + "/liveness":
		return true
	default:
		return false
	}
}

// FiberAuthValidator accepts a bearer key whose hash matches one of keys, storing the alias
// under ScraperLocal. Every key is compared so timing does not reveal which alias matched.
func FiberAuthValidator(keys ScrapeKeys) func(c *fiber.Ctx, key string) (bool, error) {
	return func(c *fiber.Ctx, key string) (bool, error) {
		hashed := sha256.Sum256([]byte(key))

		scraper := ""
		for alias, expected := range keys {
			if subtle.ConstantTimeCompare(hashed[:], expected) == 1 {
				scraper = alias
			}
		}

		if scraper == "" {
			return false, keyauth.ErrMissingOrMalformedAPIKey
		}

		c.Locals(ScraperLocal, scraper)

		return true, nil
	}
}
