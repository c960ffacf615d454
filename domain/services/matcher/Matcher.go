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

package matcher

import (
	"fmt"
	"github.com/gobwas/glob"
)

// Separator is never matched by a single '*'.
const Separator = '/'

// PatternError reports a key pattern that failed to compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid key pattern %q. %s", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Matcher matches whole object keys against a glob where '*' stands for any run of characters
// other than '/'. '?', '[...]', '{a,b}' and '\' escapes keep their glob meaning, so keys
// holding them literally need escaping. The zero pattern matches everything.
type Matcher struct {
	pattern string
	glob    glob.Glob
}

func Compile(pattern string) (*Matcher, error) {
	if pattern == "" {
		return &Matcher{}, nil
	}

	g, err := glob.Compile(pattern, Separator)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}

	return &Matcher{pattern: pattern, glob: g}, nil
}

func (m *Matcher) Match(key string) bool {
	if m.glob == nil {
		return true
	}

	return m.glob.Match(key)
}

func (m *Matcher) String() string {
	return m.pattern
}

// Set matches a key when any of its matchers does. An empty Set matches everything.
type Set []*Matcher

func CompileAll(patterns []string) (Set, error) {
	set := make(Set, 0, len(patterns))
	for _, pattern := range patterns {
		m, err := Compile(pattern)
		if err != nil {
			return nil, err
		}

		set = append(set, m)
	}

	return set, nil
}

func (s Set) Match(key string) bool {
	if len(s) == 0 {
		return true
	}

	for _, m := range s {
		if m.Match(key) {
			return true
		}
	}

	return false
}
