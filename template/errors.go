// Copyright 2025 The Routecore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package template

import "fmt"

// ErrorKind enumerates the build-time template parse failures.
type ErrorKind string

const (
	EmptyName           ErrorKind = "empty_name"
	DuplicateName        ErrorKind = "duplicate_name"
	UnbalancedBrace      ErrorKind = "unbalanced_brace"
	CatchAllNotLast      ErrorKind = "catch_all_not_last"
	OptionalNotTrailing  ErrorKind = "optional_not_trailing"
	DefaultOnCatchAll    ErrorKind = "default_on_catch_all"
)

// ParseError reports a build-time template parse failure, citing the
// character offset and cause. Build-time errors are raised immediately
// and carry a user-readable location.
type ParseError struct {
	Template string
	Offset   int
	Kind     ErrorKind
	Detail   string
}

func (e *ParseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("template %q: %s at offset %d: %s", e.Template, e.Kind, e.Offset, e.Detail)
	}
	return fmt.Sprintf("template %q: %s at offset %d", e.Template, e.Kind, e.Offset)
}

func newParseError(tpl string, offset int, kind ErrorKind, detail string) *ParseError {
	return &ParseError{Template: tpl, Offset: offset, Kind: kind, Detail: detail}
}
