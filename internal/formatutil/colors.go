// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package formatutil colorizes CLI and log output when standard out is a
// terminal, and leaves it plain otherwise so piped output and CI logs stay
// clean.
package formatutil

import (
	"fmt"

	"golang.org/x/term"
)

var (
	Bold    = Color("\033[1m%s\033[0m")
	Faint   = Color("\033[2m%s\033[0m")
	Red     = Color("\033[1;31m%s\033[0m")
	Green   = Color("\033[1;32m%s\033[0m")
	Yellow  = Color("\033[1;33m%s\033[0m")
	Cyan    = Color("\033[1;36m%s\033[0m")
	Magenta = Color("\033[1;35m%s\033[0m")
)

// Color returns a formatter that wraps its arguments in the given ANSI
// escape sequence when stdout is a terminal, and otherwise formats them
// plain. Severity() below is built on this: Red for vulnerabilities, Green
// for a clean run, Yellow for a partial/deadline-truncated one.
func Color(colorString string) func(...any) string {
	return func(args ...any) string {
		if term.IsTerminal(1) {
			return fmt.Sprintf(colorString, fmt.Sprint(args...))
		}
		return fmt.Sprint(args...)
	}
}

// Severity picks the color a CLI summary line should use for n findings,
// with truncated indicating the run did not reach quiescence.
func Severity(n int, truncated bool) func(...any) string {
	switch {
	case truncated:
		return Yellow
	case n > 0:
		return Red
	default:
		return Green
	}
}

// Sanitize strips control and escape sequences from s by round-tripping
// it through Go quoting, so a tainted string value cannot smuggle ANSI
// codes or newlines into a terminal report.
func Sanitize(s string) string {
	r := fmt.Sprintf("%q", s)
	if len(r) >= 2 {
		return r[1 : len(r)-1]
	}
	return r
}

// SanitizeRepr applies Sanitize to a Stringer's representation.
func SanitizeRepr(s fmt.Stringer) string {
	return Sanitize(s.String())
}
