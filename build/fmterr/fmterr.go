// Copyright 2024 Google LLC
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

// Package fmterr provides categorised translation errors attached to a source span,
// and helpers to accumulate them while translating a module.
package fmterr

import (
	"fmt"
)

// Span locates a construct in the source file.
type Span struct {
	File      string
	Line, Col int
}

// IsValid returns true if the span points to a line in a file.
func (s Span) IsValid() bool {
	return s.Line > 0
}

// String representation of the span.
func (s Span) String() string {
	file := s.File
	if file == "" {
		file = "<source>"
	}
	if !s.IsValid() {
		return file
	}
	if s.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", file, s.Line, s.Col)
	}
	return fmt.Sprintf("%s:%d", file, s.Line)
}

// PrefixWith returns a function to prefix errors with a formatted string.
func PrefixWith(s string, o ...any) func(err error) error {
	return func(err error) error {
		return fmt.Errorf("%s%w", fmt.Sprintf(s, o...), err)
	}
}

// SpanPrefixWith returns a function to prefix errors with a span and a formatted string.
func SpanPrefixWith(span Span, s string, o ...any) func(err error) error {
	return func(err error) error {
		return fmt.Errorf("%s: %s%w", span, fmt.Sprintf(s, o...), err)
	}
}
