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

package fmterr

import "github.com/pkg/errors"

type contextError struct {
	f      func(error) error
	errors Errors
}

// Appender accumulates warnings, that is errors from which the translation recovered.
// Warnings can be grouped under a context (for example the function being translated)
// which transforms them when the context is popped.
type Appender struct {
	stack  []contextError
	errors Errors
	strict bool
}

// NewAppender returns a new warning accumulator.
// In strict mode, warnings are returned to the caller as fatal errors instead.
func NewAppender(strict bool) *Appender {
	return &Appender{strict: strict}
}

// Push a new context in the error stack.
func (app *Appender) Push(f func(error) error) {
	app.stack = append(app.stack, contextError{f: f})
}

// Pop removes the last error context in the stack.
func (app *Appender) Pop() {
	last := app.stack[len(app.stack)-1]
	app.stack = app.stack[:len(app.stack)-1]
	for _, err := range last.errors.errs {
		app.Append(last.f(err))
	}
}

// Append a warning.
func (app *Appender) Append(err error) bool {
	if len(app.stack) == 0 {
		return app.errors.Append(err)
	}
	return app.stack[len(app.stack)-1].errors.Append(err)
}

// Warn records a recovered error.
// In strict mode, the error is not recorded but returned so that the caller stops.
func (app *Appender) Warn(err error) error {
	if app.strict {
		cat, _ := CategoryOf(err)
		if cat == 0 {
			cat = Unsupported
		}
		if !cat.Fatal() {
			var fErr *Error
			if errors.As(err, &fErr) {
				return &Error{Cat: Unsupported, Span: fErr.Span, Construct: fErr.Construct, Err: fErr.Err}
			}
		}
		return err
	}
	app.Append(err)
	return nil
}

// Strict returns true if warnings are turned into errors.
func (app *Appender) Strict() bool {
	return app.strict
}

// Warnings returns all the warnings recorded outside of any context.
func (app *Appender) Warnings() []error {
	return app.errors.Errors()
}

// Empty returns true if no warning has been appended.
func (app *Appender) Empty() bool {
	if !app.errors.Empty() {
		return false
	}
	for _, ctx := range app.stack {
		if !ctx.errors.Empty() {
			return false
		}
	}
	return true
}

// String representation of the warnings.
func (app *Appender) String() string {
	return app.errors.String()
}
