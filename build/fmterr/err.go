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

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Category of a translation error.
type Category int

// Error categories.
const (
	// Unsupported is a construct without a lowering in the current mode.
	Unsupported Category = iota + 1
	// AnnotationParse is a type annotation which could not be mapped to a type.
	AnnotationParse
	// AmbiguousInference is a sub-expression requiring a concrete type when none is known.
	AmbiguousInference
	// ArityMismatch is a wrong number of values or arguments known statically.
	ArityMismatch
	// Internal is a broken invariant of the translator.
	Internal
)

// String returns the name of the category.
func (c Category) String() string {
	switch c {
	case Unsupported:
		return "unsupported construct"
	case AnnotationParse:
		return "type annotation parse failure"
	case AmbiguousInference:
		return "ambiguous inference"
	case ArityMismatch:
		return "arity mismatch"
	case Internal:
		return "internal invariant violation"
	}
	return "invalid"
}

// Fatal returns true if errors of the category stop the translation
// of the enclosing function (or module for internal errors).
func (c Category) Fatal() bool {
	switch c {
	case Unsupported, ArityMismatch, Internal:
		return true
	}
	return false
}

// Error is a categorised error attached to a source span.
type Error struct {
	Cat       Category
	Span      Span
	Construct string
	Err       error
}

var _ error = (*Error)(nil)

func newError(cat Category, span Span, construct string, err error) *Error {
	return &Error{Cat: cat, Span: span, Construct: construct, Err: err}
}

// Unsupportedf returns an error for a construct that cannot be lowered.
func Unsupportedf(span Span, construct string, format string, a ...any) error {
	return newError(Unsupported, span, construct, errors.Errorf(format, a...))
}

// AnnotationParsef returns an error for an annotation that could not be parsed.
func AnnotationParsef(span Span, annotation string, format string, a ...any) error {
	return newError(AnnotationParse, span, annotation, errors.Errorf(format, a...))
}

// Ambiguousf returns an error for an expression whose type cannot be chosen.
func Ambiguousf(span Span, construct string, format string, a ...any) error {
	return newError(AmbiguousInference, span, construct, errors.Errorf(format, a...))
}

// Arityf returns an error for a construct receiving the wrong number of values.
func Arityf(span Span, construct string, format string, a ...any) error {
	return newError(ArityMismatch, span, construct, errors.Errorf(format, a...))
}

// Internalf returns an error for a broken translator invariant.
func Internalf(span Span, format string, a ...any) error {
	return newError(Internal, span, "", errors.Errorf(format, a...))
}

// AsInternal wraps an error into an internal error.
func AsInternal(err error) error {
	var fErr *Error
	if errors.As(err, &fErr) && fErr.Cat == Internal {
		return err
	}
	return newError(Internal, Span{}, "", errors.WithStack(err))
}

// Error returns the error message prefixed by the span and the category.
func (err *Error) Error() string {
	msg := err.Err.Error()
	if err.Construct != "" {
		msg = err.Construct + ": " + msg
	}
	if err.Cat == Internal {
		msg = "pyrs internal error. This is a bug in pyrs. Please report it. Error:\n" + msg
	}
	return fmt.Sprintf("%s: %s: %s", err.Span, err.Cat, msg)
}

// Unwrap returns the underlying error.
func (err *Error) Unwrap() error {
	return err.Err
}

// Format the error. The verbose form (%+v) includes where the error has been generated.
func (err *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'w', 'v':
		if s.Flag('+') {
			fmt.Fprintf(s, "%s", err.Error())
			var withSt interface {
				StackTrace() errors.StackTrace
			}
			if errors.As(err.Err, &withSt) {
				fmt.Fprintf(s, "\nError generated at:%+v\n", withSt.StackTrace())
			}
			return
		}
		io.WriteString(s, err.Error())
	case 's':
		io.WriteString(s, err.Error())
	case 'q':
		fmt.Fprintf(s, "%q", err.Error())
	}
}

// CategoryOf returns the category of an error, looking through wrapped errors.
func CategoryOf(err error) (Category, bool) {
	var fErr *Error
	if !errors.As(err, &fErr) {
		return 0, false
	}
	return fErr.Cat, true
}

// IsFatal returns true if the error stops the translation.
// Errors without a category are always fatal.
func IsFatal(err error) bool {
	cat, ok := CategoryOf(err)
	if !ok {
		return err != nil
	}
	return cat.Fatal()
}
