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

package fmterr_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/gx-org/pyrs/build/fmterr"
)

func TestErrorMessage(t *testing.T) {
	span := fmterr.Span{File: "mod.py", Line: 3, Col: 7}
	tests := []struct {
		err   error
		want  string
		cat   fmterr.Category
		fatal bool
	}{
		{
			err:   fmterr.Unsupportedf(span, "yield from", "no lowering"),
			want:  "mod.py:3:7: unsupported construct: yield from: no lowering",
			cat:   fmterr.Unsupported,
			fatal: true,
		},
		{
			err:   fmterr.AnnotationParsef(span, "List[", "unbalanced brackets"),
			want:  "mod.py:3:7: type annotation parse failure: List[: unbalanced brackets",
			cat:   fmterr.AnnotationParse,
			fatal: false,
		},
		{
			err:   fmterr.Arityf(fmterr.Span{}, "tuple unpacking", "got %d values but want %d", 3, 2),
			want:  "<source>: arity mismatch: tuple unpacking: got 3 values but want 2",
			cat:   fmterr.ArityMismatch,
			fatal: true,
		},
		{
			err:   fmterr.Arityf(span, "method call", "%s() takes %d arguments, got %d", "strip", 1, 2),
			want:  "mod.py:3:7: arity mismatch: method call: strip() takes 1 arguments, got 2",
			cat:   fmterr.ArityMismatch,
			fatal: true,
		},
		{
			err:   fmterr.Ambiguousf(span, "x", "no type"),
			want:  "mod.py:3:7: ambiguous inference: x: no type",
			cat:   fmterr.AmbiguousInference,
			fatal: false,
		},
	}
	for i, test := range tests {
		if got := test.err.Error(); got != test.want {
			t.Errorf("test %d: got:\n%s\nwant:\n%s\ndiff:\n%s", i, got, test.want, cmp.Diff(got, test.want))
		}
		wrapped := errors.Wrap(test.err, "context")
		cat, ok := fmterr.CategoryOf(wrapped)
		if !ok || cat != test.cat {
			t.Errorf("test %d: got category %v (%v) but want %v", i, cat, ok, test.cat)
		}
		if got := fmterr.IsFatal(wrapped); got != test.fatal {
			t.Errorf("test %d: got fatal=%v but want %v", i, got, test.fatal)
		}
	}
}

func TestInternalStackTrace(t *testing.T) {
	err := fmterr.AsInternal(errors.New("broken"))
	verbose := fmt.Sprintf("%+v", err)
	if !strings.Contains(verbose, "Error generated at:") {
		t.Errorf("verbose error has no stack trace:\n%s", verbose)
	}
	if !strings.Contains(err.Error(), "This is a bug in pyrs") {
		t.Errorf("internal error does not ask for a bug report: %s", err.Error())
	}
	if again := fmterr.AsInternal(err); again != err {
		t.Errorf("internal error wrapped twice")
	}
}

func TestAppender(t *testing.T) {
	app := fmterr.NewAppender(false)
	if !app.Empty() {
		t.Fatalf("new appender is not empty")
	}
	app.Push(func(err error) error {
		return errors.Wrap(err, "in function f")
	})
	if err := app.Warn(fmterr.Ambiguousf(fmterr.Span{}, "x", "forcing DynValue")); err != nil {
		t.Fatalf("non strict appender returned an error: %v", err)
	}
	if got := len(app.Warnings()); got != 0 {
		t.Errorf("got %d warnings before pop but want 0", got)
	}
	app.Pop()
	warnings := app.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings but want 1", len(warnings))
	}
	if got := warnings[0].Error(); !strings.HasPrefix(got, "in function f: ") {
		t.Errorf("warning %q has not been transformed by its context", got)
	}
}

func TestStrictAppender(t *testing.T) {
	app := fmterr.NewAppender(true)
	err := app.Warn(fmterr.AnnotationParsef(fmterr.Span{}, "Dict[", "unbalanced brackets"))
	if err == nil {
		t.Fatalf("strict appender did not return an error")
	}
	if !fmterr.IsFatal(err) {
		t.Errorf("error %v returned by a strict appender is not fatal", err)
	}
	if !app.Empty() {
		t.Errorf("strict appender recorded a warning")
	}
}

func TestErrors(t *testing.T) {
	errs := &fmterr.Errors{}
	if errs.ToError() != nil {
		t.Errorf("empty set converted to a non nil error")
	}
	errs.Append(errors.New("a"))
	errs.Append(nil)
	errs.Append(errors.New("b"))
	if got, want := errs.Error(), "a\nb"; got != want {
		t.Errorf("got %q but want %q", got, want)
	}
	filtered := errs.Transform(func(err error) error {
		if err.Error() == "a" {
			return nil
		}
		return err
	})
	if got := len(filtered.Errors()); got != 1 {
		t.Errorf("got %d errors after transform but want 1", got)
	}
}
