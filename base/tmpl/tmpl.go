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

// Package tmpl provides helper functions for text templates generating source code.
package tmpl

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// Execute runs a template and returns the generated text.
func Execute(tmpl *template.Template, data any) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Errorf("cannot execute template %s: %v", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// Iterate runs a template over a slice of objects.
// The generated chunks are separated by a new line.
func Iterate[T any](objs []T, tmpl *template.Template) (string, error) {
	chunks := make([]string, 0, len(objs))
	for _, obj := range objs {
		s, err := Execute(tmpl, obj)
		if err != nil {
			return "", errors.Wrapf(err, "cannot generate code for %#v", obj)
		}
		chunks = append(chunks, strings.TrimRight(s, "\n"))
	}
	return strings.Join(chunks, "\n"), nil
}
