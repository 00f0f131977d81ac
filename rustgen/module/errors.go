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

package module

import (
	"strings"
	"text/template"

	"github.com/gx-org/pyrs/base/tmpl"
	"github.com/gx-org/pyrs/build/rast"
)

var errorTypeTmpl = template.Must(template.New("errorTypeTMPL").Parse(`
#[derive(Debug, Clone)]
pub struct {{.}} {
    message: String,
}

impl {{.}} {
    pub fn new(message: impl Into<String>) -> Self {
        {{.}} { message: message.into() }
    }
}

impl std::fmt::Display for {{.}} {
    fn fmt(&self, f: &mut std::fmt::Formatter<'_>) -> std::fmt::Result {
        write!(f, "{{.}}: {}", self.message)
    }
}

impl std::error::Error for {{.}} {}
`))

// errorTypes returns the definitions of the error types raised or caught by a module.
// It returns nil if the module does not need any.
func errorTypes(names []string) (rast.Item, error) {
	if len(names) == 0 {
		return nil, nil
	}
	src, err := tmpl.Iterate(names, errorTypeTmpl)
	if err != nil {
		return nil, err
	}
	return &rast.Raw{Name: "errors", Text: strings.TrimLeft(src, "\n")}, nil
}
