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

package exprgen

import (
	"slices"
	"strconv"

	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
)

// rustKeywords are identifiers which cannot be used as variable names without the r# prefix.
var rustKeywords = []string{
	"abstract", "as", "async", "await", "become", "box", "const", "crate", "do", "dyn",
	"enum", "extern", "final", "fn", "impl", "let", "loop", "macro", "match", "mod",
	"move", "mut", "override", "priv", "pub", "ref", "static", "struct", "super",
	"trait", "type", "typeof", "unsafe", "unsized", "use", "virtual", "where", "yield",
}

// Ident returns a Rust identifier for a source name.
// Names which are Rust keywords are written as raw identifiers.
func Ident(name string) string {
	if slices.Contains(rustKeywords, name) {
		return "r#" + name
	}
	return name
}

func (g *Generator) variable(x *hir.Var) rast.Expr {
	id := rast.Id(Ident(x.Name))
	if g.derefs[x.Name] > 0 {
		return &rast.Deref{X: id}
	}
	return id
}

func strconvInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
