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
	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/infer"
)

// moduleConstants maps the constants of the standard modules to Rust expressions.
var moduleConstants = map[string]func(g *Generator) rast.Expr{
	"math.pi":  func(*Generator) rast.Expr { return rast.P("std", "f64", "consts", "PI") },
	"math.e":   func(*Generator) rast.Expr { return rast.P("std", "f64", "consts", "E") },
	"math.tau": func(*Generator) rast.Expr { return rast.P("std", "f64", "consts", "TAU") },
	"math.inf": func(*Generator) rast.Expr { return rast.P("f64", "INFINITY") },
	"math.nan": func(*Generator) rast.Expr { return rast.P("f64", "NAN") },
	"sys.argv": func(*Generator) rast.Expr {
		return collect(rast.PC("std::env::args"), rast.Named("Vec", rast.Named("String")))
	},
	"sys.maxsize":  func(*Generator) rast.Expr { return rast.P("i32", "MAX") },
	"sys.platform": func(*Generator) rast.Expr { return rast.M(rast.P("std", "env", "consts", "OS"), "to_string") },
	"sys.stdout":   func(*Generator) rast.Expr { return rast.PC("std::io::stdout") },
	"sys.stderr":   func(*Generator) rast.Expr { return rast.PC("std::io::stderr") },
	"sys.stdin":    func(*Generator) rast.Expr { return rast.PC("std::io::stdin") },
	"os.sep":       func(*Generator) rast.Expr { return rast.M(rast.P("std", "path", "MAIN_SEPARATOR"), "to_string") },
	"os.linesep":   func(*Generator) rast.Expr { return rast.M(rast.Str("\n"), "to_string") },
	"os.environ": func(g *Generator) rast.Expr {
		hashMap := g.use(hashMapPath)
		return collect(rast.PC("std::env::vars"), rast.Named(hashMap, rast.Named("String"), rast.Named("String")))
	},
}

// attr generates an attribute: a field of an instance or a constant of a module.
func (g *Generator) attr(x *hir.Attr) (rast.Expr, error) {
	if mod, ok := infer.ModulePath(g.ctx, x.X); ok {
		path := mod + "." + x.Name
		if c, ok := moduleConstants[path]; ok {
			return c(g), nil
		}
		return nil, fmterr.Unsupportedf(x.Span(), "module attribute", "%s not supported", path)
	}
	if _, ok := g.classOf(x.X); ok {
		recv, err := g.Expr(x.X)
		if err != nil {
			return nil, err
		}
		return &rast.Field{X: recv, Name: Ident(x.Name)}, nil
	}
	if g.isDyn(x.X) {
		g.facade()
		g.trace(x, "dv-attr", "attribute "+x.Name+" read as a key of a dynamic value")
		recv, err := g.Expr(x.X)
		if err != nil {
			return nil, err
		}
		return rast.M(&rast.Index{X: recv, Index: rast.Str(x.Name)}, "clone"), nil
	}
	recv, err := g.Expr(x.X)
	if err != nil {
		return nil, err
	}
	if custom, ok := g.typeOf(x.X).(*types.Custom); !ok || !g.ctx.IsClass(custom.Name) {
		g.trace(x, "unresolved-attr", "field "+x.Name+" of a value of type "+g.typeOf(x.X).String())
	}
	return &rast.Field{X: recv, Name: Ident(x.Name)}, nil
}
