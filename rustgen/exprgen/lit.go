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
	"math"
	"strings"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
)

// lit generates a literal. An owned string literal allocates a String.
func (g *Generator) lit(x *hir.Lit, owned bool) (rast.Expr, error) {
	switch x.Kind {
	case hir.LitInt:
		v := x.Int()
		if v == nil {
			return nil, fmterr.Unsupportedf(x.Span(), "integer literal", "invalid integer literal %q", x.Text)
		}
		if !v.IsInt64() {
			return nil, fmterr.Unsupportedf(x.Span(), "integer literal", "integer literal %s overflows i64", v.String())
		}
		n := v.Int64()
		lit := rast.Int(v.String())
		if n > math.MaxInt32 || n < math.MinInt32 {
			lit.Suffix = "i64"
		}
		return lit, nil
	case hir.LitFloat:
		text := strings.ReplaceAll(x.Text, "_", "")
		if !strings.ContainsAny(text, ".eE") {
			text += ".0"
		}
		if strings.HasPrefix(text, ".") {
			text = "0" + text
		}
		return rast.Float(text), nil
	case hir.LitStr:
		if owned {
			return rast.M(rast.Str(x.Text), "to_string"), nil
		}
		return rast.Str(x.Text), nil
	case hir.LitBool:
		return rast.Bool(x.BoolValue()), nil
	case hir.LitNone:
		return rast.Id("None"), nil
	}
	return nil, fmterr.Internalf(x.Span(), "unknown literal kind %d", x.Kind)
}

// floatLit converts an integer literal into a float literal.
func floatLit(x hir.Expr) (rast.Expr, bool) {
	v, ok := isIntLit(x)
	if !ok {
		return nil, false
	}
	return rast.Float(strconvInt(v) + ".0"), true
}

// intLitSuffixed returns an integer literal with an explicit type suffix.
// Method calls on unsuffixed literals are ambiguous in Rust.
func intLitSuffixed(v int64, suffix string) rast.Expr {
	if v < 0 {
		return &rast.Unary{Op: "-", X: &rast.Lit{Kind: rast.IntLit, Value: strconvInt(-v), Suffix: suffix}}
	}
	return &rast.Lit{Kind: rast.IntLit, Value: strconvInt(v), Suffix: suffix}
}
