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
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/genctx"
)

// mixed returns true if the expressions have different types which cannot be
// unified without a DynValue.
func (g *Generator) mixed(xs []hir.Expr, joined types.Type) bool {
	if !types.IsDV(joined) {
		return false
	}
	for _, x := range xs {
		if !g.isDyn(x) {
			return true
		}
	}
	return false
}

// elements generates the elements of a collection literal converted to their joined type.
// Elements of different types are lifted into DynValues.
func (g *Generator) elements(xs []hir.Expr, joined types.Type) ([]rast.Expr, error) {
	lift := g.mixed(xs, joined)
	if lift {
		g.trace(xs[0], "value-lift", "elements of different types lifted to "+types.DVName)
	}
	elts := make([]rast.Expr, len(xs))
	for i, x := range xs {
		var err error
		if lift {
			elts[i], err = g.lift(x)
		} else {
			elts[i], err = g.elemValue(x, joined)
		}
		if err != nil {
			return nil, err
		}
	}
	return elts, nil
}

func (g *Generator) listLit(x *hir.ListLit) (rast.Expr, error) {
	if len(x.Elts) == 0 {
		return rast.PC("Vec::new"), nil
	}
	elts, err := g.elements(x.Elts, types.ElemOf(g.typeOf(x)))
	if err != nil {
		return nil, err
	}
	return rast.Vec(elts...), nil
}

func (g *Generator) setLit(xs []hir.Expr) (rast.Expr, error) {
	set := g.use(hashSetPath)
	if len(xs) == 0 {
		return rast.PC(set + "::new"), nil
	}
	var joined types.Type
	for _, x := range xs {
		joined = types.Join(joined, g.typeOf(x))
	}
	elts, err := g.elements(xs, joined)
	if err != nil {
		return nil, err
	}
	return rast.PC(set+"::from", &rast.Array{Elts: elts}), nil
}

func (g *Generator) tupleLit(x *hir.TupleLit) (rast.Expr, error) {
	elts, err := g.values(x.Elts)
	if err != nil {
		return nil, err
	}
	return &rast.Tuple{Elts: elts}, nil
}

// dictLit generates a map. Values of different types are stored as DynValues,
// or as a serde_json object if JSON values are preferred.
func (g *Generator) dictLit(x *hir.DictLit) (rast.Expr, error) {
	hashMap := g.use(hashMapPath)
	if len(x.Keys) == 0 {
		return rast.PC(hashMap + "::new"), nil
	}
	dict := g.typeOf(x).(*types.Dict)
	if g.mixed(x.Values, dict.Value) && !g.ctx.Flag(genctx.NasaMode) && g.ctx.Options().PreferJSON {
		return g.jsonObject(x)
	}
	keys, err := g.elements(x.Keys, dict.Key)
	if err != nil {
		return nil, err
	}
	values, err := g.elements(x.Values, dict.Value)
	if err != nil {
		return nil, err
	}
	pairs := make([]rast.Expr, len(keys))
	for i := range keys {
		pairs[i] = &rast.Tuple{Elts: []rast.Expr{keys[i], values[i]}}
	}
	return rast.PC(hashMap+"::from", &rast.Array{Elts: pairs}), nil
}

// jsonObject generates a serde_json object from a dictionary literal with string keys.
func (g *Generator) jsonObject(x *hir.DictLit) (rast.Expr, error) {
	g.ctx.Require("serde_json")
	g.ctx.SetFlag(genctx.NeedsSerdeJSON)
	g.trace(x, "json-object", "dictionary with values of different types generated as a serde_json object")
	pairs := make([]rast.Expr, len(x.Keys))
	for i := range x.Keys {
		k, err := g.Coerce(x.Keys[i], types.StringType())
		if err != nil {
			return nil, err
		}
		v, err := g.Value(x.Values[i])
		if err != nil {
			return nil, err
		}
		pairs[i] = &rast.Tuple{Elts: []rast.Expr{k, rast.PC("serde_json::Value::from", v)}}
	}
	object := rast.PC("serde_json::Map::from_iter", &rast.Array{Elts: pairs})
	return rast.PC("serde_json::Value::Object", object), nil
}
