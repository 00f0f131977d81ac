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

// dictOf returns the type of a dictionary, with unknown key and value types if x is not known to be one.
func (g *Generator) dictOf(x hir.Expr) *types.Dict {
	if d, ok := g.typeOf(x).(*types.Dict); ok {
		return d
	}
	return types.DictOf(types.UnknownType(), types.UnknownType())
}

// StoreIndex generates the assignment of a value to an element of a container.
func (g *Generator) StoreIndex(t *hir.IndexTarget, value hir.Expr) (rast.Stmt, error) {
	recv, err := g.mutRecv(t.X)
	if err != nil {
		return nil, err
	}
	switch {
	case g.isDyn(t.X):
		key, err := g.lift(t.Index)
		if err != nil {
			return nil, err
		}
		v, err := g.lift(value)
		if err != nil {
			return nil, err
		}
		return rast.Semi(rast.M(recv, "set_item", key, v)), nil
	case infer.IsDictExpr(g.ctx, t.X):
		dict := g.dictOf(t.X)
		key, err := g.elemValue(t.Index, dict.Key)
		if err != nil {
			return nil, err
		}
		v, err := g.dictDefault(value, dict.Value)
		if err != nil {
			return nil, err
		}
		return rast.Semi(rast.M(recv, "insert", key, v)), nil
	case g.typeOf(t.X).Kind() == types.ListKind || infer.IsListExpr(g.ctx, t.X) || infer.IsNumpyValue(g.ctx, t.X):
		i, err := g.bindIndex(recv, t.Index)
		if err != nil {
			return nil, err
		}
		v, err := g.elemValue(value, types.ElemOf(g.typeOf(t.X)))
		if err != nil {
			return nil, err
		}
		return &rast.Assign{Lhs: &rast.Index{X: recv, Index: i}, Op: "=", Rhs: v}, nil
	case g.typeOf(t.X).Kind() == types.TupleKind:
		return nil, fmterr.Unsupportedf(t.Span(), "IndexTarget", "tuples are immutable")
	case infer.IsStringExpr(g.ctx, t.X):
		return nil, fmterr.Unsupportedf(t.Span(), "IndexTarget", "strings are immutable")
	}
	return nil, fmterr.Unsupportedf(t.Span(), "IndexTarget", "assignment to an element of a value of type %s", g.typeOf(t.X))
}

// zeroOf returns the value inserted in a dictionary before an in-place update of a missing entry.
func (g *Generator) zeroOf(typ types.Type) rast.Expr {
	switch {
	case types.IsDV(typ) && g.wantsDyn(typ):
		g.facade()
		return rast.PC(types.DVName+"::Int", rast.Int("0"))
	case typ.Kind() == types.FloatKind:
		return rast.Float("0.0")
	case typ.Kind() == types.StringKind:
		return rast.PC("String::new")
	case typ.Kind() == types.ListKind:
		return rast.PC("Vec::new")
	}
	return rast.Int("0")
}

// UpdateIndex generates the in-place update of an element of a container: X[Index] op= delta.
// It returns false if the element cannot be updated in place.
func (g *Generator) UpdateIndex(t *hir.IndexTarget, op hir.BinOp, delta hir.Expr) (rast.Stmt, bool, error) {
	if g.isDyn(t.X) || !op.IsArith() || op == hir.FloorDiv || op == hir.Pow || op == hir.Mod {
		return nil, false, nil
	}
	switch {
	case infer.IsDictExpr(g.ctx, t.X):
		dict := g.dictOf(t.X)
		if types.Equal(dict.Value, infer.JSONType) {
			return nil, false, nil
		}
		recv, err := g.mutRecv(t.X)
		if err != nil {
			return nil, true, err
		}
		key, err := g.elemValue(t.Index, dict.Key)
		if err != nil {
			return nil, true, err
		}
		var d rast.Expr
		if dict.Value.Kind() == types.StringKind && op == hir.Add {
			d, err = g.strRef(delta)
		} else {
			d, err = g.elemValue(delta, dict.Value)
		}
		if err != nil {
			return nil, true, err
		}
		g.trace(t, "dict-entry-update", "missing entry initialised before the update")
		entry := rast.M(rast.M(recv, "entry", key), "or_insert", g.zeroOf(dict.Value))
		return &rast.Assign{Lhs: &rast.Deref{X: entry}, Op: op.RustOp() + "=", Rhs: d}, true, nil
	case g.typeOf(t.X).Kind() == types.ListKind:
		elem := types.ElemOf(g.typeOf(t.X))
		if !types.IsNumeric(elem) {
			return nil, false, nil
		}
		recv, err := g.mutRecv(t.X)
		if err != nil {
			return nil, true, err
		}
		i, err := g.bindIndex(recv, t.Index)
		if err != nil {
			return nil, true, err
		}
		d, err := g.Coerce(delta, elem)
		if err != nil {
			return nil, true, err
		}
		return &rast.Assign{Lhs: &rast.Index{X: recv, Index: i}, Op: op.RustOp() + "=", Rhs: d}, true, nil
	}
	return nil, false, nil
}

// StoreAttr generates the assignment of a value to an attribute of an object.
func (g *Generator) StoreAttr(t *hir.AttrTarget, value hir.Expr) (rast.Stmt, error) {
	recv, err := g.mutRecv(t.X)
	if err != nil {
		return nil, err
	}
	if g.isDyn(t.X) {
		v, err := g.lift(value)
		if err != nil {
			return nil, err
		}
		g.trace(t, "dyn-attr", "attribute stored as an entry of a dynamic value")
		return rast.Semi(rast.M(recv, "set_item", rast.Str(t.Name), v)), nil
	}
	var v rast.Expr
	cls, ok := g.classOf(t.X)
	if !ok {
		return nil, fmterr.Unsupportedf(t.Span(), "AttrTarget", "assignment to attribute %s of a value of type %s", t.Name, g.typeOf(t.X))
	}
	if typ, ok := cls.Fields.Load(t.Name); ok {
		v, err = g.Coerce(value, typ)
	} else {
		g.trace(t, "unknown-field", t.Name+" is not a field of "+cls.Name)
		v, err = g.Value(value)
	}
	if err != nil {
		return nil, err
	}
	return &rast.Assign{Lhs: &rast.Field{X: recv, Name: Ident(t.Name)}, Op: "=", Rhs: v}, nil
}
