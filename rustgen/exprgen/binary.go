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
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/infer"
)

func (g *Generator) binary(x *hir.Binary) (rast.Expr, error) {
	switch {
	case x.Op.IsLogical():
		return g.logical(x)
	case x.Op == hir.In || x.Op == hir.NotIn:
		return g.membership(x)
	case x.Op == hir.Is || x.Op == hir.IsNot:
		return g.identity(x)
	case (x.Op == hir.Eq || x.Op == hir.NotEq) && (isNoneLit(x.X) || isNoneLit(x.Y)):
		return g.identity(x)
	case x.Op.IsComparison():
		return g.comparison(x)
	}
	if infer.IsNumpyValue(g.ctx, x) {
		return g.numpyBinary(x)
	}
	left, right := g.typeOf(x.X), g.typeOf(x.Y)
	switch {
	case g.isDyn(x.X):
		return g.dynBinary(x)
	case g.isDyn(x.Y) && !types.IsNumeric(left):
		return g.dynBinary(x)
	case g.isDyn(x.Y):
		return g.primDynBinary(x)
	}
	switch x.Op {
	case hir.FloorDiv:
		return g.floorDiv(x)
	case hir.Pow:
		return g.pow(x)
	case hir.Div:
		if types.IsNumeric(left) && types.IsNumeric(right) {
			return g.trueDiv(x)
		}
	case hir.Mod:
		if left.Kind() == types.StringKind {
			return g.percentFormat(x)
		}
		if types.IsNumeric(left) && types.IsNumeric(right) {
			return g.floorMod(x)
		}
	case hir.Add:
		if infer.IsStringExpr(g.ctx, x.X) && infer.IsStringExpr(g.ctx, x.Y) {
			return g.concat(x)
		}
		if left.Kind() == types.ListKind && right.Kind() == types.ListKind {
			return g.listConcat(x)
		}
	case hir.Mul:
		if left.Kind() == types.StringKind || left.Kind() == types.ListKind {
			return g.repeat(x.X, x.Y)
		}
		if right.Kind() == types.StringKind || right.Kind() == types.ListKind {
			return g.repeat(x.Y, x.X)
		}
	}
	if left.Kind() == types.SetKind {
		return g.setOp(x)
	}
	if types.IsNumeric(left) && types.IsNumeric(right) {
		return g.arith(x)
	}
	if left.Kind() == types.BoolKind || right.Kind() == types.BoolKind {
		if x.Op.IsBitwise() {
			return g.arith(x)
		}
	}
	return g.protocol(x)
}

// numOperand generates an operand of a numeric operation, widened to f64 if float is true.
// An arithmetic operand containing a call is bound to an annotated temporary:
// Rust cannot infer the type of intermediate results of such chains.
func (g *Generator) numOperand(x hir.Expr, float bool) (rast.Expr, error) {
	typ := g.typeOf(x)
	if float && typ.Kind() == types.IntKind {
		if f, ok := floatLit(x); ok {
			return f, nil
		}
	}
	e, err := g.Expr(x)
	if err != nil {
		return nil, err
	}
	if float && typ.Kind() != types.FloatKind {
		e = cast(e, "f64")
	}
	if bin, ok := x.(*hir.Binary); ok && bin.Op.IsArith() && containsCall(bin) {
		rtyp := "i32"
		if float || typ.Kind() == types.FloatKind {
			rtyp = "f64"
		}
		name := g.ctx.TempName()
		g.trace(x, "chained-arith", "bind intermediate result to "+name+": "+rtyp)
		return rast.Blk(rast.Id(name), &rast.Let{Pattern: rast.Id(name), Type: rast.Named(rtyp), Value: e}), nil
	}
	return e, nil
}

func containsCall(x hir.Expr) bool {
	found := false
	hir.Inspect(x, func(n hir.Node) bool {
		switch n.(type) {
		case *hir.Call, *hir.MethodCall:
			found = true
		case *hir.Lambda:
			return false
		}
		return !found
	})
	return found
}

func (g *Generator) numOperands(x *hir.Binary, float bool) (rast.Expr, rast.Expr, error) {
	left, err := g.numOperand(x.X, float)
	if err != nil {
		return nil, nil, err
	}
	right, err := g.numOperand(x.Y, float)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func (g *Generator) isFloatOp(x *hir.Binary) bool {
	return g.typeOf(x.X).Kind() == types.FloatKind || g.typeOf(x.Y).Kind() == types.FloatKind
}

// arith generates an arithmetic operation on numbers. Integers are widened if the other operand is a float.
func (g *Generator) arith(x *hir.Binary) (rast.Expr, error) {
	op := x.Op.RustOp()
	if op == "" {
		return nil, fmterr.Internalf(x.Span(), "operator %s has no Rust equivalent", x.Op)
	}
	left, right, err := g.numOperands(x, g.isFloatOp(x) && !x.Op.IsBitwise())
	if err != nil {
		return nil, err
	}
	return rast.Bin(op, left, right), nil
}

func (g *Generator) trueDiv(x *hir.Binary) (rast.Expr, error) {
	left, right, err := g.numOperands(x, true)
	if err != nil {
		return nil, err
	}
	return rast.Bin("/", left, right), nil
}

// floorDiv generates a division rounding towards negative infinity.
// Rust integer division truncates towards zero: the quotient is adjusted
// when the operands have different signs and the division is not exact.
func (g *Generator) floorDiv(x *hir.Binary) (rast.Expr, error) {
	if g.isFloatOp(x) {
		left, right, err := g.numOperands(x, true)
		if err != nil {
			return nil, err
		}
		return rast.M(rast.Bin("/", left, right), "floor"), nil
	}
	left, right, err := g.numOperands(x, false)
	if err != nil {
		return nil, err
	}
	divisor, err := infer.FloorDivDivisor(x)
	if err != nil {
		return nil, fmterr.AsInternal(err)
	}
	if d, ok := isIntLit(divisor); ok && d > 0 {
		g.trace(x, "floor-div", "positive literal divisor: euclidean division")
		return rast.M(euclidRecv(x.X, left), "div_euclid", right), nil
	}
	a, b, q := g.ctx.TempName(), g.ctx.TempName(), g.ctx.TempName()
	inexact := rast.Bin("!=", rast.Bin("%", rast.Id(a), rast.Id(b)), rast.Int("0"))
	signs := rast.Bin("!=",
		rast.Bin("<", rast.Id(a), rast.Int("0")),
		rast.Bin("<", rast.Id(b), rast.Int("0")),
	)
	g.trace(x, "floor-div", "adjust truncated quotient")
	return rast.Blk(
		&rast.If{
			Cond: rast.Bin("&&", inexact, signs),
			Then: rast.Blk(rast.Bin("-", rast.Id(q), rast.Int("1"))),
			Else: rast.Blk(rast.Id(q)),
		},
		&rast.Let{Pattern: rast.Id(a), Value: left},
		&rast.Let{Pattern: rast.Id(b), Value: right},
		&rast.Let{Pattern: rast.Id(q), Value: rast.Bin("/", rast.Id(a), rast.Id(b))},
	), nil
}

// euclidRecv returns the receiver of an euclidean division.
// Literals are typed and negative literals are parenthesized: -7.div_euclid(2)
// is -(7.div_euclid(2)) in Rust.
func euclidRecv(x hir.Expr, e rast.Expr) rast.Expr {
	v, ok := isIntLit(x)
	if !ok {
		v, ok = negIntLit(x)
	}
	if ok {
		suffix := "i32"
		if v > math.MaxInt32 || v < math.MinInt32 {
			suffix = "i64"
		}
		return intLitSuffixed(v, suffix)
	}
	if lit, ok := e.(*rast.Lit); ok && strings.HasPrefix(lit.Value, "-") {
		return &rast.Paren{X: lit}
	}
	return e
}

// floorMod generates a modulo with the sign of the divisor.
func (g *Generator) floorMod(x *hir.Binary) (rast.Expr, error) {
	left, right, err := g.numOperands(x, g.isFloatOp(x))
	if err != nil {
		return nil, err
	}
	if d, ok := isIntLit(x.Y); ok && d > 0 && !g.isFloatOp(x) {
		return rast.M(euclidRecv(x.X, left), "rem_euclid", right), nil
	}
	if _, isIdent := right.(*rast.Ident); !isIdent {
		if _, isLit := right.(*rast.Lit); !isLit {
			b := g.ctx.TempName()
			return rast.Blk(
				rast.Bin("%", rast.Bin("+", rast.Bin("%", left, rast.Id(b)), rast.Id(b)), rast.Id(b)),
				&rast.Let{Pattern: rast.Id(b), Value: right},
			), nil
		}
	}
	return rast.Bin("%", rast.Bin("+", rast.Bin("%", left, right), right), right), nil
}

func (g *Generator) pow(x *hir.Binary) (rast.Expr, error) {
	baseType, expType := g.typeOf(x.X), g.typeOf(x.Y)
	if !types.IsNumeric(baseType) || !types.IsNumeric(expType) {
		return g.protocol(x)
	}
	base, err := g.Expr(x.X)
	if err != nil {
		return nil, err
	}
	if v, ok := isIntLit(x.X); ok {
		base = intLitSuffixed(v, "i32")
	}
	if lit, ok := x.X.(*hir.Lit); ok && lit.Kind == hir.LitFloat {
		base = &rast.Lit{Kind: rast.FloatLit, Value: lit.Text, Suffix: "_f64"}
	}
	exp, err := g.Expr(x.Y)
	if err != nil {
		return nil, err
	}
	switch {
	case expType.Kind() == types.FloatKind:
		if baseType.Kind() == types.IntKind {
			base = cast(base, "f64")
		}
		return rast.M(base, "powf", exp), nil
	case baseType.Kind() == types.FloatKind:
		return rast.M(base, "powi", exp), nil
	}
	if v, ok := negIntLit(x.Y); ok {
		g.trace(x, "pow", "negative exponent: float result")
		return rast.M(cast(base, "f64"), "powi", rast.Int(strconvInt(v))), nil
	}
	if _, ok := isIntLit(x.Y); ok {
		return rast.M(base, "pow", exp), nil
	}
	g.trace(x, "pow", "exponent of unknown sign: float result")
	e := rast.Id(g.ctx.UniqueName("exp"))
	return rast.Blk(
		&rast.If{
			Cond: rast.Bin("<", e, rast.Int("0")),
			Then: rast.Blk(rast.M(cast(base, "f64"), "powi", e)),
			Else: rast.Blk(cast(rast.M(base, "pow", cast(e, "u32")), "f64")),
		},
		&rast.Let{Pattern: e, Value: exp},
	), nil
}

// concat generates a string concatenation as a single allocating format.
func (g *Generator) concat(x *hir.Binary) (rast.Expr, error) {
	var parts []hir.Expr
	var flatten func(hir.Expr)
	flatten = func(e hir.Expr) {
		if bin, ok := e.(*hir.Binary); ok && bin.Op == hir.Add && infer.IsStringExpr(g.ctx, bin) {
			flatten(bin.X)
			flatten(bin.Y)
			return
		}
		parts = append(parts, e)
	}
	flatten(x)
	var format strings.Builder
	var args []rast.Expr
	for _, part := range parts {
		if s, ok := isStrLit(part); ok {
			format.WriteString(escapeFormat(s))
			continue
		}
		arg, err := g.Expr(part)
		if err != nil {
			return nil, err
		}
		format.WriteString("{}")
		args = append(args, arg)
	}
	return rast.Format(format.String(), args...), nil
}

func escapeFormat(s string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}

func (g *Generator) listConcat(x *hir.Binary) (rast.Expr, error) {
	left, err := g.Value(x.X)
	if err != nil {
		return nil, err
	}
	right, err := g.Value(x.Y)
	if err != nil {
		return nil, err
	}
	return rast.M(&rast.Array{Elts: []rast.Expr{left, right}}, "concat"), nil
}

// repeat generates the repetition of a string or a list.
func (g *Generator) repeat(seq, n hir.Expr) (rast.Expr, error) {
	var recv rast.Expr
	var err error
	if s, ok := isStrLit(seq); ok {
		recv = rast.Str(s)
	} else if recv, err = g.Expr(seq); err != nil {
		return nil, err
	}
	count, err := g.Expr(n)
	if err != nil {
		return nil, err
	}
	if _, ok := isIntLit(n); !ok {
		count = cast(count, "usize")
	}
	return rast.M(recv, "repeat", count), nil
}

var setMethods = map[hir.BinOp]string{
	hir.Sub:    "difference",
	hir.BitOr:  "union",
	hir.BitAnd: "intersection",
	hir.BitXor: "symmetric_difference",
}

func (g *Generator) setOp(x *hir.Binary) (rast.Expr, error) {
	method, ok := setMethods[x.Op]
	if !ok {
		return nil, fmterr.Unsupportedf(x.Span(), "set operation", "operator %s not supported on sets", x.Op)
	}
	left, err := g.Expr(x.X)
	if err != nil {
		return nil, err
	}
	right, err := g.Expr(x.Y)
	if err != nil {
		return nil, err
	}
	combined := rast.M(rast.M(left, method, &rast.Ref{X: right}), "cloned")
	return collect(combined, rast.Named(g.use(hashSetPath), &rast.TypeInfer{})), nil
}

// dynBinary generates an operation with a dynamic value on the left.
// The facade implements the operators between two DynValues and between a DynValue and a primitive.
func (g *Generator) dynBinary(x *hir.Binary) (rast.Expr, error) {
	g.facade()
	left, err := g.lift(x.X)
	if err != nil {
		return nil, err
	}
	rightTyp := g.typeOf(x.Y)
	dynRight := func() (rast.Expr, error) {
		if types.IsNumeric(rightTyp) && !isLitExpr(x.Y) {
			return g.Expr(x.Y)
		}
		return g.lift(x.Y)
	}
	g.trace(x, "dv-arith", "operator "+x.Op.String()+" on a dynamic value")
	switch x.Op {
	case hir.Div:
		right, err := g.lift(x.Y)
		if err != nil {
			return nil, err
		}
		return rast.M(left, "py_div", right), nil
	case hir.FloorDiv:
		right, err := g.asF64(x.Y)
		if err != nil {
			return nil, err
		}
		quotient := rast.M(rast.Bin("/", rast.M(left, "to_f64"), right), "floor")
		return rast.PC(types.DVName+"::Int", cast(quotient, "i64")), nil
	case hir.Pow:
		right, err := g.asF64(x.Y)
		if err != nil {
			return nil, err
		}
		return rast.PC(types.DVName+"::Float", rast.M(rast.M(left, "to_f64"), "powf", right)), nil
	case hir.BitAnd, hir.BitOr, hir.BitXor:
		right, err := g.Expr(x.Y)
		if err != nil {
			return nil, err
		}
		if g.isDyn(x.Y) {
			right = rast.M(right, "to_i64")
		} else if _, ok := isIntLit(x.Y); !ok {
			right = cast(right, "i64")
		}
		return rast.Bin(x.Op.RustOp(), left, right), nil
	case hir.LShift, hir.RShift:
		return nil, fmterr.Unsupportedf(x.Span(), "shift", "shift of a dynamic value")
	}
	right, err := dynRight()
	if err != nil {
		return nil, err
	}
	return rast.Bin(x.Op.RustOp(), left, right), nil
}

// asF64 generates an operand converted to a f64.
func (g *Generator) asF64(x hir.Expr) (rast.Expr, error) {
	if f, ok := floatLit(x); ok {
		return f, nil
	}
	e, err := g.Expr(x)
	if err != nil {
		return nil, err
	}
	switch {
	case g.isDyn(x):
		return rast.M(e, "to_f64"), nil
	case g.typeOf(x).Kind() == types.FloatKind:
		return e, nil
	}
	return cast(e, "f64"), nil
}

func isLitExpr(x hir.Expr) bool {
	_, ok := x.(*hir.Lit)
	return ok
}

// primDynBinary generates an operation with a primitive on the left and a dynamic value on the right.
// The result is the primitive type.
func (g *Generator) primDynBinary(x *hir.Binary) (rast.Expr, error) {
	g.facade()
	op := x.Op.RustOp()
	if op == "" || x.Op.IsBitwise() {
		return g.protocol(x)
	}
	left, err := g.Expr(x.X)
	if err != nil {
		return nil, err
	}
	if v, ok := isIntLit(x.X); ok {
		left = intLitSuffixed(v, "i32")
	}
	right, err := g.Expr(x.Y)
	if err != nil {
		return nil, err
	}
	return rast.Bin(op, left, right), nil
}

var pyMethods = map[hir.BinOp]string{
	hir.Add: "py_add",
	hir.Sub: "py_sub",
	hir.Mul: "py_mul",
	hir.Div: "py_div",
	hir.Mod: "py_mod",
}

// protocol generates an operation between values of different or unknown types
// through the arithmetic protocol traits of the facade.
func (g *Generator) protocol(x *hir.Binary) (rast.Expr, error) {
	method, ok := pyMethods[x.Op]
	if !ok {
		if op := x.Op.RustOp(); op != "" {
			left, right, err := g.numOperands(x, false)
			if err != nil {
				return nil, err
			}
			return rast.Bin(op, left, right), nil
		}
		return nil, fmterr.Ambiguousf(x.Span(), "binary operation", "cannot infer the operand types of %s", x.Op)
	}
	g.facade()
	g.trace(x, "arith-protocol", "operator "+x.Op.String()+" between "+g.typeOf(x.X).String()+" and "+g.typeOf(x.Y).String())
	left, err := g.Value(x.X)
	if err != nil {
		return nil, err
	}
	if v, ok := isIntLit(x.X); ok {
		left = intLitSuffixed(v, "i32")
	}
	right, err := g.Value(x.Y)
	if err != nil {
		return nil, err
	}
	if s, ok := isStrLit(x.Y); ok {
		right = rast.Str(s)
	}
	return rast.M(left, method, right), nil
}
