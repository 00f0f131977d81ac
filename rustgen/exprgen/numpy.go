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
	"github.com/gx-org/pyrs/build/kind"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/rustgen/infer"
)

// Numeric arrays are lowered to Vec<f64> unless a dtype is given.
var defaultKind = kind.Float64

func arrayType(k kind.Kind) rast.Type {
	return rast.Named("Vec", rast.Named(k.RustElem()))
}

// dtypeKind returns the element kind given by the dtype keyword argument of a numpy call.
func dtypeKind(kwargs []*hir.Keyword) kind.Kind {
	dtype := hir.Kwarg(kwargs, "dtype")
	var name string
	switch dT := dtype.(type) {
	case *hir.Var:
		name = dT.Name
	case *hir.Attr:
		name = dT.Name
	case *hir.Lit:
		name = dT.Text
	default:
		return defaultKind
	}
	if k := kind.FromNumpy(name); k != kind.Invalid && k != kind.Bool {
		return k
	}
	return defaultKind
}

// isNumpyOperand returns true if an expression is a numeric array, tracing the name heuristic.
func (g *Generator) isNumpyOperand(x hir.Expr) bool {
	if !infer.IsNumpyValue(g.ctx, x) {
		return false
	}
	if name, ok := varName(x); ok && !g.ctx.IsNumpyVar(name) && infer.NumpyNameHeuristic(g.ctx, name) {
		g.trace(x, "numpy-heuristic", name+" is assumed to be a numeric array")
	}
	return true
}

// scalarF64 generates a scalar operand of an element-wise operation.
func (g *Generator) scalarF64(x hir.Expr) (rast.Expr, error) {
	return g.asF64(x)
}

// elementwise maps a function over the elements of an array.
func (g *Generator) elementwise(arr rast.Expr, f func(elt rast.Expr) rast.Expr) rast.Expr {
	v := rast.Id(g.ctx.UniqueName("v"))
	mapped := rast.M(rast.M(arr, "iter"), "map", closure(f(v), v))
	return collect(mapped, arrayType(defaultKind))
}

func (g *Generator) numpyBinary(x *hir.Binary) (rast.Expr, error) {
	op := x.Op.RustOp()
	switch x.Op {
	case hir.Pow, hir.FloorDiv:
	default:
		if op == "" || x.Op.IsBitwise() {
			return nil, fmterr.Unsupportedf(x.Span(), "array operation", "operator %s not supported on arrays", x.Op)
		}
	}
	apply := func(a, b rast.Expr) rast.Expr {
		switch x.Op {
		case hir.Pow:
			return rast.M(a, "powf", b)
		case hir.FloorDiv:
			return rast.M(rast.Bin("/", a, b), "floor")
		}
		return rast.Bin(op, a, b)
	}
	leftArr, rightArr := g.isNumpyOperand(x.X), g.isNumpyOperand(x.Y)
	g.trace(x, "numpy-elementwise", "element-wise "+x.Op.String())
	switch {
	case leftArr && rightArr:
		l, err := g.Expr(x.X)
		if err != nil {
			return nil, err
		}
		r, err := g.Expr(x.Y)
		if err != nil {
			return nil, err
		}
		a, b := rast.Id(g.ctx.UniqueName("a")), rast.Id(g.ctx.UniqueName("b"))
		zipped := rast.M(rast.M(l, "iter"), "zip", rast.M(r, "iter"))
		body := apply(&rast.Deref{X: a}, &rast.Deref{X: b})
		mapped := rast.M(zipped, "map", closure(body, &rast.Tuple{Elts: []rast.Expr{a, b}}))
		return collect(mapped, arrayType(defaultKind)), nil
	case leftArr:
		l, err := g.Expr(x.X)
		if err != nil {
			return nil, err
		}
		s, err := g.scalarF64(x.Y)
		if err != nil {
			return nil, err
		}
		return g.elementwise(l, func(v rast.Expr) rast.Expr { return apply(&rast.Deref{X: v}, s) }), nil
	}
	s, err := g.scalarF64(x.X)
	if err != nil {
		return nil, err
	}
	r, err := g.Expr(x.Y)
	if err != nil {
		return nil, err
	}
	return g.elementwise(r, func(v rast.Expr) rast.Expr { return apply(s, &rast.Deref{X: v}) }), nil
}

var numpyUnary = map[string]string{
	"abs":  "abs",
	"sqrt": "sqrt",
	"sin":  "sin",
	"cos":  "cos",
	"exp":  "exp",
	"log":  "ln",
}

// numpyCall generates a call to a numpy function. It returns false if the function is not a numpy function.
func (g *Generator) numpyCall(x hir.Expr, name string, args []hir.Expr, kwargs []*hir.Keyword) (rast.Expr, bool, error) {
	arg := func(i int) (rast.Expr, error) {
		if i >= len(args) {
			return nil, fmterr.Arityf(x.Span(), "numpy call", "numpy.%s: missing argument %d", name, i+1)
		}
		return g.Expr(args[i])
	}
	size := func(i int) (rast.Expr, error) {
		if i >= len(args) {
			return nil, fmterr.Arityf(x.Span(), "numpy call", "numpy.%s: missing size", name)
		}
		if _, ok := isIntLit(args[i]); ok {
			return g.Expr(args[i])
		}
		e, err := g.Expr(args[i])
		if err != nil {
			return nil, err
		}
		return cast(e, "usize"), nil
	}
	k := dtypeKind(kwargs)
	switch name {
	case "array", "asarray":
		if len(args) == 0 {
			return nil, true, fmterr.Arityf(x.Span(), "numpy call", "numpy.%s: missing argument", name)
		}
		if list, ok := args[0].(*hir.ListLit); ok {
			elts := make([]rast.Expr, len(list.Elts))
			for i, elt := range list.Elts {
				e, err := g.asF64(elt)
				if err != nil {
					return nil, true, err
				}
				if k != kind.Float64 {
					e = cast(e, k.RustElem())
				}
				elts[i] = e
			}
			return rast.Vec(elts...), true, nil
		}
		src, err := g.Expr(args[0])
		if err != nil {
			return nil, true, err
		}
		v := rast.Id(g.ctx.UniqueName("v"))
		converted := rast.M(rast.M(src, "iter"), "map", closure(cast(&rast.Deref{X: v}, k.RustElem()), v))
		return collect(converted, arrayType(k)), true, nil
	case "zeros", "ones", "empty":
		n, err := size(0)
		if err != nil {
			return nil, true, err
		}
		value := k.Zero()
		if name == "ones" {
			value = k.One()
		}
		return rast.VecRepeat(&rast.Lit{Kind: rast.FloatLit, Value: value}, n), true, nil
	case "full":
		n, err := size(0)
		if err != nil {
			return nil, true, err
		}
		if len(args) < 2 {
			return nil, true, fmterr.Arityf(x.Span(), "numpy call", "numpy.full: missing fill value")
		}
		fill, err := g.asF64(args[1])
		if err != nil {
			return nil, true, err
		}
		return rast.VecRepeat(fill, n), true, nil
	case "arange":
		lo, hi := rast.Expr(rast.Int("0")), rast.Expr(nil)
		var err error
		switch len(args) {
		case 1:
			hi, err = arg(0)
		case 2, 3:
			if lo, err = arg(0); err == nil {
				hi, err = arg(1)
			}
		default:
			err = fmterr.Arityf(x.Span(), "numpy call", "numpy.arange takes 1 to 3 arguments, got %d", len(args))
		}
		if err != nil {
			return nil, true, err
		}
		var rng rast.Expr = &rast.Paren{X: &rast.Range{Lo: lo, Hi: hi}}
		if len(args) == 3 {
			step, err := arg(2)
			if err != nil {
				return nil, true, err
			}
			rng = rast.M(rng, "step_by", cast(step, "usize"))
		}
		i := rast.Id(g.ctx.UniqueName("i"))
		return collect(rast.M(rng, "map", closure(cast(i, k.RustElem()), i)), arrayType(k)), true, nil
	case "linspace":
		if len(args) != 3 {
			return nil, true, fmterr.Arityf(x.Span(), "numpy call", "numpy.linspace takes 3 arguments, got %d", len(args))
		}
		lo, err := g.asF64(args[0])
		if err != nil {
			return nil, true, err
		}
		hi, err := g.asF64(args[1])
		if err != nil {
			return nil, true, err
		}
		n, err := arg(2)
		if err != nil {
			return nil, true, err
		}
		i := rast.Id(g.ctx.UniqueName("i"))
		step := rast.Bin("/", rast.Bin("-", hi, lo), cast(rast.Bin("-", n, rast.Int("1")), "f64"))
		body := rast.Bin("+", lo, rast.Bin("*", step, cast(i, "f64")))
		rng := &rast.Paren{X: &rast.Range{Lo: rast.Int("0"), Hi: n}}
		return collect(rast.M(rng, "map", closure(body, i)), arrayType(defaultKind)), true, nil
	case "copy":
		src, err := arg(0)
		if err != nil {
			return nil, true, err
		}
		return rast.M(src, "clone"), true, nil
	case "dot":
		if len(args) != 2 {
			return nil, true, fmterr.Arityf(x.Span(), "numpy call", "numpy.dot takes 2 arguments, got %d", len(args))
		}
		l, err := arg(0)
		if err != nil {
			return nil, true, err
		}
		r, err := arg(1)
		if err != nil {
			return nil, true, err
		}
		a, b := rast.Id(g.ctx.UniqueName("a")), rast.Id(g.ctx.UniqueName("b"))
		zipped := rast.M(rast.M(l, "iter"), "zip", rast.M(r, "iter"))
		products := rast.M(zipped, "map", closure(rast.Bin("*", a, b), &rast.Tuple{Elts: []rast.Expr{a, b}}))
		return sumF64(products), true, nil
	case "sum", "mean", "max", "min", "std", "var", "prod", "norm":
		src, err := arg(0)
		if err != nil {
			return nil, true, err
		}
		return g.reduce(src, name), true, nil
	case "clip", "clamp":
		if len(args) != 3 {
			return nil, true, fmterr.Arityf(x.Span(), "numpy call", "numpy.%s takes 3 arguments, got %d", name, len(args))
		}
		return g.clip(args[0], args[1], args[2])
	case "normalize":
		src, err := arg(0)
		if err != nil {
			return nil, true, err
		}
		norm := g.ctx.TempName()
		return rast.Blk(
			g.elementwise(src, func(v rast.Expr) rast.Expr { return rast.Bin("/", &rast.Deref{X: v}, rast.Id(norm)) }),
			&rast.Let{Pattern: rast.Id(norm), Value: g.reduce(src, "norm")},
		), true, nil
	}
	if method, ok := numpyUnary[name]; ok && len(args) == 1 {
		src, err := arg(0)
		if err != nil {
			return nil, true, err
		}
		if !g.isNumpyOperand(args[0]) {
			f, err := g.asF64(args[0])
			if err != nil {
				return nil, true, err
			}
			return rast.M(f, method), true, nil
		}
		return g.elementwise(src, func(v rast.Expr) rast.Expr { return rast.M(v, method) }), true, nil
	}
	return nil, false, nil
}

func (g *Generator) clip(arr, lo, hi hir.Expr) (rast.Expr, bool, error) {
	src, err := g.Expr(arr)
	if err != nil {
		return nil, true, err
	}
	l, err := g.asF64(lo)
	if err != nil {
		return nil, true, err
	}
	h, err := g.asF64(hi)
	if err != nil {
		return nil, true, err
	}
	return g.elementwise(src, func(v rast.Expr) rast.Expr { return rast.M(v, "clamp", l, h) }), true, nil
}

func sumF64(iter rast.Expr) rast.Expr {
	sum := rast.M(iter, "sum")
	sum.Turbofish = []rast.Type{rast.Named("f64")}
	return sum
}

// reduce generates a numpy reduction of an array into a f64.
func (g *Generator) reduce(src rast.Expr, name string) rast.Expr {
	iter := rast.M(src, "iter")
	length := cast(rast.M(src, "len"), "f64")
	switch name {
	case "sum":
		return sumF64(iter)
	case "prod":
		prod := rast.M(iter, "product")
		prod.Turbofish = []rast.Type{rast.Named("f64")}
		return prod
	case "mean":
		return rast.Bin("/", sumF64(iter), length)
	case "max":
		return rast.M(rast.M(iter, "cloned"), "fold", rast.P("f64", "NEG_INFINITY"), rast.P("f64", "max"))
	case "min":
		return rast.M(rast.M(iter, "cloned"), "fold", rast.P("f64", "INFINITY"), rast.P("f64", "min"))
	case "norm":
		v := rast.Id(g.ctx.UniqueName("v"))
		return rast.M(sumF64(rast.M(iter, "map", closure(rast.Bin("*", v, v), v))), "sqrt")
	}
	mean, v := g.ctx.TempName(), rast.Id(g.ctx.UniqueName("v"))
	dev := rast.Bin("-", v, rast.Id(mean))
	variance := rast.Bin("/", sumF64(rast.M(rast.M(src, "iter"), "map", closure(rast.Bin("*", dev, dev), v))), length)
	var tail rast.Expr = variance
	if name == "std" {
		tail = rast.M(variance, "sqrt")
	}
	return rast.Blk(tail, &rast.Let{Pattern: rast.Id(mean), Value: rast.Bin("/", sumF64(rast.M(src, "iter")), length)})
}

// numpyMethod generates a method call on a numeric array.
func (g *Generator) numpyMethod(x *hir.MethodCall) (rast.Expr, bool, error) {
	if !g.isNumpyOperand(x.Recv) {
		return nil, false, nil
	}
	recv, err := g.Expr(x.Recv)
	if err != nil {
		return nil, true, err
	}
	switch x.Method {
	case "sum", "mean", "max", "min", "std", "var", "prod":
		return g.reduce(recv, x.Method), true, nil
	case "copy", "tolist":
		return rast.M(recv, "clone"), true, nil
	case "clip":
		if len(x.Args) != 2 {
			return nil, true, fmterr.Arityf(x.Span(), "numpy call", "clip takes 2 arguments, got %d", len(x.Args))
		}
		return g.clip(x.Recv, x.Args[0], x.Args[1])
	case "dot":
		if len(x.Args) != 1 {
			return nil, true, fmterr.Arityf(x.Span(), "numpy call", "dot takes 1 argument, got %d", len(x.Args))
		}
		return g.numpyCall(x, "dot", []hir.Expr{x.Recv, x.Args[0]}, nil)
	}
	if method, ok := numpyUnary[x.Method]; ok {
		return g.elementwise(recv, func(v rast.Expr) rast.Expr { return rast.M(v, method) }), true, nil
	}
	return nil, false, nil
}
