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

package exprgen_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/pyrs/api/options"
	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/hir"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/rustgen/exprgen"
	"github.com/gx-org/pyrs/rustgen/genctx"
)

type vars map[string]types.Type

func newGenerator(opts *options.Options, vs vars) (*exprgen.Generator, *genctx.Context) {
	if opts == nil {
		opts = options.Default()
	}
	ctx := genctx.New(opts, nil)
	ctx.EnterFunction(&genctx.FuncSig{Name: "f", Ret: types.NoneType()})
	for name, typ := range vs {
		ctx.BindVar(name, typ)
		ctx.Declare(name)
	}
	return exprgen.New(ctx), ctx
}

func nasa() *options.Options {
	opts := options.Default()
	opts.NasaMode = true
	return opts
}

func generate(t *testing.T, g *exprgen.Generator, x hir.Expr) string {
	t.Helper()
	e, err := g.Expr(x)
	if err != nil {
		t.Fatalf("cannot generate %T: %+v", x, err)
	}
	return rast.String(e)
}

type exprTest struct {
	name string
	opts *options.Options
	vars vars
	expr hir.Expr
	// want is the generated expression if it is not empty.
	want string
	// contains are substrings of the generated expression.
	contains []string
	// excludes are substrings which must not appear.
	excludes []string
}

func runExprTests(t *testing.T, tests []exprTest) {
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g, _ := newGenerator(test.opts, test.vars)
			got := generate(t, g, test.expr)
			if test.want != "" && got != test.want {
				t.Errorf("got:\n%s\nwant:\n%s\ndiff:\n%s", got, test.want, cmp.Diff(got, test.want))
			}
			for _, want := range test.contains {
				if !strings.Contains(got, want) {
					t.Errorf("got:\n%s\nwhich does not contain:\n%s", got, want)
				}
			}
			for _, unwanted := range test.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("got:\n%s\nwhich contains:\n%s", got, unwanted)
				}
			}
		})
	}
}

func TestStringMethods(t *testing.T) {
	runExprTests(t, []exprTest{
		{
			name: "native",
			vars: vars{"s": types.StringType()},
			expr: hir.MCall(hir.Name("s"), "upper"),
			want: "s.to_uppercase()",
		},
		{
			name: "dynamic",
			opts: nasa(),
			vars: vars{"s": types.UnknownType()},
			expr: hir.MCall(hir.Name("s"), "upper"),
			want: "s.upper()",
		},
	})
}

func TestDictGet(t *testing.T) {
	runExprTests(t, []exprTest{
		{
			name: "option",
			vars: vars{"d": types.DictOf(types.StringType(), types.IntType())},
			expr: hir.MCall(hir.Name("d"), "get", hir.Str("k")),
			want: `d.get("k").cloned()`,
		},
		{
			name: "default",
			vars: vars{"d": types.DictOf(types.StringType(), types.IntType())},
			expr: hir.MCall(hir.Name("d"), "get", hir.Str("k"), hir.Int(0)),
			want: `d.get("k").cloned().unwrap_or(0)`,
		},
		{
			name: "dynamic value default",
			vars: vars{"d": types.DictOf(types.StringType(), types.CustomOf("Any"))},
			expr: hir.MCall(hir.Name("d"), "get", hir.Str("k"), hir.Int(0)),
			want: `d.get("k").cloned().unwrap_or(DynValue::Int(0))`,
		},
	})
}

func TestDictSetdefault(t *testing.T) {
	groups := vars{"d": types.DictOf(types.StringType(), types.ListOf(types.IntType()))}
	runExprTests(t, []exprTest{
		{
			name:     "read",
			vars:     groups,
			expr:     hir.MCall(hir.Name("d"), "setdefault", hir.Str("k"), &hir.ListLit{}),
			contains: []string{"d.entry(", ".or_insert(", ").clone()"},
		},
		{
			name:     "modified in place",
			vars:     groups,
			expr:     hir.MCall(hir.MCall(hir.Name("d"), "setdefault", hir.Str("k"), &hir.ListLit{}), "append", hir.Int(1)),
			contains: []string{"d.entry(", ".or_insert_with(|| ", ".push(1)"},
			excludes: []string{"clone()", ".or_insert("},
		},
	})
}

func TestListIndex(t *testing.T) {
	list := vars{"xs": types.ListOf(types.IntType()), "i": types.IntType()}
	runExprTests(t, []exprTest{
		{
			name: "literal",
			vars: list,
			expr: &hir.Index{X: hir.Name("xs"), Index: hir.Int(2)},
			want: "xs[2]",
		},
		{
			name: "negative literal",
			vars: list,
			expr: &hir.Index{X: hir.Name("xs"), Index: hir.Int(-1)},
			want: "xs[xs.len() - 1]",
		},
		{
			name: "runtime position",
			vars: list,
			expr: &hir.Index{X: hir.Name("xs"), Index: hir.Name("i")},
			contains: []string{
				"let idx = i;",
				"if idx < 0 { (xs.len() as i64 + idx as i64) as usize } else { idx as usize }",
			},
			excludes: []string{"xs[i as usize]"},
		},
		{
			name:     "length",
			vars:     list,
			expr:     &hir.Index{X: hir.Name("xs"), Index: hir.Bin(hir.Sub, hir.CallTo("len", hir.Name("xs")), hir.Int(1))},
			contains: []string{"xs.len()"},
		},
	})
}

func TestDynIndex(t *testing.T) {
	dyn := vars{"d": types.CustomOf("Any"), "k": types.CustomOf("Any")}
	runExprTests(t, []exprTest{
		{
			name:     "dynamic key",
			opts:     nasa(),
			vars:     dyn,
			expr:     &hir.Index{X: hir.Name("d"), Index: hir.Name("k")},
			contains: []string{"d.py_index(k"},
			excludes: []string{"d[k"},
		},
		{
			name: "string key",
			opts: nasa(),
			vars: dyn,
			expr: &hir.Index{X: hir.Name("d"), Index: hir.Str("name")},
			want: `d["name"].clone()`,
		},
	})
}

func TestIteratorMethods(t *testing.T) {
	list := vars{"xs": types.ListOf(types.IntType())}
	iter := hir.MCall(hir.Name("xs"), "iter")
	x := hir.Name("x")
	runExprTests(t, []exprTest{
		{
			name: "count",
			vars: list,
			expr: hir.MCall(iter, "count"),
			want: "xs.iter().count() as i32",
		},
		{
			name: "sum",
			vars: list,
			expr: hir.MCall(iter, "sum"),
			want: "xs.iter().sum::<i32>()",
		},
		{
			name: "sum of a map",
			vars: list,
			expr: hir.MCall(hir.MCall(iter, "map", &hir.Lambda{Params: []string{"x"}, Body: hir.Bin(hir.Mul, x, hir.Int(2))}), "sum"),
			want: "xs.iter().map(|x| x * 2).sum::<i32>()",
		},
		{
			name:     "float sum of a map",
			vars:     list,
			expr:     hir.MCall(hir.MCall(iter, "map", &hir.Lambda{Params: []string{"x"}, Body: hir.Bin(hir.Mul, x, hir.Float(0.5))}), "sum"),
			contains: []string{".sum::<f64>()"},
		},
	})
}

func TestPow(t *testing.T) {
	ints := vars{"b": types.IntType(), "n": types.IntType()}
	runExprTests(t, []exprTest{
		{
			name: "literal exponent",
			vars: ints,
			expr: hir.Bin(hir.Pow, hir.Name("b"), hir.Int(2)),
			want: "b.pow(2)",
		},
		{
			name: "negative literal exponent",
			vars: ints,
			expr: hir.Bin(hir.Pow, hir.Name("b"), hir.Int(-2)),
			want: "(b as f64).powi(-2)",
		},
		{
			name:     "runtime exponent",
			vars:     ints,
			expr:     hir.Bin(hir.Pow, hir.Name("b"), hir.Name("n")),
			contains: []string{"let exp = n;", "if exp < 0 { (b as f64).powi(exp) } else { b.pow(exp as u32) as f64 }"},
			excludes: []string{"b.pow(n as u32)"},
		},
	})
}

func TestRound(t *testing.T) {
	old := options.Default()
	old.RustVersion = "1.76.0"
	float := vars{"x": types.FloatType()}
	runExprTests(t, []exprTest{
		{
			name: "ties to even",
			vars: float,
			expr: hir.CallTo("round", hir.Name("x")),
			want: "x.round_ties_even() as i32",
		},
		{
			name:     "digits",
			vars:     float,
			expr:     hir.CallTo("round", hir.Name("x"), hir.Int(2)),
			contains: []string{".round_ties_even() / "},
		},
		{
			name:     "toolchain without round_ties_even",
			opts:     old,
			vars:     float,
			expr:     hir.CallTo("round", hir.Name("x")),
			contains: []string{"(x.round() - x).abs() == 0.5", "2.0 * (x / 2.0).round()", ") as i32"},
			excludes: []string{"round_ties_even"},
		},
	})
}

func TestNumpyAbs(t *testing.T) {
	g, ctx := newGenerator(nil, nil)
	ctx.MarkNumpy("b")
	got := generate(t, g, hir.CallTo("abs", hir.Name("b")))
	for _, want := range []string{"b.iter().map(", ".abs()"} {
		if !strings.Contains(got, want) {
			t.Errorf("got:\n%s\nwhich does not contain:\n%s", got, want)
		}
	}
	if strings.Contains(got, "i32::abs") {
		t.Errorf("got:\n%s\nwhich is a scalar absolute value", got)
	}
}

func TestFloorDivision(t *testing.T) {
	ints := vars{"a": types.IntType(), "b": types.IntType()}
	runExprTests(t, []exprTest{
		{
			name:     "signed floor",
			vars:     ints,
			expr:     hir.Bin(hir.FloorDiv, hir.Name("a"), hir.Name("b")),
			contains: []string{" % ", " - 1", "< 0"},
		},
		{
			name: "positive literal divisor",
			vars: ints,
			expr: hir.Bin(hir.FloorDiv, hir.Name("a"), hir.Int(2)),
			want: "a.div_euclid(2)",
		},
		{
			name: "negative literal dividend",
			expr: hir.Bin(hir.FloorDiv, &hir.Unary{Op: hir.Neg, X: hir.Int(7)}, hir.Int(2)),
			want: "(-7i32).div_euclid(2)",
		},
		{
			name: "negative literal modulo",
			expr: hir.Bin(hir.Mod, hir.Int(-7), hir.Int(3)),
			want: "(-7i32).rem_euclid(3)",
		},
		{
			name: "positive literal modulo",
			expr: hir.Bin(hir.Mod, hir.Int(7), hir.Int(3)),
			want: "7i32.rem_euclid(3)",
		},
		{
			name:     "true division",
			vars:     ints,
			expr:     hir.Bin(hir.Div, hir.Name("a"), hir.Name("b")),
			excludes: []string{"div_euclid", " % "},
			contains: []string{"f64"},
		},
	})
}

func TestComprehension(t *testing.T) {
	x := hir.Name("x")
	comp := &hir.ListComp{
		Elt: hir.Bin(hir.Mul, x, x),
		Clauses: []*hir.Clause{{
			Target: hir.Sym("x"),
			Iter:   hir.Name("xs"),
			Conds:  []hir.Expr{hir.Bin(hir.Gt, x, hir.Int(0))},
		}},
	}
	list := vars{"xs": types.ListOf(types.IntType())}
	t.Run("owned", func(t *testing.T) {
		g, _ := newGenerator(nil, list)
		got := generate(t, g, comp)
		want := "xs.into_iter().filter(|x| *x > 0).map(|x| x * x).collect::<Vec<_>>()"
		if got != want {
			t.Errorf("got:\n%s\nwant:\n%s\ndiff:\n%s", got, want, cmp.Diff(got, want))
		}
	})
	t.Run("borrowed", func(t *testing.T) {
		g, _ := newGenerator(nil, list)
		g.SetLiveness(func(name string) bool { return name == "xs" })
		got := generate(t, g, comp)
		if !strings.HasPrefix(got, "xs.iter().cloned()") {
			t.Errorf("got:\n%s\nwant a borrowing iteration of xs", got)
		}
	})
}

func TestIfExp(t *testing.T) {
	runExprTests(t, []exprTest{
		{
			name: "lifted arms",
			opts: nasa(),
			vars: vars{"x": types.IntType(), "cond": types.BoolType()},
			expr: &hir.IfExp{Cond: hir.Name("cond"), Then: hir.Name("x"), Else: hir.Str("n/a")},
			want: `if cond { DynValue::Int(x as i64) } else { DynValue::Str("n/a".to_string()) }`,
		},
		{
			name: "numeric arms",
			vars: vars{"cond": types.BoolType()},
			expr: &hir.IfExp{Cond: hir.Name("cond"), Then: hir.Int(1), Else: hir.Float(2.5)},
			want: "if cond { 1.0 } else { 2.5 }",
		},
		{
			name: "truthy condition",
			vars: vars{"xs": types.ListOf(types.IntType())},
			expr: &hir.IfExp{Cond: hir.Name("xs"), Then: hir.Int(1), Else: hir.Int(0)},
			want: "if !xs.is_empty() { 1 } else { 0 }",
		},
	})
}

func TestLambda(t *testing.T) {
	v := hir.Name("v")
	runExprTests(t, []exprTest{
		{
			name: "arithmetic",
			expr: &hir.Lambda{Params: []string{"x"}, Body: hir.Bin(hir.Mul, hir.Name("x"), hir.Int(2))},
			want: "|x: i32| x * 2",
		},
		{
			name:     "float arithmetic",
			expr:     &hir.Lambda{Params: []string{"x"}, Body: hir.Bin(hir.Mul, hir.Name("x"), hir.Float(2.5))},
			contains: []string{"|x: f64|"},
		},
		{
			name: "condition",
			expr: &hir.Lambda{Params: []string{"f"}, Body: &hir.IfExp{Cond: hir.Name("f"), Then: hir.Int(1), Else: hir.Int(0)}},
			want: "|f: bool| if f { 1 } else { 0 }",
		},
		{
			name: "iterated",
			expr: &hir.Lambda{Params: []string{"xs"}, Body: &hir.ListComp{
				Elt:     v,
				Clauses: []*hir.Clause{{Target: hir.Sym("v"), Iter: hir.Name("xs")}},
			}},
			contains: []string{"|xs: &Vec<i32>|"},
		},
		{
			name: "default",
			expr: &hir.Lambda{Params: []string{"x"}, Body: hir.Name("x")},
			want: "|x: i32| x",
		},
	})
}

func TestCollectionLiterals(t *testing.T) {
	preferJSON := options.Default()
	preferJSON.PreferJSON = true
	mixed := &hir.DictLit{
		Keys:   []hir.Expr{hir.Str("a"), hir.Str("b")},
		Values: []hir.Expr{hir.Int(1), hir.Str("x")},
	}
	runExprTests(t, []exprTest{
		{
			name: "empty list",
			expr: &hir.ListLit{},
			want: "Vec::new()",
		},
		{
			name: "numeric list",
			expr: &hir.ListLit{Elts: []hir.Expr{hir.Int(1), hir.Float(2.5)}},
			want: "vec![1.0, 2.5]",
		},
		{
			name: "tuple",
			expr: &hir.TupleLit{Elts: []hir.Expr{hir.Int(1), hir.Bool(true)}},
			want: "(1, true)",
		},
		{
			name: "set",
			expr: &hir.SetLit{Elts: []hir.Expr{hir.Int(1), hir.Int(2)}},
			want: "HashSet::from([1, 2])",
		},
		{
			name: "dict",
			expr: &hir.DictLit{
				Keys:   []hir.Expr{hir.Str("a"), hir.Str("b")},
				Values: []hir.Expr{hir.Int(1), hir.Int(2)},
			},
			want: `HashMap::from([("a".to_string(), 1), ("b".to_string(), 2)])`,
		},
		{
			name:     "heterogeneous dict",
			expr:     mixed,
			contains: []string{`DynValue::Int(1)`, `DynValue::Str("x".to_string())`},
		},
		{
			name:     "json dict",
			opts:     preferJSON,
			expr:     mixed,
			contains: []string{"serde_json::Value::Object(", "serde_json::Value::from(1)"},
			excludes: []string{"DynValue"},
		},
	})
}

func TestJSONDependency(t *testing.T) {
	opts := options.Default()
	opts.PreferJSON = true
	g, ctx := newGenerator(opts, nil)
	generate(t, g, &hir.DictLit{
		Keys:   []hir.Expr{hir.Str("a"), hir.Str("b")},
		Values: []hir.Expr{hir.Int(1), hir.Str("x")},
	})
	if diff := cmp.Diff(ctx.Dependencies(), []string{"serde_json"}); diff != "" {
		t.Errorf("unexpected dependencies:\n%s", diff)
	}
	if !ctx.Flag(genctx.NeedsSerdeJSON) {
		t.Errorf("flag %s not set", genctx.NeedsSerdeJSON)
	}
}

func TestNamedExpr(t *testing.T) {
	g, ctx := newGenerator(nil, vars{"xs": types.ListOf(types.IntType())})
	cond := hir.Bin(hir.Gt, &hir.NamedExpr{Target: "n", Value: hir.CallTo("len", hir.Name("xs"))}, hir.Int(3))
	e, err := g.Cond(cond)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := rast.String(e), "n > 3"; got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	hoisted := g.TakeHoisted()
	if len(hoisted) != 1 {
		t.Fatalf("got %d hoisted statements, want 1", len(hoisted))
	}
	if got := rast.String(hoisted[0]); !strings.HasPrefix(got, "let n = xs.len()") {
		t.Errorf("got hoisted statement:\n%s\nwant a binding of n", got)
	}
	if typ, ok := ctx.LookupVar("n"); !ok || typ.Kind() != types.IntKind {
		t.Errorf("n bound to %v, want an integer", typ)
	}
	if len(g.TakeHoisted()) != 0 {
		t.Errorf("hoisted statements not cleared")
	}
}

func TestAsyncAndGenerators(t *testing.T) {
	g, ctx := newGenerator(nil, vars{"x": types.IntType()})
	got := generate(t, g, &hir.Yield{X: hir.Name("x")})
	if want := exprgen.YieldBuffer + ".push(x)"; got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	if !ctx.Flag(genctx.InGenerator) {
		t.Errorf("flag %s not set", genctx.InGenerator)
	}
	if !ctx.GeneratorStateVars().Has("x") {
		t.Errorf("x is not a state variable of the generator")
	}
	got = generate(t, g, &hir.Await{X: hir.Name("x")})
	if want := "x.await"; got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
	if !ctx.Flag(genctx.InAsync) {
		t.Errorf("flag %s not set", genctx.InAsync)
	}
}

// pureExprs are expressions without side effects on the context.
func pureExprs() []hir.Expr {
	return []hir.Expr{
		hir.Int(1),
		hir.Name("a"),
		hir.Bin(hir.Add, hir.Name("a"), hir.Name("b")),
		hir.Bin(hir.FloorDiv, hir.Name("a"), hir.Name("b")),
		&hir.Unary{Op: hir.Not, X: hir.Name("s")},
		&hir.TupleLit{Elts: []hir.Expr{hir.Name("a"), hir.Name("s")}},
		&hir.ListLit{Elts: []hir.Expr{hir.Name("a"), hir.Int(2)}},
	}
}

func pureVars() vars {
	return vars{"a": types.IntType(), "b": types.IntType(), "s": types.StringType()}
}

func TestPureExpressionsKeepVarTypes(t *testing.T) {
	for _, opts := range []*options.Options{options.Default(), nasa()} {
		for _, x := range pureExprs() {
			g, ctx := newGenerator(opts, pureVars())
			before := ctx.Snapshot().VarTypes
			generate(t, g, x)
			if diff := cmp.Diff(before, ctx.Snapshot().VarTypes); diff != "" {
				t.Errorf("generating %T changed the variable types:\n%s", x, diff)
			}
		}
	}
}

func TestIdempotence(t *testing.T) {
	exprs := append(pureExprs(),
		&hir.IfExp{Cond: hir.Name("s"), Then: hir.Name("a"), Else: hir.Str("n/a")},
		&hir.Lambda{Params: []string{"x"}, Body: hir.Bin(hir.Add, hir.Name("x"), hir.Name("a"))},
	)
	for _, x := range exprs {
		g1, _ := newGenerator(nasa(), pureVars())
		g2, _ := newGenerator(nasa(), pureVars())
		first, second := generate(t, g1, x), generate(t, g2, x)
		if first != second {
			t.Errorf("generating %T twice differs:\n%s", x, cmp.Diff(first, second))
		}
	}
}

func TestErrorsAreCategorised(t *testing.T) {
	exprs := []hir.Expr{
		hir.CallTo("len"),
		hir.MCall(hir.Name("s"), "upper", hir.Int(1)),
		&hir.Slice{X: hir.Name("s"), Step: hir.Int(0)},
		&hir.Index{X: &hir.TupleLit{Elts: []hir.Expr{hir.Int(1)}}, Index: hir.Int(4)},
		&hir.Lit{Kind: hir.LitInt, Text: "123456789012345678901234567890"},
	}
	for _, x := range exprs {
		g, _ := newGenerator(nil, pureVars())
		_, err := g.Expr(x)
		if err == nil {
			t.Errorf("%T: no error", x)
			continue
		}
		if _, ok := fmterr.CategoryOf(err); !ok {
			t.Errorf("%T: error %v has no category", x, err)
		}
	}
}
