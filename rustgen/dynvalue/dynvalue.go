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

// Package dynvalue generates the Rust prelude of the DynValue type.
//
// DynValue is the sum type standing in for values whose static type cannot be inferred.
// The prelude defines the type, its operators and the protocol traits (Truthy, PyAdd,
// PyIndex, StringMethods, ...) used by the generated code. It is emitted once per module.
package dynvalue

import (
	"text/template"

	"github.com/gx-org/pyrs/api/options"
	"github.com/gx-org/pyrs/base/tmpl"
	"github.com/gx-org/pyrs/build/rast"
	"github.com/gx-org/pyrs/build/types"
	"github.com/pkg/errors"

	_ "embed"
)

//go:embed facade.rs.tmpl
var facadeSource string

var facadeTemplate = template.Must(template.New("DynValueTMPL").Parse(facadeSource))

// Name of the Rust type generated by the prelude.
const Name = types.DVName

// Config selects the variant of the prelude.
type Config struct {
	// LazyLock uses std::sync::LazyLock (Rust 1.80+) instead of std::sync::OnceLock.
	LazyLock bool
}

// ConfigFor returns the configuration matching translation options.
func ConfigFor(opts *options.Options) Config {
	if opts == nil {
		opts = options.Default()
	}
	return Config{LazyLock: opts.HasLazyLock()}
}

type (
	// primitive is a Rust scalar mixing with DynValue in expressions.
	primitive struct {
		Name    string
		Conv    string
		Zero    string
		Variant string
	}

	// operator is an arithmetic operator of DynValue.
	operator struct {
		Trait, Method, Sym string
		// PyTrait and PyMethod are the protocol trait implemented on top of the operator.
		PyTrait, PyMethod string
	}

	primOp struct {
		primitive
		operator
	}

	// numPair is a pair of numeric operands and the type of the result.
	numPair struct {
		Left, Right, Out string
		Float            bool
	}

	pyOp struct {
		numPair
		operator
	}

	vecOp struct {
		Elem string
		operator
	}

	truthyColl struct {
		Params, Type string
	}

	facade struct {
		Config
		Ops         []operator
		BitOps      []operator
		VecFroms    []string
		TruthyNums  []primitive
		TruthyColls []truthyColl
		Repeats     []string
		IndexInts   []string

		PrimOps  string
		PrimCmps string
		PyArith  string
		VecOps   string
	}
)

var (
	primitives = []primitive{
		{Name: "i32", Conv: "to_i64", Zero: "0", Variant: "Int"},
		{Name: "i64", Conv: "to_i64", Zero: "0", Variant: "Int"},
		{Name: "f64", Conv: "to_f64", Zero: "0.0", Variant: "Float"},
	}

	operators = []operator{
		{Trait: "Add", Method: "add", Sym: "+", PyTrait: "PyAdd", PyMethod: "py_add"},
		{Trait: "Sub", Method: "sub", Sym: "-", PyTrait: "PySub", PyMethod: "py_sub"},
		{Trait: "Mul", Method: "mul", Sym: "*", PyTrait: "PyMul", PyMethod: "py_mul"},
		{Trait: "Div", Method: "div", Sym: "/", PyTrait: "PyDiv", PyMethod: "py_div"},
		{Trait: "Rem", Method: "rem", Sym: "%", PyTrait: "PyMod", PyMethod: "py_mod"},
	}

	bitOperators = []operator{
		{Trait: "BitAnd", Method: "bitand", Sym: "&"},
		{Trait: "BitOr", Method: "bitor", Sym: "|"},
		{Trait: "BitXor", Method: "bitxor", Sym: "^"},
	}

	truthyNums = []primitive{
		{Name: "i32", Zero: "0"},
		{Name: "i64", Zero: "0"},
		{Name: "usize", Zero: "0"},
		{Name: "f32", Zero: "0.0"},
		{Name: "f64", Zero: "0.0"},
	}

	truthyColls = []truthyColl{
		{Params: "T", Type: "Vec<T>"},
		{Params: "T", Type: "std::collections::VecDeque<T>"},
		{Params: "T", Type: "std::collections::HashSet<T>"},
		{Params: "T", Type: "std::collections::BTreeSet<T>"},
		{Params: "K, V", Type: "std::collections::HashMap<K, V>"},
		{Params: "K, V", Type: "std::collections::BTreeMap<K, V>"},
	}

	vecElems = []string{"f64", "f32", "i64", "i32"}
)

var primOpTemplate = template.Must(template.New("primOpTMPL").Parse(`
impl std::ops::{{.Trait}}<{{.Name}}> for DynValue {
    type Output = DynValue;
    fn {{.Method}}(self, rhs: {{.Name}}) -> DynValue {
        self {{.Sym}} DynValue::from(rhs)
    }
}

impl std::ops::{{.Trait}}<DynValue> for {{.Name}} {
    type Output = {{.Name}};
    fn {{.Method}}(self, rhs: DynValue) -> {{.Name}} {
        let rhs = rhs.{{.Conv}}() as {{.Name}};
{{- if eq .Sym "/" "%"}}
        if rhs == {{.Zero}} {
            return {{.Zero}};
        }
{{- end}}
        self {{.Sym}} rhs
    }
}`))

var primCmpTemplate = template.Must(template.New("primCmpTMPL").Parse(`
impl From<{{.Name}}> for DynValue {
    fn from(v: {{.Name}}) -> Self {
        DynValue::{{.Variant}}(v as {{if eq .Variant "Int"}}i64{{else}}f64{{end}})
    }
}

impl From<DynValue> for {{.Name}} {
    fn from(v: DynValue) -> Self {
        v.{{.Conv}}() as {{.Name}}
    }
}

impl PartialEq<{{.Name}}> for DynValue {
    fn eq(&self, other: &{{.Name}}) -> bool {
        match self {
            DynValue::Int(v) => (*v as f64) == (*other as f64),
            DynValue::Float(v) => *v == *other as f64,
            _ => false,
        }
    }
}

impl PartialEq<DynValue> for {{.Name}} {
    fn eq(&self, other: &DynValue) -> bool {
        other == self
    }
}

impl PartialOrd<{{.Name}}> for DynValue {
    fn partial_cmp(&self, other: &{{.Name}}) -> Option<std::cmp::Ordering> {
        match self {
            DynValue::Int(v) => Some((*v as f64).total_cmp(&(*other as f64))),
            DynValue::Float(v) => Some(v.total_cmp(&(*other as f64))),
            _ => Option::None,
        }
    }
}

impl PartialOrd<DynValue> for {{.Name}} {
    fn partial_cmp(&self, other: &DynValue) -> Option<std::cmp::Ordering> {
        other.partial_cmp(self).map(std::cmp::Ordering::reverse)
    }
}`))

var pyArithTemplate = template.Must(template.New("pyArithTMPL").Parse(`
impl {{.PyTrait}}<{{.Right}}> for {{.Left}} {
{{- if eq .Sym "/"}}
    type Output = f64;
    fn {{.PyMethod}}(self, rhs: {{.Right}}) -> f64 {
        let d = rhs as f64;
        if d == 0.0 {
            return f64::NAN;
        }
        self as f64 / d
    }
{{- else}}
    type Output = {{.Out}};
    fn {{.PyMethod}}(self, rhs: {{.Right}}) -> {{.Out}} {
        let (a, b) = (self as {{.Out}}, rhs as {{.Out}});
{{- if eq .Sym "%"}}
{{- if .Float}}
        if b == 0.0 {
            return f64::NAN;
        }
        dv_floor_rem_f64(a, b)
{{- else}}
        if b == 0 {
            return 0;
        }
        dv_floor_rem_i64(a as i64, b as i64) as {{.Out}}
{{- end}}
{{- else}}
        a {{.Sym}} b
{{- end}}
    }
{{- end}}
}`))

var vecOpTemplate = template.Must(template.New("vecOpTMPL").Parse(`
impl {{.PyTrait}}<Vec<{{.Elem}}>> for Vec<{{.Elem}}> {
{{- if eq .Sym "/"}}
    type Output = Vec<f64>;
    fn {{.PyMethod}}(self, rhs: Vec<{{.Elem}}>) -> Vec<f64> {
        self.iter()
            .zip(rhs.iter())
            .map(|(a, b)| if *b as f64 == 0.0 { f64::NAN } else { *a as f64 / *b as f64 })
            .collect()
    }
{{- else}}
    type Output = Vec<{{.Elem}}>;
    fn {{.PyMethod}}(self, rhs: Vec<{{.Elem}}>) -> Vec<{{.Elem}}> {
        self.iter().zip(rhs.iter()).map(|(a, b)| *a {{.Sym}} *b).collect()
    }
{{- end}}
}`))

// numOut returns the type of an arithmetic operation mixing two numeric types.
func numOut(l, r string) string {
	switch {
	case l == "f64" || r == "f64":
		return "f64"
	case l == "i64" || r == "i64":
		return "i64"
	}
	return "i32"
}

func (f *facade) buildPrimOps() (err error) {
	var ops []primOp
	for _, prim := range primitives {
		for _, op := range operators[:4] {
			ops = append(ops, primOp{primitive: prim, operator: op})
		}
	}
	if f.PrimOps, err = tmpl.Iterate(ops, primOpTemplate); err != nil {
		return err
	}
	f.PrimCmps, err = tmpl.Iterate(primitives, primCmpTemplate)
	return err
}

func (f *facade) buildPyArith() (err error) {
	var ops []pyOp
	for _, op := range operators {
		for _, l := range primitives {
			for _, r := range primitives {
				out := numOut(l.Name, r.Name)
				ops = append(ops, pyOp{
					numPair:  numPair{Left: l.Name, Right: r.Name, Out: out, Float: out == "f64"},
					operator: op,
				})
			}
		}
	}
	f.PyArith, err = tmpl.Iterate(ops, pyArithTemplate)
	return err
}

func (f *facade) buildVecOps() (err error) {
	var ops []vecOp
	for _, op := range []operator{operators[1], operators[2], operators[3]} {
		for _, elem := range vecElems {
			ops = append(ops, vecOp{Elem: elem, operator: op})
		}
	}
	f.VecOps, err = tmpl.Iterate(ops, vecOpTemplate)
	return err
}

// Generate returns the Rust source of the prelude.
func Generate(cfg Config) (string, error) {
	f := &facade{
		Config:      cfg,
		Ops:         operators,
		BitOps:      bitOperators,
		VecFroms:    []string{"String", "i32", "i64", "f64", "bool"},
		TruthyNums:  truthyNums,
		TruthyColls: truthyColls,
		Repeats:     []string{"i32", "i64", "usize"},
		IndexInts:   []string{"i32", "i64"},
	}
	for _, build := range []func() error{f.buildPrimOps, f.buildPyArith, f.buildVecOps} {
		if err := build(); err != nil {
			return "", err
		}
	}
	src, err := tmpl.Execute(facadeTemplate, f)
	if err != nil {
		return "", errors.Wrapf(err, "cannot generate the %s prelude", Name)
	}
	return src, nil
}

// Prelude returns the prelude as a pre-rendered item of a Rust module.
func Prelude(opts *options.Options) (*rast.Raw, error) {
	src, err := Generate(ConfigFor(opts))
	if err != nil {
		return nil, err
	}
	return &rast.Raw{Name: Name, Text: src}, nil
}
