// Copyright 2025 Google LLC
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

// Package options specifies the options of a translation.
package options

import (
	"bytes"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/gx-org/pyrs/api/trace"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// FacadeMode selects when the DynValue prelude is emitted into a module.
type FacadeMode string

// Facade emission modes.
const (
	// FacadeAuto emits the prelude only if a function of the module requires it.
	FacadeAuto FacadeMode = "auto"
	// FacadeAlways always emits the prelude.
	FacadeAlways FacadeMode = "always"
	// FacadeNever never emits the prelude. Requiring it is an error.
	FacadeNever FacadeMode = "never"
)

// UnmarshalYAML checks that the mode is a known mode.
func (m *FacadeMode) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	mode := FacadeMode(strings.ToLower(s))
	switch mode {
	case FacadeAuto, FacadeAlways, FacadeNever:
	default:
		return errors.Errorf("line %d: unknown emit_dv_facade mode %q: want auto, always or never", node.Line, s)
	}
	*m = mode
	return nil
}

// lazyLockVersion is the first Rust release with std::sync::LazyLock.
const lazyLockVersion = "v1.80.0"

// roundTiesEvenVersion is the first Rust release with f64::round_ties_even.
const roundTiesEvenVersion = "v1.77.0"

var editions = []string{"2015", "2018", "2021", "2024"}

// Options of a translation.
type Options struct {
	// NasaMode lowers every unknown or Any value to DynValue instead of guessing types.
	NasaMode bool `yaml:"nasa_mode"`
	// EmitDVFacade selects when the DynValue prelude is emitted.
	EmitDVFacade FacadeMode `yaml:"emit_dv_facade"`
	// ResultReturnFunctions are functions known to return a Result.
	ResultReturnFunctions []string `yaml:"result_return_functions"`
	// TargetEdition is the Rust edition of the generated code.
	TargetEdition string `yaml:"target_edition"`
	// RustVersion is the minimum Rust toolchain version of the generated code.
	RustVersion string `yaml:"rust_version"`
	// PreserveComments forwards source comments to the generated code.
	PreserveComments bool `yaml:"preserve_comments"`
	// PreferJSON renders dictionary literals with values of different types
	// as serde_json values instead of DynValue maps. Ignored in NASA mode.
	PreferJSON bool `yaml:"prefer_json"`
	// PanicFree annotates generated functions with a doc-comment.
	PanicFree bool `yaml:"panic_free"`
	// Strict turns all warnings into errors.
	Strict bool `yaml:"strict"`

	// Trace receives the decisions taken by the translator. Can be nil.
	Trace trace.Callback `yaml:"-"`
}

// Default returns the default options.
func Default() *Options {
	return &Options{
		EmitDVFacade:  FacadeAuto,
		TargetEdition: "2021",
		RustVersion:   lazyLockVersion,
	}
}

// Load reads options from a YAML file.
// Options absent from the file keep their default value.
func Load(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read options")
	}
	return Parse(data, path)
}

// Parse options from YAML content.
// The path is only used in error messages.
func Parse(data []byte, path string) (*Options, error) {
	opts := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(opts); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "cannot parse options %s", path)
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid options %s", path)
	}
	return opts, nil
}

func canonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// Validate returns an error if the options are inconsistent.
func (o *Options) Validate() error {
	if !slices.Contains(editions, o.TargetEdition) {
		return errors.Errorf("unknown target edition %q: want one of %s", o.TargetEdition, strings.Join(editions, ", "))
	}
	if !semver.IsValid(canonicalVersion(o.RustVersion)) {
		return errors.Errorf("rust version %q is not a valid semantic version", o.RustVersion)
	}
	switch o.EmitDVFacade {
	case FacadeAuto, FacadeAlways, FacadeNever:
	default:
		return errors.Errorf("unknown emit_dv_facade mode %q", o.EmitDVFacade)
	}
	return nil
}

// HasLazyLock returns true if the target toolchain provides std::sync::LazyLock.
func (o *Options) HasLazyLock() bool {
	return semver.Compare(canonicalVersion(o.RustVersion), lazyLockVersion) >= 0
}

// HasRoundTiesEven returns true if the target toolchain provides f64::round_ties_even.
func (o *Options) HasRoundTiesEven() bool {
	return semver.Compare(canonicalVersion(o.RustVersion), roundTiesEvenVersion) >= 0
}

// IsResultReturning returns true if the function has been declared as returning a Result.
func (o *Options) IsResultReturning(name string) bool {
	return slices.Contains(o.ResultReturnFunctions, name)
}

// TraceDecision sends a decision to the trace callback, if any.
func (o *Options) TraceDecision(d trace.Decision) {
	if o == nil || o.Trace == nil {
		return
	}
	o.Trace.Trace(d)
}
