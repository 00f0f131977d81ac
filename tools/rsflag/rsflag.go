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

// Package rsflag provides flag types for pyrs tools.
package rsflag

import (
	"flag"
	"strings"

	"github.com/gx-org/pyrs/api/options"
	"github.com/pkg/errors"
)

type stringList struct {
	list *[]string
}

func (sl *stringList) String() string {
	if sl.list == nil {
		return ""
	}
	return strings.Join(*sl.list, ",")
}

func (sl *stringList) Set(values string) error {
	for _, value := range strings.Split(values, ",") {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		*sl.list = append(*sl.list, value)
	}
	return nil
}

// StringList returns a flag to pass a list of string from the command line.
func StringList(fs *flag.FlagSet, name, doc string) *[]string {
	var list []string
	sList := stringList{&list}
	fs.Var(&sList, name, doc)
	return sList.list
}

type facadeMode struct {
	mode *options.FacadeMode
}

func (fm facadeMode) String() string {
	if fm.mode == nil {
		return ""
	}
	return string(*fm.mode)
}

func (fm facadeMode) Set(value string) error {
	mode := options.FacadeMode(strings.ToLower(strings.TrimSpace(value)))
	switch mode {
	case options.FacadeAuto, options.FacadeAlways, options.FacadeNever:
	default:
		return errors.Errorf("unknown facade mode %q", value)
	}
	*fm.mode = mode
	return nil
}

// FacadeMode returns a flag selecting when the DynValue prelude is emitted.
func FacadeMode(fs *flag.FlagSet, name string, value options.FacadeMode, doc string) *options.FacadeMode {
	mode := value
	fs.Var(facadeMode{&mode}, name, doc)
	return &mode
}

// OptionFlags are command-line flags overriding the options of a translation.
type OptionFlags struct {
	fs          *flag.FlagSet
	path        *string
	nasaMode    *bool
	facade      *options.FacadeMode
	resultFns   *[]string
	edition     *string
	rustVersion *string
	comments    *bool
	preferJSON  *bool
	panicFree   *bool
	strict      *bool
}

// Options registers the flags of the translation options in a flag set.
func Options(fs *flag.FlagSet) *OptionFlags {
	def := options.Default()
	return &OptionFlags{
		fs:          fs,
		path:        fs.String("options", "", "YAML file with the translation options"),
		nasaMode:    fs.Bool("nasa_mode", def.NasaMode, "generate checked arithmetic and bounded loops"),
		facade:      FacadeMode(fs, "emit_dv_facade", def.EmitDVFacade, "when to emit the DynValue prelude: auto, always or never"),
		resultFns:   StringList(fs, "result_return_functions", "comma-separated list of functions returning a Result"),
		edition:     fs.String("target_edition", def.TargetEdition, "Rust edition of the generated code"),
		rustVersion: fs.String("rust_version", def.RustVersion, "minimum Rust version of the generated code"),
		comments:    fs.Bool("preserve_comments", def.PreserveComments, "forward source comments to the generated code"),
		preferJSON:  fs.Bool("prefer_json", def.PreferJSON, "represent heterogeneous dictionaries with serde_json values"),
		panicFree:   fs.Bool("panic_free", def.PanicFree, "document whether generated functions can panic"),
		strict:      fs.Bool("strict", def.Strict, "fail instead of recording warnings"),
	}
}

// Load returns the options read from the options file, if any,
// overridden by the flags set on the command line.
func (o *OptionFlags) Load() (*options.Options, error) {
	opts := options.Default()
	if *o.path != "" {
		var err error
		if opts, err = options.Load(*o.path); err != nil {
			return nil, err
		}
	}
	o.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "nasa_mode":
			opts.NasaMode = *o.nasaMode
		case "emit_dv_facade":
			opts.EmitDVFacade = *o.facade
		case "result_return_functions":
			opts.ResultReturnFunctions = append(opts.ResultReturnFunctions, *o.resultFns...)
		case "target_edition":
			opts.TargetEdition = *o.edition
		case "rust_version":
			opts.RustVersion = *o.rustVersion
		case "preserve_comments":
			opts.PreserveComments = *o.comments
		case "prefer_json":
			opts.PreferJSON = *o.preferJSON
		case "panic_free":
			opts.PanicFree = *o.panicFree
		case "strict":
			opts.Strict = *o.strict
		}
	})
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
