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

package typemap_test

import (
	"testing"

	"github.com/gx-org/pyrs/build/fmterr"
	"github.com/gx-org/pyrs/build/types"
	"github.com/gx-org/pyrs/build/typemap"
)

func TestParse(t *testing.T) {
	tests := []struct {
		annotation string
		want       string
	}{
		{annotation: "int", want: "i32"},
		{annotation: "str", want: "String"},
		{annotation: "List[int]", want: "Vec<i32>"},
		{annotation: "list[str]", want: "Vec<String>"},
		{annotation: "Dict[str, Any]", want: "HashMap<String, DynValue>"},
		{annotation: "Optional[int]", want: "Option<i32>"},
		{annotation: "int | None", want: "Option<i32>"},
		{annotation: "Union[int, float]", want: "f64"},
		{annotation: "Tuple[int, ...]", want: "Vec<i32>"},
		{annotation: "tuple[int, str]", want: "(i32, String)"},
		{annotation: "Callable[[int], float]", want: "Box<dyn Fn(i32) -> f64>"},
		{annotation: "Set[int]", want: "HashSet<i32>"},
		{annotation: "FrozenSet[str]", want: "HashSet<String>"},
		{annotation: "bytes", want: "Vec<u8>"},
		{annotation: "object", want: "DynValue"},
		{annotation: "np.ndarray", want: "Vec<f64>"},
		{annotation: "typing.Iterator[int]", want: "Box<dyn Iterator<Item = i32>>"},
		{annotation: "Point", want: "Point"},
		{annotation: "'Node'", want: "Node"},
		{annotation: "Optional[List[Dict[str, int]]]", want: "Option<Vec<HashMap<String, i32>>>"},
	}
	for _, test := range tests {
		typ, err := typemap.Parse(test.annotation)
		if err != nil {
			t.Errorf("%s: %v", test.annotation, err)
			continue
		}
		if got := types.RustString(typ); got != test.want {
			t.Errorf("%s: got %s but want %s", test.annotation, got, test.want)
		}
	}
}

func TestParseFailure(t *testing.T) {
	m := typemap.New()
	for _, annotation := range []string{"", "List[", "Dict[str int]", "int]", "Optional[int, str]", "3"} {
		typ, err := m.Map(fmterr.Span{Line: 1}, annotation)
		if err == nil {
			t.Errorf("%q: expected an error", annotation)
			continue
		}
		if cat, _ := fmterr.CategoryOf(err); cat != fmterr.AnnotationParse {
			t.Errorf("%q: got category %s but want %s", annotation, cat, fmterr.AnnotationParse)
		}
		if typ != types.UnknownType() {
			t.Errorf("%q: got type %s but want unknown", annotation, typ)
		}
	}
}
