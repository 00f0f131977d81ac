package ordered_test

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/pyrs/base/ordered"
)

type entry struct {
	k string
	v int
}

func collect(m *ordered.Map[string, int]) []entry {
	var got []entry
	for k, v := range m.Iter() {
		got = append(got, entry{k: k, v: v})
	}
	return got
}

func TestMap(t *testing.T) {
	tests := []struct {
		entries []entry
		deleted []string
		want    []entry
	}{
		{
			entries: []entry{{k: "a", v: 1}, {k: "b", v: 2}, {k: "c", v: 3}},
			want:    []entry{{k: "a", v: 1}, {k: "b", v: 2}, {k: "c", v: 3}},
		},
		{
			entries: []entry{{k: "a", v: 1}, {k: "b", v: 2}, {k: "a", v: 3}},
			want:    []entry{{k: "a", v: 3}, {k: "b", v: 2}},
		},
		{
			entries: []entry{{k: "a", v: 1}, {k: "b", v: 2}, {k: "c", v: 3}},
			deleted: []string{"b", "z"},
			want:    []entry{{k: "a", v: 1}, {k: "c", v: 3}},
		},
	}
	for ti, test := range tests {
		m := ordered.NewMap[string, int]()
		for _, e := range test.entries {
			m.Store(e.k, e.v)
		}
		for _, k := range test.deleted {
			m.Delete(k)
		}
		m = m.Clone()
		got := collect(m)
		if !cmp.Equal(got, test.want, cmp.AllowUnexported(entry{})) {
			t.Errorf("test %d: got %v but want %v", ti, got, test.want)
		}
		if m.Size() != len(test.want) {
			t.Errorf("test %d: map has %d entries but want %d", ti, m.Size(), len(test.want))
		}
		keys := slices.Collect(m.Keys())
		values := slices.Collect(m.Values())
		for i, want := range test.want {
			if keys[i] != want.k || values[i] != want.v {
				t.Errorf("test %d entry %d: got %s->%d but want %s->%d", ti, i, keys[i], values[i], want.k, want.v)
			}
			if !m.Has(want.k) {
				t.Errorf("test %d: key %s not found", ti, want.k)
			}
		}
	}
}
