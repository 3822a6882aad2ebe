package database

import (
	"reflect"
	"testing"
)

func TestPlaceholderGenerator_Positional(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		delimiter string
		want      string
	}{
		{name: "three", count: 3, delimiter: DefaultDelimiter, want: "$1, $2, $3"},
		{name: "one", count: 1, delimiter: DefaultDelimiter, want: "$1"},
		{name: "custom delimiter", count: 2, delimiter: "|", want: "$1|$2"},
		{name: "zero", count: 0, delimiter: DefaultDelimiter, want: ""},
		{name: "negative", count: -1, delimiter: DefaultDelimiter, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewPlaceholderGenerator()
			if got := g.Positional(tt.count, tt.delimiter); got != tt.want {
				t.Errorf("Positional(%d) = %q, want %q", tt.count, got, tt.want)
			}
			if g.Counter() != 0 {
				t.Errorf("Positional advanced counter to %d", g.Counter())
			}
		})
	}
}

func TestPlaceholderGenerator_PositionalDoesNotAdvance(t *testing.T) {
	g := NewPlaceholderGenerator()

	first := g.Positional(2, DefaultDelimiter)
	second := g.Positional(2, DefaultDelimiter)

	if first != second {
		t.Errorf("consecutive Positional calls differ: %q vs %q", first, second)
	}
}

func TestPlaceholderGenerator_Assign(t *testing.T) {
	g := NewPlaceholderGenerator()

	set := g.Assign(Fields{}.Set("name", "ada").Set("age", 36), DefaultDelimiter)
	if set != `"name"=$1, "age"=$2` {
		t.Errorf("Assign(set) = %q", set)
	}
	if g.Counter() != 2 {
		t.Errorf("Counter() = %d after two keys, want 2", g.Counter())
	}

	where := g.Assign(Fields{}.Set("id", 7).Set("org", 3), whereDelimiter)
	if where != `"id"=$3 AND "org"=$4` {
		t.Errorf("Assign(where) = %q", where)
	}
	if g.Counter() != 4 {
		t.Errorf("Counter() = %d after four keys, want 4", g.Counter())
	}
}

func TestPlaceholderGenerator_AssignEmpty(t *testing.T) {
	g := NewPlaceholderGenerator()

	if got := g.Assign(nil, DefaultDelimiter); got != "" {
		t.Errorf("Assign(nil) = %q, want empty", got)
	}
	if g.Counter() != 0 {
		t.Errorf("Counter() = %d, want 0", g.Counter())
	}
}

func TestPlaceholderGenerator_AssignQuotesColumns(t *testing.T) {
	g := NewPlaceholderGenerator()

	got := g.Assign(Fields{}.Set(`na"me`, 1), DefaultDelimiter)
	if got != `"na""me"=$1` {
		t.Errorf("Assign() = %q, want embedded quote doubled", got)
	}
}

// Indices across Assign calls are contiguous and start at 1.
func TestPlaceholderGenerator_Monotonic(t *testing.T) {
	g := NewPlaceholderGenerator()
	sizes := []int{1, 3, 0, 2, 5}

	next := 1
	for _, size := range sizes {
		var fields Fields
		for i := 0; i < size; i++ {
			fields = fields.Set("c", i)
		}
		before := g.Counter()
		g.Assign(fields, DefaultDelimiter)

		if g.Counter() != before+size {
			t.Fatalf("Counter() = %d, want %d", g.Counter(), before+size)
		}
		next += size
	}

	if g.Counter() != next-1 {
		t.Errorf("final Counter() = %d, want %d", g.Counter(), next-1)
	}
}

func TestPlaceholderGenerator_Values(t *testing.T) {
	g := NewPlaceholderGenerator()
	set := Fields{}.Set("name", "ada").Set("age", 36)
	where := Fields{}.Set("id", 7)

	g.Assign(set, DefaultDelimiter)
	g.Assign(where, whereDelimiter)

	got := g.Values(set, where)
	want := []any{"ada", 36, 7}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
	if len(got) != g.Counter() {
		t.Errorf("len(Values()) = %d, placeholders = %d", len(got), g.Counter())
	}
}

func TestPlaceholderGenerator_ValuesSkipsNil(t *testing.T) {
	g := NewPlaceholderGenerator()
	set := Fields{}.Set("name", "ada")

	got := g.Values(nil, set, nil)
	want := []any{"ada"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}

	empty := g.Values()
	if empty == nil || len(empty) != 0 {
		t.Errorf("Values() with no entries = %#v, want empty non-nil slice", empty)
	}
}

func TestPlaceholderGenerator_ValuesKeepsNilValues(t *testing.T) {
	g := NewPlaceholderGenerator()

	got := g.Values(Fields{}.Set("note", nil))
	if len(got) != 1 || got[0] != nil {
		t.Errorf("Values() = %#v, want a single nil value", got)
	}
}

func TestFields_Columns(t *testing.T) {
	fields := Fields{}.Set("b", 1).Set("a", 2)

	if got := fields.Columns(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("Columns() = %v, want insertion order", got)
	}
}
