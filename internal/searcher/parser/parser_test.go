package parser

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Query
	}{
		{"search", SingleTerm{Term: "search"}},
		{"  Search  ", SingleTerm{Term: "search"}},
		{"", SingleTerm{Term: ""}},
		{"quick OR dog", Or{Terms: []string{"quick", "dog"}}},
		{"a OR  b OR C", Or{Terms: []string{"a", "b", "c"}}},
		{"search AND engine", And{Terms: []string{"search", "engine"}}},
		{`"information retrieval"`, Phrase{Terms: []string{"information", "retrieval"}}},
		{`"The  Quick fox"`, Phrase{Terms: []string{"the", "quick", "fox"}}},
		{`""`, Phrase{Terms: []string{}}},
		// phrase wins over separators inside the quotes
		{`"cats AND dogs"`, Phrase{Terms: []string{"cats", "and", "dogs"}}},
		// OR binds before AND; the AND stays inside a term
		{"a AND b OR c", Or{Terms: []string{"a and b", "c"}}},
		// separators are case-sensitive
		{"cats and dogs", SingleTerm{Term: "cats and dogs"}},
		{"OR dog", SingleTerm{Term: "or dog"}},
		{`"unbalanced`, SingleTerm{Term: `"unbalanced`}},
		{`"`, SingleTerm{Term: `"`}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Parse(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeyDistinguishesModes(t *testing.T) {
	keys := map[string]Query{}
	for _, q := range []Query{
		SingleTerm{Term: "a"},
		Or{Terms: []string{"a"}},
		And{Terms: []string{"a"}},
		Phrase{Terms: []string{"a"}},
		Or{Terms: []string{"a", "b"}},
		Or{Terms: []string{"a b"}},
	} {
		if prev, dup := keys[q.Key()]; dup {
			t.Errorf("%#v and %#v share key %q", prev, q, q.Key())
		}
		keys[q.Key()] = q
	}
	if Parse("Quick OR Dog").Key() != Parse("quick OR dog").Key() {
		t.Error("normalized queries should share a key")
	}
}
