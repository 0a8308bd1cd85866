package tokenizer

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

func loadTestStopWords(t *testing.T) *StopWords {
	t.Helper()
	sw, err := LoadStopWords(filepath.Join("testdata", "stop_words.txt"))
	if err != nil {
		t.Fatalf("LoadStopWords: %v", err)
	}
	return sw
}

func TestTokenize(t *testing.T) {
	tok := New(loadTestStopWords(t))
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "sentence with punctuation",
			in:   `The quick brown fox ran 1.5 miles to his "ultra-secret" den, but couldn't get in!`,
			want: []string{"quick", "brown", "fox", "ran", "1", "5", "miles", "ultra-secret", "den", "couldnt", "get"},
		},
		{name: "empty", in: "", want: []string{}},
		{name: "only stop words", in: "the and of", want: []string{}},
		{name: "curly apostrophe", in: "Rock’n’Roll", want: []string{"rocknroll"}},
		{name: "edge hyphens trimmed", in: "--dash-- -x- ---", want: []string{"dash", "x"}},
		{name: "unicode letters kept", in: "Café NAÏVE", want: []string{"café", "naïve"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Tokenize(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokensPositionsCountKeptTerms(t *testing.T) {
	tok := New(NewStopWords("the", "of"))
	got := tok.Tokens("The history of the search engine")
	want := []Token{
		{Term: "history", Position: 0},
		{Term: "search", Position: 1},
		{Term: "engine", Position: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens() = %+v, want %+v", got, want)
	}
}

func TestNilStopWords(t *testing.T) {
	tok := New(nil)
	if got := tok.Tokenize("the fox"); !reflect.DeepEqual(got, []string{"the", "fox"}) {
		t.Errorf("Tokenize = %q", got)
	}
}

func TestReadStopWordsSkipsBlankLines(t *testing.T) {
	sw, err := ReadStopWords(strings.NewReader("a\n\n  the \r\nof\n"))
	if err != nil {
		t.Fatal(err)
	}
	if sw.Len() != 3 || !sw.Contains("the") || sw.Contains("") {
		t.Errorf("unexpected set: len=%d", sw.Len())
	}
}

func TestLoadStopWordsMissingFile(t *testing.T) {
	_, err := LoadStopWords(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, apperrors.ErrStopWordsNotFound) {
		t.Fatalf("error = %v, want ErrStopWordsNotFound", err)
	}
}

func BenchmarkTokenize(b *testing.B) {
	tok := New(NewStopWords("the", "a", "of", "to", "in"))
	text := strings.Repeat("The quick brown fox jumps over the lazy dog in a search engine. ", 50)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tok.Tokenize(text)
	}
}
