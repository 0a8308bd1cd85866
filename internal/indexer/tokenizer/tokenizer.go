// Package tokenizer provides text tokenisation for the search engine.
// It lower-cases input, drops apostrophes, splits on non-alphanumeric
// boundaries while keeping interior hyphens, and removes stop-words.
package tokenizer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode"

	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

// StopWords is an immutable set of words excluded from the index and from
// phrase queries.
type StopWords struct {
	words map[string]struct{}
}

// NewStopWords builds a set from the given words.
func NewStopWords(words ...string) *StopWords {
	sw := &StopWords{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			sw.words[w] = struct{}{}
		}
	}
	return sw
}

// LoadStopWords reads one stop-word per line. A missing file is reported as
// ErrStopWordsNotFound.
func LoadStopWords(path string) (*StopWords, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrStopWordsNotFound, path)
		}
		return nil, fmt.Errorf("opening stop-word list: %w", err)
	}
	defer f.Close()
	return ReadStopWords(f)
}

// ReadStopWords reads one stop-word per line from r.
func ReadStopWords(r io.Reader) (*StopWords, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stop-word list: %w", err)
	}
	return NewStopWords(words...), nil
}

func (s *StopWords) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[word]
	return ok
}

func (s *StopWords) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}

// Token represents a single normalised term and its position among the
// document's kept tokens.
type Token struct {
	Term     string
	Position int
}

// Tokenizer turns raw text into normalised terms.
type Tokenizer struct {
	stopWords *StopWords
}

func New(stopWords *StopWords) *Tokenizer {
	return &Tokenizer{stopWords: stopWords}
}

// Tokenize returns the normalised terms of text in order.
func (t *Tokenizer) Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = strings.NewReplacer("'", "", "’", "").Replace(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	terms := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.Trim(word, "-")
		if word == "" {
			continue
		}
		if t.stopWords.Contains(word) {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// Tokens is Tokenize with each term's position attached.
func (t *Tokenizer) Tokens(text string) []Token {
	terms := t.Tokenize(text)
	tokens := make([]Token, len(terms))
	for i, term := range terms {
		tokens[i] = Token{Term: term, Position: i}
	}
	return tokens
}

// StopWords returns the set the tokenizer filters with.
func (t *Tokenizer) StopWords() *StopWords {
	return t.stopWords
}
