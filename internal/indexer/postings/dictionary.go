package postings

import (
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf16"

	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

// Span locates one term's compressed run inside the postings blob.
type Span struct {
	Offset int64
	Size   int64
}

// End is the blob offset one past the span's last byte.
func (s Span) End() int64 {
	return s.Offset + s.Size
}

// Dictionary maps terms to spans and remembers insertion order, which is the
// order the runs were appended to the blob.
type Dictionary struct {
	terms []string
	spans map[string]Span
}

func NewDictionary(capacity int) *Dictionary {
	return &Dictionary{
		terms: make([]string, 0, capacity),
		spans: make(map[string]Span, capacity),
	}
}

func (d *Dictionary) Add(term string, span Span) error {
	if _, exists := d.spans[term]; exists {
		return fmt.Errorf("%w: duplicate term %q", apperrors.ErrInvalidInput, term)
	}
	if span.Offset < 0 || span.Size < 0 {
		return fmt.Errorf("%w: negative span for term %q", apperrors.ErrInvalidInput, term)
	}
	d.terms = append(d.terms, term)
	d.spans[term] = span
	return nil
}

func (d *Dictionary) Lookup(term string) (Span, bool) {
	span, ok := d.spans[term]
	return span, ok
}

// Terms returns the terms in blob order.
func (d *Dictionary) Terms() []string {
	out := make([]string, len(d.terms))
	copy(out, d.terms)
	return out
}

func (d *Dictionary) Len() int {
	return len(d.terms)
}

// BlobSize is the sum of all span sizes.
func (d *Dictionary) BlobSize() int64 {
	var total int64
	for _, span := range d.spans {
		total += span.Size
	}
	return total
}

// MarshalJSON writes {"term": [offset, size], ...} in blob order using the
// ", " and ": " separators and \uXXXX escapes for non-ASCII runes.
func (d *Dictionary) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 16*len(d.terms)+2)
	buf = append(buf, '{')
	for i, term := range d.terms {
		if i > 0 {
			buf = append(buf, ", "...)
		}
		span := d.spans[term]
		buf = appendQuotedASCII(buf, term)
		buf = fmt.Appendf(buf, ": [%d, %d]", span.Offset, span.Size)
	}
	buf = append(buf, '}')
	return buf, nil
}

// UnmarshalJSON accepts any JSON object of term -> [offset, size]. Blob order
// is recovered by sorting on offset.
func (d *Dictionary) UnmarshalJSON(data []byte) error {
	var raw map[string][]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: dictionary: %w", apperrors.ErrMalformedIndex, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: dictionary is not an object", apperrors.ErrMalformedIndex)
	}
	spans := make(map[string]Span, len(raw))
	terms := make([]string, 0, len(raw))
	for term, pair := range raw {
		if len(pair) != 2 || pair[0] < 0 || pair[1] < 0 {
			return fmt.Errorf("%w: bad span %v for term %q", apperrors.ErrMalformedIndex, pair, term)
		}
		spans[term] = Span{Offset: pair[0], Size: pair[1]}
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		a, b := spans[terms[i]], spans[terms[j]]
		if a.Offset != b.Offset {
			return a.Offset < b.Offset
		}
		return terms[i] < terms[j]
	})
	d.terms = terms
	d.spans = spans
	return nil
}

func appendQuotedASCII(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for _, r := range s {
		switch r {
		case '"':
			dst = append(dst, `\"`...)
		case '\\':
			dst = append(dst, `\\`...)
		case '\n':
			dst = append(dst, `\n`...)
		case '\r':
			dst = append(dst, `\r`...)
		case '\t':
			dst = append(dst, `\t`...)
		case '\b':
			dst = append(dst, `\b`...)
		case '\f':
			dst = append(dst, `\f`...)
		default:
			switch {
			case r < 0x20:
				dst = fmt.Appendf(dst, `\u%04x`, r)
			case r < 0x80:
				dst = append(dst, byte(r))
			case r < 0x10000:
				dst = fmt.Appendf(dst, `\u%04x`, r)
			default:
				hi, lo := utf16.EncodeRune(r)
				dst = fmt.Appendf(dst, `\u%04x\u%04x`, hi, lo)
			}
		}
	}
	return append(dst, '"')
}
