package corpus

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

const maxLineBytes = 16 << 20

// jsonlRecord accepts both "text" and "body" for the document body and a
// numeric or string "id".
type jsonlRecord struct {
	ID    json.RawMessage `json:"id"`
	Title string          `json:"title"`
	Text  string          `json:"text"`
	Body  string          `json:"body"`
}

// JSONLSource reads one JSON object per line. Blank lines are skipped.
type JSONLSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// OpenJSONL opens the JSON-lines file at path.
func OpenJSONL(path string) (*JSONLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus %s: %w", path, err)
	}
	src := NewJSONLSource(f)
	src.closer = f
	return src, nil
}

// NewJSONLSource reads documents from r. Close does not close r.
func NewJSONLSource(r io.Reader) *JSONLSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &JSONLSource{scanner: scanner}
}

func (s *JSONLSource) Next(ctx context.Context) (Document, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Document{}, fmt.Errorf("reading corpus line %d: %w", s.line+1, err)
			}
			return Document{}, io.EOF
		}
		s.line++
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec jsonlRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return Document{}, fmt.Errorf("%w: corpus line %d: %w", apperrors.ErrInvalidInput, s.line, err)
		}
		doc := Document{ID: rawID(rec.ID), Title: rec.Title, Text: rec.Text}
		if doc.Text == "" {
			doc.Text = rec.Body
		}
		if doc.ID == "" {
			doc.ID = strconv.Itoa(s.line)
		}
		return doc, nil
	}
}

func (s *JSONLSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return string(raw)
}
