// Package corpus supplies documents to the index builder. Sources yield
// documents in a stable order; the builder numbers them 0, 1, 2, ... as they
// arrive.
package corpus

import (
	"context"
)

// Document is one unit of text to index. ID is the source's own identifier,
// kept for logging only; the index uses arrival order.
type Document struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Content is the text that gets tokenized: the title followed by the body.
func (d Document) Content() string {
	switch {
	case d.Title == "":
		return d.Text
	case d.Text == "":
		return d.Title
	default:
		return d.Title + "\n" + d.Text
	}
}

// Source yields documents until it returns io.EOF.
type Source interface {
	Next(ctx context.Context) (Document, error)
	Close() error
}
