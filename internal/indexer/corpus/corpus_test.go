package corpus

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

func drain(t *testing.T, src Source) []Document {
	t.Helper()
	var docs []Document
	for {
		doc, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return docs
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		docs = append(docs, doc)
	}
}

func TestJSONLSource(t *testing.T) {
	input := strings.Join([]string{
		`{"id": 7, "title": "Foxes", "text": "The quick brown fox"}`,
		``,
		`{"id": "doc-b", "body": "Body only"}`,
		`{"title": "Title only"}`,
	}, "\n")
	docs := drain(t, NewJSONLSource(strings.NewReader(input)))
	if len(docs) != 3 {
		t.Fatalf("got %d documents, want 3", len(docs))
	}
	tests := []struct {
		doc     Document
		id      string
		content string
	}{
		{docs[0], "7", "Foxes\nThe quick brown fox"},
		{docs[1], "doc-b", "Body only"},
		{docs[2], "4", "Title only"},
	}
	for _, tt := range tests {
		if tt.doc.ID != tt.id {
			t.Errorf("ID = %q, want %q", tt.doc.ID, tt.id)
		}
		if got := tt.doc.Content(); got != tt.content {
			t.Errorf("Content() = %q, want %q", got, tt.content)
		}
	}
}

func TestJSONLSourceBadLine(t *testing.T) {
	src := NewJSONLSource(strings.NewReader("{\"text\": \"ok\"}\nnot json\n"))
	if _, err := src.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := src.Next(context.Background())
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error %q does not name the line", err)
	}
}

func TestJSONLSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewJSONLSource(strings.NewReader(`{"text": "x"}`))
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestOpenJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	if err := os.WriteFile(path, []byte(`{"text": "one"}`+"\n"+`{"text": "two"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	src, err := OpenJSONL(path)
	if err != nil {
		t.Fatal(err)
	}
	if docs := drain(t, src); len(docs) != 2 || docs[1].Text != "two" {
		t.Errorf("docs = %+v", docs)
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if _, err := OpenJSONL(filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Error("expected error for missing corpus")
	}
}
