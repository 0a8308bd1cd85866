// Package indexer scans a corpus into an in-memory positional index and
// persists it as an uncompressed JSON file and as the compressed index file
// the searcher serves from.
package indexer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/postings"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
)

const progressEvery = 10000

// BuildStats summarizes a compressed index written by CompressAndSave.
type BuildStats struct {
	segment.Stats
	Docs     int           `json:"docs"`
	Duration time.Duration `json:"duration"`
}

// Builder owns one in-memory index. It is not safe to run two Builds on the
// same Builder concurrently.
type Builder struct {
	memIndex  *index.MemoryIndex
	tokenizer *tokenizer.Tokenizer
	metrics   *metrics.Metrics
	logger    *slog.Logger
	nextDoc   uint64
	buildTime time.Duration
}

// NewBuilder creates a Builder. m may be nil.
func NewBuilder(tok *tokenizer.Tokenizer, m *metrics.Metrics) *Builder {
	return &Builder{
		memIndex:  index.NewMemoryIndex(),
		tokenizer: tok,
		metrics:   m,
		logger:    slog.Default().With("component", "indexer"),
	}
}

// Build reads src to the end, numbering documents 0, 1, 2, ... in arrival
// order, and returns how many documents it added. Calling Build again
// appends to the same index with the numbering continued.
func (b *Builder) Build(ctx context.Context, src corpus.Source) (int, error) {
	start := time.Now()
	added := 0
	for {
		doc, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return added, fmt.Errorf("reading corpus: %w", err)
		}
		if b.nextDoc > math.MaxUint32 {
			return added, fmt.Errorf("corpus exceeds %d documents", uint64(math.MaxUint32)+1)
		}
		docID := uint32(b.nextDoc)
		terms := b.tokenizer.Tokenize(doc.Content())
		if !b.memIndex.AddDocument(docID, terms) {
			return added, fmt.Errorf("document %d added out of order", docID)
		}
		b.nextDoc++
		added++
		if b.metrics != nil {
			b.metrics.DocsIndexedTotal.Inc()
		}
		b.logger.Debug("document indexed",
			"doc_id", docID,
			"source_id", doc.ID,
			"token_count", len(terms),
		)
		if added%progressEvery == 0 {
			b.logger.Info("indexing progress",
				"docs", added,
				"terms", b.memIndex.TermCount(),
				"mem_size", b.memIndex.Size(),
			)
		}
	}
	b.buildTime += time.Since(start)
	b.logger.Info("corpus scanned",
		"docs", added,
		"terms", b.memIndex.TermCount(),
		"duration", time.Since(start),
	)
	return added, nil
}

// Index exposes the in-memory index.
func (b *Builder) Index() *index.MemoryIndex {
	return b.memIndex
}

// SaveJSON writes the uncompressed index as
// {"term": {"<doc_id>": [positions...]}, ...} in first-seen term order.
func (b *Builder) SaveJSON(path string) error {
	return writeAtomic(path, func(w *bufio.Writer) error {
		return writeJSONIndex(w, b.memIndex.Snapshot())
	})
}

// CompressAndSave encodes every postings list and writes the compressed
// index file to path.
func (b *Builder) CompressAndSave(path string) (BuildStats, error) {
	start := time.Now()
	entries := b.memIndex.Snapshot()
	dict, blob, err := postings.Compress(entries)
	if err != nil {
		b.recordBuild("failure")
		return BuildStats{}, fmt.Errorf("compressing index: %w", err)
	}
	st, err := segment.Write(path, dict, blob)
	if err != nil {
		b.recordBuild("failure")
		return BuildStats{}, fmt.Errorf("writing index: %w", err)
	}
	b.recordBuild("success")
	stats := BuildStats{
		Stats:    st,
		Docs:     b.memIndex.DocCount(),
		Duration: b.buildTime + time.Since(start),
	}
	b.logger.Info("compressed index written",
		"path", path,
		"terms", stats.Terms,
		"docs", stats.Docs,
		"blob_bytes", stats.BlobBytes,
		"file_bytes", stats.FileBytes,
	)
	return stats, nil
}

func (b *Builder) recordBuild(status string) {
	if b.metrics != nil {
		b.metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
	}
}

func writeJSONIndex(w *bufio.Writer, entries []index.TermEntry) error {
	w.WriteByte('{')
	for i, entry := range entries {
		if i > 0 {
			w.WriteString(", ")
		}
		key, err := json.Marshal(entry.Term)
		if err != nil {
			return fmt.Errorf("encoding term %q: %w", entry.Term, err)
		}
		w.Write(key)
		w.WriteString(": {")
		for j, p := range entry.Postings {
			if j > 0 {
				w.WriteString(", ")
			}
			w.WriteByte('"')
			w.WriteString(strconv.FormatUint(uint64(p.DocID), 10))
			w.WriteString(`": [`)
			for k, pos := range p.Positions {
				if k > 0 {
					w.WriteString(", ")
				}
				w.WriteString(strconv.FormatUint(uint64(pos), 10))
			}
			w.WriteByte(']')
		}
		w.WriteByte('}')
	}
	return w.WriteByte('}')
}

// writeAtomic writes through a buffered .tmp sibling and renames it over path.
func writeAtomic(path string, fill func(w *bufio.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmpPath, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := fill(w); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := w.Flush(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("syncing %s: %w", tmpPath, err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s: %w", tmpPath, err)
	}
	return nil
}
