// Package searcher answers queries against one compressed index file. A
// Searcher owns the open file for its whole lifetime; Holder swaps Searchers
// when a new index is published.
package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
)

type Searcher struct {
	reader    *segment.Reader
	stopWords *tokenizer.StopWords
	executor  *executor.Executor
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Open loads the stop-word list and then the index file named by cfg. Either
// one missing fails construction; nothing stays open on failure. m may be
// nil.
func Open(cfg config.IndexConfig, m *metrics.Metrics) (*Searcher, error) {
	stopWords, err := tokenizer.LoadStopWords(cfg.StopWordsPath)
	if err != nil {
		return nil, fmt.Errorf("loading stop words: %w", err)
	}
	var opts []segment.Option
	if m != nil {
		opts = append(opts, segment.WithMetrics(m))
	}
	reader, err := segment.OpenReader(cfg.ArtifactPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	s := New(reader, stopWords, m)
	s.logger.Info("index opened",
		"path", cfg.ArtifactPath,
		"terms", reader.TermCount(),
		"blob_bytes", reader.BlobSize(),
		"stop_words", stopWords.Len(),
	)
	if m != nil {
		m.IndexTerms.Set(float64(reader.TermCount()))
		m.IndexBlobBytes.Set(float64(reader.BlobSize()))
	}
	return s, nil
}

// New wraps an already open reader. The Searcher takes ownership of it.
func New(reader *segment.Reader, stopWords *tokenizer.StopWords, m *metrics.Metrics) *Searcher {
	return &Searcher{
		reader:    reader,
		stopWords: stopWords,
		executor:  executor.New(reader, stopWords),
		metrics:   m,
		logger:    slog.Default().With("component", "searcher"),
	}
}

// Search parses and runs a raw query string.
func (s *Searcher) Search(ctx context.Context, query string) ([]uint32, error) {
	return s.Run(ctx, parser.Parse(query))
}

// Run executes an already parsed query.
func (s *Searcher) Run(ctx context.Context, q parser.Query) ([]uint32, error) {
	docs, err := s.executor.Execute(ctx, q)
	if s.metrics != nil {
		result := "hit"
		switch {
		case err != nil:
			result = "error"
		case len(docs) == 0:
			result = "zero_result"
		}
		mode := "invalid"
		if q != nil {
			mode = string(q.Mode())
		}
		s.metrics.SearchQueriesTotal.WithLabelValues(mode, result).Inc()
		if err == nil {
			s.metrics.SearchResultsCount.Observe(float64(len(docs)))
		}
	}
	return docs, err
}

// Postings returns doc_id -> positions for one term. The term is trimmed and
// lower-cased; unknown or corrupt entries give an empty map.
func (s *Searcher) Postings(term string) map[uint32][]uint32 {
	return s.reader.Postings(strings.ToLower(strings.TrimSpace(term))).Map()
}

func (s *Searcher) Stats() segment.Stats {
	return s.reader.Stats()
}

func (s *Searcher) Path() string {
	return s.reader.Path()
}

// Close releases the index file. It is safe to call more than once.
func (s *Searcher) Close() error {
	return s.reader.Close()
}
