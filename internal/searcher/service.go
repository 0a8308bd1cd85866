package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/resilience"
)

// Tracker receives one event per finished query.
type Tracker interface {
	Track(event analytics.SearchEvent)
}

type Result struct {
	Query     string   `json:"query"`
	Mode      string   `json:"mode"`
	DocIDs    []uint32 `json:"doc_ids"`
	TotalHits int      `json:"total_hits"`
	CacheHit  bool     `json:"cache_hit"`
}

// Service is what the HTTP layer talks to: it pins the current index for
// each query, consults the result cache and reports analytics.
type Service struct {
	holder       *Holder
	cache        *cache.QueryCache
	tracker      Tracker
	queryTimeout time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

type ServiceOption func(*Service)

// WithCache enables result caching.
func WithCache(c *cache.QueryCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithTracker sends a SearchEvent to t after every query.
func WithTracker(t Tracker) ServiceOption {
	return func(s *Service) { s.tracker = t }
}

// WithQueryTimeout bounds execution of a single query. Zero means no limit.
func WithQueryTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.queryTimeout = d }
}

// NewService creates a Service over holder. m may be nil.
func NewService(holder *Holder, m *metrics.Metrics, opts ...ServiceOption) *Service {
	s := &Service{
		holder:  holder,
		metrics: m,
		logger:  slog.Default().With("component", "search-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Search(ctx context.Context, raw string) (*Result, error) {
	start := time.Now()
	q := parser.Parse(raw)

	docs, cacheHit, err := s.search(ctx, q)
	latency := time.Since(start)

	s.observe(latency, cacheHit)
	s.track(ctx, raw, q, len(docs), latency, cacheHit, err)
	if err != nil {
		logger.FromContext(ctx).Error("search failed", "query", raw, "error", err)
		return nil, err
	}

	logger.FromContext(ctx).Info("search completed",
		"query", raw,
		"mode", q.Mode(),
		"total_hits", len(docs),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	return &Result{
		Query:     raw,
		Mode:      string(q.Mode()),
		DocIDs:    docs,
		TotalHits: len(docs),
		CacheHit:  cacheHit,
	}, nil
}

func (s *Service) search(ctx context.Context, q parser.Query) ([]uint32, bool, error) {
	searcher, release, err := s.holder.Acquire()
	if err != nil {
		return nil, false, err
	}
	defer release()

	compute := func() ([]uint32, error) {
		return s.run(ctx, searcher, q)
	}
	if s.cache == nil {
		docs, err := compute()
		return docs, false, err
	}
	return s.cache.GetOrCompute(ctx, q, compute)
}

func (s *Service) run(ctx context.Context, searcher *Searcher, q parser.Query) ([]uint32, error) {
	var docs []uint32
	err := resilience.WithTimeout(ctx, s.queryTimeout, "search", func(ctx context.Context) error {
		var err error
		docs, err = searcher.Run(ctx, q)
		return err
	})
	if err != nil {
		if isContextErr(err) && !errors.Is(err, apperrors.ErrTimeout) {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
		}
		return nil, err
	}
	return docs, nil
}

// Postings returns the decoded postings of term from the current index.
func (s *Service) Postings(term string) (map[uint32][]uint32, error) {
	searcher, release, err := s.holder.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return searcher.Postings(term), nil
}

// Reload swaps in a freshly opened index and drops cached results computed
// against the old one.
func (s *Service) Reload(ctx context.Context) error {
	if err := s.holder.Reload(ctx); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	return nil
}

// Cache returns the result cache, or nil when caching is disabled.
func (s *Service) Cache() *cache.QueryCache {
	return s.cache
}

type IndexInfo struct {
	Path string `json:"path"`
	segment.Stats
}

// IndexInfo describes the index currently being served.
func (s *Service) IndexInfo() (IndexInfo, error) {
	searcher, release, err := s.holder.Acquire()
	if err != nil {
		return IndexInfo{}, err
	}
	defer release()
	return IndexInfo{Path: searcher.Path(), Stats: searcher.Stats()}, nil
}

func (s *Service) observe(latency time.Duration, cacheHit bool) {
	if s.metrics == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	s.metrics.SearchLatency.WithLabelValues(status).Observe(latency.Seconds())
}

func (s *Service) track(ctx context.Context, raw string, q parser.Query, hits int, latency time.Duration, cacheHit bool, err error) {
	if s.tracker == nil {
		return
	}
	s.tracker.Track(analytics.SearchEvent{
		Type:      analytics.Classify(hits, cacheHit, err),
		Query:     raw,
		Mode:      string(q.Mode()),
		TotalHits: hits,
		LatencyUs: latency.Microseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	})
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
