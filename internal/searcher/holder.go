package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/metrics"
)

// ErrClosed is returned by Acquire and Reload after Close.
var ErrClosed = errors.New("searcher holder is closed")

// OpenFunc opens a fresh Searcher.
type OpenFunc func() (*Searcher, error)

type generation struct {
	searcher *Searcher
	inFlight sync.WaitGroup
}

// Holder serves queries from the current Searcher and replaces it on
// Reload. A replaced Searcher is closed once the queries that acquired it
// have released it, or after the drain timeout.
type Holder struct {
	mu           sync.RWMutex
	current      *generation
	open         OpenFunc
	drainTimeout time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
	closed       bool

	reloadMu sync.Mutex
}

// NewHolder opens the first Searcher and fails if that fails. m may be nil.
func NewHolder(open OpenFunc, drainTimeout time.Duration, m *metrics.Metrics) (*Holder, error) {
	s, err := open()
	if err != nil {
		return nil, err
	}
	return &Holder{
		current:      &generation{searcher: s},
		open:         open,
		drainTimeout: drainTimeout,
		metrics:      m,
		logger:       slog.Default().With("component", "searcher-holder"),
	}, nil
}

// Acquire pins the current Searcher until release is called.
func (h *Holder) Acquire() (s *Searcher, release func(), err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, nil, ErrClosed
	}
	gen := h.current
	gen.inFlight.Add(1)
	var once sync.Once
	return gen.searcher, func() { once.Do(gen.inFlight.Done) }, nil
}

// Reload opens a new Searcher and swaps it in. On failure the current
// Searcher keeps serving. Concurrent calls are serialized.
func (h *Holder) Reload(ctx context.Context) error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	start := time.Now()
	next, err := h.open()
	if err != nil {
		h.recordReload("failure")
		h.logger.Error("index reload failed, keeping current index", "error", err)
		return fmt.Errorf("reloading index: %w", err)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		next.Close()
		return ErrClosed
	}
	old := h.current
	h.current = &generation{searcher: next}
	h.mu.Unlock()

	h.recordReload("success")
	h.logger.Info("index reloaded",
		"path", next.Path(),
		"terms", next.Stats().Terms,
		"open_duration", time.Since(start),
	)
	h.retire(ctx, old)
	return nil
}

// Close closes the current Searcher after draining its in-flight queries.
func (h *Holder) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	gen := h.current
	h.mu.Unlock()
	return h.retire(context.Background(), gen)
}

func (h *Holder) retire(ctx context.Context, gen *generation) error {
	drained := make(chan struct{})
	go func() {
		gen.inFlight.Wait()
		close(drained)
	}()

	var timeout <-chan time.Time
	if h.drainTimeout > 0 {
		timer := time.NewTimer(h.drainTimeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-drained:
	case <-timeout:
		h.logger.Warn("drain timeout reached, closing index with queries in flight",
			"path", gen.searcher.Path(),
			"timeout", h.drainTimeout,
		)
	case <-ctx.Done():
		h.logger.Warn("drain interrupted, closing index", "path", gen.searcher.Path(), "reason", ctx.Err())
	}
	return gen.searcher.Close()
}

func (h *Holder) recordReload(status string) {
	if h.metrics != nil {
		h.metrics.IndexReloadsTotal.WithLabelValues(status).Inc()
	}
}
