package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/logger"
)

type SearchService interface {
	Search(ctx context.Context, raw string) (*searcher.Result, error)
	Postings(term string) (map[uint32][]uint32, error)
	Reload(ctx context.Context) error
	IndexInfo() (searcher.IndexInfo, error)
}

type Handler struct {
	service SearchService
	cache   *cache.QueryCache
	logger  *slog.Logger
}

// New creates a Handler. queryCache may be nil when caching is disabled.
func New(service SearchService, queryCache *cache.QueryCache) *Handler {
	return &Handler{
		service: service,
		cache:   queryCache,
		logger:  slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every search route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/postings", h.Postings)
	mux.HandleFunc("GET /api/v1/index", h.Index)
	mux.HandleFunc("POST /api/v1/index/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeFailure(w, r, "bad search request", apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	result, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.writeFailure(w, r, "search failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type postingsResponse struct {
	Term     string              `json:"term"`
	Postings map[uint32][]uint32 `json:"postings"`
	DocCount int                 `json:"doc_count"`
}

func (h *Handler) Postings(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("term")))
	if term == "" {
		h.writeFailure(w, r, "bad postings request", apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'term' is required"))
		return
	}
	postings, err := h.service.Postings(term)
	if err != nil {
		h.writeFailure(w, r, "postings lookup failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, postingsResponse{
		Term:     term,
		Postings: postings,
		DocCount: len(postings),
	})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.IndexInfo()
	if err != nil {
		h.writeFailure(w, r, "index unavailable", err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reload(r.Context()); err != nil {
		h.writeFailure(w, r, "index reload failed", err)
		return
	}
	logger.FromContext(r.Context()).Info("index reloaded on request")
	h.Index(w, r)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.writeFailure(w, r, "cache invalidation failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// writeFailure maps err to a status code. Client errors echo the cause;
// everything else gets only message.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status < http.StatusInternalServerError {
		log.Warn(message, "status", status, "error", err)
		message = err.Error()
	} else {
		log.Error(message, "status", status, "error", err)
	}
	h.writeError(w, status, message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
