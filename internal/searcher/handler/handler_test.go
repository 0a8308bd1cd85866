package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/redis"
)

type fakeService struct {
	docs      map[string][]uint32
	searchErr error
	reloadErr error
	reloads   int
}

func (f *fakeService) Search(_ context.Context, raw string) (*searcher.Result, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	docs, ok := f.docs[raw]
	if !ok {
		docs = []uint32{}
	}
	return &searcher.Result{
		Query:     raw,
		Mode:      string(parser.Parse(raw).Mode()),
		DocIDs:    docs,
		TotalHits: len(docs),
	}, nil
}

func (f *fakeService) Postings(term string) (map[uint32][]uint32, error) {
	if term == "engine" {
		return map[uint32][]uint32{3: {2}, 5: {1}}, nil
	}
	return map[uint32][]uint32{}, nil
}

func (f *fakeService) Reload(context.Context) error {
	if f.reloadErr != nil {
		return f.reloadErr
	}
	f.reloads++
	return nil
}

func (f *fakeService) IndexInfo() (searcher.IndexInfo, error) {
	return searcher.IndexInfo{Path: "/data/index.bin", Stats: segment.Stats{Terms: 21}}, nil
}

func newServer(svc SearchService, c *cache.QueryCache) http.Handler {
	mux := http.NewServeMux()
	New(svc, c).Register(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("%s %s: decoding body: %v", method, target, err)
	}
	return rec, body
}

func TestSearchEndpoint(t *testing.T) {
	svc := &fakeService{docs: map[string][]uint32{"search AND engine": {3, 5}}}
	srv := newServer(svc, nil)

	rec, body := do(t, srv, http.MethodGet, "/api/v1/search?q=search+AND+engine")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["mode"] != "and" || body["total_hits"] != float64(2) {
		t.Errorf("body = %v", body)
	}
	if !reflect.DeepEqual(body["doc_ids"], []any{float64(3), float64(5)}) {
		t.Errorf("doc_ids = %v", body["doc_ids"])
	}

	_, body = do(t, srv, http.MethodGet, "/api/v1/search?q=zebra")
	if ids, ok := body["doc_ids"].([]any); !ok || len(ids) != 0 {
		t.Errorf("zero-result doc_ids = %#v, want []", body["doc_ids"])
	}
}

func TestSearchEndpointErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"missing q", "/api/v1/search", nil, http.StatusBadRequest},
		{"blank q", "/api/v1/search?q=++", nil, http.StatusBadRequest},
		{"timeout", "/api/v1/search?q=x", fmt.Errorf("%w: %w", apperrors.ErrTimeout, context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"internal", "/api/v1/search?q=x", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, newServer(&fakeService{searchErr: tt.err}, nil), http.MethodGet, tt.target)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if _, ok := body["error"]; !ok {
				t.Errorf("body has no error field: %v", body)
			}
		})
	}
}

func TestPostingsEndpoint(t *testing.T) {
	srv := newServer(&fakeService{}, nil)
	rec, body := do(t, srv, http.MethodGet, "/api/v1/postings?term=Engine")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["term"] != "engine" || body["doc_count"] != float64(2) {
		t.Errorf("body = %v", body)
	}
	postings := body["postings"].(map[string]any)
	if !reflect.DeepEqual(postings["3"], []any{float64(2)}) {
		t.Errorf("postings[3] = %v", postings["3"])
	}

	rec, _ = do(t, srv, http.MethodGet, "/api/v1/postings")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing term status = %d", rec.Code)
	}
}

func TestReloadEndpoint(t *testing.T) {
	svc := &fakeService{}
	srv := newServer(svc, nil)
	rec, body := do(t, srv, http.MethodPost, "/api/v1/index/reload")
	if rec.Code != http.StatusOK || svc.reloads != 1 {
		t.Fatalf("status = %d, reloads = %d", rec.Code, svc.reloads)
	}
	if body["path"] != "/data/index.bin" || body["terms"] != float64(21) {
		t.Errorf("body = %v", body)
	}

	svc.reloadErr = fmt.Errorf("opening index: %w", apperrors.ErrMalformedIndex)
	rec, _ = do(t, srv, http.MethodPost, "/api/v1/index/reload")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("failed reload status = %d", rec.Code)
	}
}

type memStore struct {
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", pkgredis.ErrNil
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = string(value.([]byte))
	return nil
}

func (m *memStore) FlushByPattern(context.Context, string) (int64, error) {
	n := int64(len(m.data))
	m.data = map[string]string{}
	return n, nil
}

func TestCacheEndpoints(t *testing.T) {
	_, body := do(t, newServer(&fakeService{}, nil), http.MethodGet, "/api/v1/cache/stats")
	if body["status"] != "disabled" {
		t.Errorf("disabled stats = %v", body)
	}
	rec, _ := do(t, newServer(&fakeService{}, nil), http.MethodPost, "/api/v1/cache/invalidate")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled invalidate status = %d", rec.Code)
	}

	store := &memStore{data: map[string]string{}}
	c := cache.New(store, time.Minute, nil)
	c.Set(context.Background(), parser.Parse("search"), []uint32{3, 4, 5})
	c.Get(context.Background(), parser.Parse("search"))
	c.Get(context.Background(), parser.Parse("zebra"))

	srv := newServer(&fakeService{}, c)
	_, body = do(t, srv, http.MethodGet, "/api/v1/cache/stats")
	if body["hits"] != float64(1) || body["misses"] != float64(1) || body["hit_rate"] != "50.0%" {
		t.Errorf("stats = %v", body)
	}
	rec, _ = do(t, srv, http.MethodPost, "/api/v1/cache/invalidate")
	if rec.Code != http.StatusOK || len(store.data) != 0 {
		t.Errorf("invalidate status = %d, remaining = %d", rec.Code, len(store.data))
	}
}
