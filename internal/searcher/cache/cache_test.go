package cache

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/parser"
	pkgredis "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/resilience"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	err  error
	gets atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.gets.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	v, ok := s.data[key]
	if !ok {
		return "", pkgredis.ErrNil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func TestGetOrCompute(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	ctx := context.Background()
	q := parser.Parse("search AND engine")

	calls := 0
	compute := func() ([]uint32, error) {
		calls++
		return []uint32{3, 5}, nil
	}
	docs, hit, err := c.GetOrCompute(ctx, q, compute)
	if err != nil || hit || !reflect.DeepEqual(docs, []uint32{3, 5}) {
		t.Fatalf("first call = %v, %v, %v", docs, hit, err)
	}
	docs, hit, err = c.GetOrCompute(ctx, parser.Parse("Search AND Engine"), compute)
	if err != nil || !hit || !reflect.DeepEqual(docs, []uint32{3, 5}) {
		t.Fatalf("second call = %v, %v, %v", docs, hit, err)
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses", hits, misses)
	}
}

func TestEmptyResultCachedAsEmpty(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	ctx := context.Background()
	q := parser.Parse("zebra")
	c.Set(ctx, q, []uint32{})
	docs, ok := c.Get(ctx, q)
	if !ok || docs == nil || len(docs) != 0 {
		t.Errorf("Get = %#v, %v", docs, ok)
	}
}

func TestComputeErrorNotCached(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), parser.Parse("x"), func() ([]uint32, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if len(store.data) != 0 {
		t.Errorf("error result was cached: %v", store.data)
	}
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	store.data["unrelated"] = "keep"
	c := New(store, time.Minute, nil)
	ctx := context.Background()
	c.Set(ctx, parser.Parse("a"), []uint32{1})
	c.Set(ctx, parser.Parse("b"), []uint32{2})
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(ctx, parser.Parse("a")); ok {
		t.Error("entry survived invalidation")
	}
	if store.data["unrelated"] != "keep" {
		t.Error("foreign key deleted")
	}
}

func TestBreakerOpensOnStoreFailure(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := New(store, time.Minute, nil)
	ctx := context.Background()
	q := parser.Parse("search")

	for i := 0; i < 5; i++ {
		docs, hit, err := c.GetOrCompute(ctx, q, func() ([]uint32, error) { return []uint32{1}, nil })
		if err != nil || hit || !reflect.DeepEqual(docs, []uint32{1}) {
			t.Fatalf("call %d = %v, %v, %v", i, docs, hit, err)
		}
	}
	if c.BreakerState() != resilience.StateOpen {
		t.Fatalf("breaker state = %v, want open", c.BreakerState())
	}
	before := store.gets.Load()
	c.Get(ctx, q)
	if store.gets.Load() != before {
		t.Error("open breaker still called the store")
	}
}

func TestBuildKeyStable(t *testing.T) {
	a := BuildKey(parser.Parse("quick OR dog"))
	b := BuildKey(parser.Parse(" Quick OR DOG "))
	if a != b || !strings.HasPrefix(a, keyPrefix) {
		t.Errorf("keys %q and %q", a, b)
	}
	if a == BuildKey(parser.Parse("quick AND dog")) {
		t.Error("OR and AND share a key")
	}
}
