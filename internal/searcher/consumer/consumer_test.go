package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer"
)

type countingReloader struct {
	calls int
	err   error
}

func (c *countingReloader) Reload(context.Context) error {
	c.calls++
	return c.err
}

func encode(t *testing.T, e indexer.IndexBuiltEvent) []byte {
	t.Helper()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleIndexBuilt(t *testing.T) {
	tests := []struct {
		name      string
		value     []byte
		reloadErr error
		wantCalls int
		wantErr   bool
	}{
		{"matching path", encode(t, indexer.IndexBuiltEvent{Path: "/data/./index.bin"}), nil, 1, false},
		{"other path", encode(t, indexer.IndexBuiltEvent{Path: "/data/other.bin"}), nil, 0, false},
		{"garbage", []byte("{"), nil, 0, false},
		{"reload fails", encode(t, indexer.IndexBuiltEvent{Path: "/data/index.bin"}), errors.New("bad file"), 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &countingReloader{err: tt.reloadErr}
			err := HandleIndexBuilt(r, "/data/index.bin")(context.Background(), []byte("index"), tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if r.calls != tt.wantCalls {
				t.Errorf("Reload called %d times, want %d", r.calls, tt.wantCalls)
			}
		})
	}
}
