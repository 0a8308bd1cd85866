// Package consumer listens for index-built events and hot-swaps the index
// the searcher is serving.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/kafka"
)

// Reloader reopens the served index. *searcher.Service satisfies it.
type Reloader interface {
	Reload(ctx context.Context) error
}

// HandleIndexBuilt returns a Kafka MessageHandler that reloads r whenever an
// index is published at servedPath. Events for other paths are acknowledged
// and ignored. A failed reload is returned so the message is not committed.
func HandleIndexBuilt(r Reloader, servedPath string) kafka.MessageHandler {
	logger := slog.Default().With("component", "reload-consumer")
	want := filepath.Clean(servedPath)
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[indexer.IndexBuiltEvent](value)
		if err != nil {
			logger.Error("failed to decode index event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if filepath.Clean(event.Path) != want {
			logger.Debug("ignoring index event for another path", "path", event.Path)
			return nil
		}

		logger.Info("new index published",
			"path", event.Path,
			"docs", event.Docs,
			"terms", event.Terms,
			"built_at", event.BuiltAt,
		)
		if err := r.Reload(ctx); err != nil {
			return fmt.Errorf("reloading after build of %s: %w", event.Path, err)
		}
		return nil
	}
}
