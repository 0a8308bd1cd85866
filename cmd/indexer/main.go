// Command indexer builds the positional index for a corpus and writes it
// twice: as an uncompressed JSON file and as the compressed index file the
// searcher serves. With Kafka enabled it then announces the new build so
// running searchers reload.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml] [-corpus data/corpus.jsonl]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	corpusPath := flag.String("corpus", "", "JSONL corpus to index (overrides index.corpusPath)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusPath != "" {
		cfg.Index.CorpusSource = "jsonl"
		cfg.Index.CorpusPath = *corpusPath
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	stopWords, err := tokenizer.LoadStopWords(cfg.Index.StopWordsPath)
	if err != nil {
		return err
	}
	slog.Info("starting indexer",
		"source", cfg.Index.CorpusSource,
		"stop_words", stopWords.Len(),
		"output", cfg.Index.ArtifactPath,
	)

	src, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	b := indexer.NewBuilder(tokenizer.New(stopWords), nil)
	if _, err := b.Build(ctx, src); err != nil {
		return err
	}

	if cfg.Index.JSONPath != "" {
		if err := b.SaveJSON(cfg.Index.JSONPath); err != nil {
			return fmt.Errorf("writing json index: %w", err)
		}
		slog.Info("json index written", "path", cfg.Index.JSONPath)
	}

	stats, err := b.CompressAndSave(cfg.Index.ArtifactPath)
	if err != nil {
		return err
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		event := indexer.NewIndexBuiltEvent(cfg.Index.ArtifactPath, stats)
		if err := producer.Publish(ctx, kafka.Event{Key: event.Path, Value: event}); err != nil {
			return fmt.Errorf("announcing index build: %w", err)
		}
		slog.Info("index build announced", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	slog.Info("indexing complete",
		"docs", stats.Docs,
		"terms", stats.Terms,
		"file_bytes", stats.FileBytes,
		"duration", stats.Duration,
	)
	return nil
}

// closer adapts a source whose Close must also release a connection pool.
type closer struct {
	corpus.Source
	pool *postgres.Client
}

func (c closer) Close() error {
	err := c.Source.Close()
	if perr := c.pool.Close(); err == nil {
		err = perr
	}
	return err
}

func openSource(ctx context.Context, cfg *config.Config) (corpus.Source, error) {
	switch cfg.Index.CorpusSource {
	case "postgres":
		pool, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		src, err := corpus.OpenPostgres(ctx, pool.DB)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return closer{Source: src, pool: pool}, nil
	default:
		return corpus.OpenJSONL(cfg.Index.CorpusPath)
	}
}
