// Command query runs one query against a compressed index file and prints
// the matching document IDs as a JSON array.
//
// Usage:
//
//	go run ./cmd/query -index data/index.bin '"information retrieval"'
//	go run ./cmd/query -index data/index.bin -postings retrieval
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/logger"
)

func main() {
	defaults := config.Default()
	indexPath := flag.String("index", defaults.Index.ArtifactPath, "compressed index file")
	stopWordsPath := flag.String("stopwords", defaults.Index.StopWordsPath, "stop-word list")
	postingsTerm := flag.String("postings", "", "print the postings of this term instead of running a query")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger.SetupWriter(os.Stderr, *level, "text")

	query := strings.Join(flag.Args(), " ")
	if query == "" && *postingsTerm == "" {
		fmt.Fprintln(os.Stderr, "usage: query [-index path] [-stopwords path] <query> | -postings <term>")
		os.Exit(2)
	}

	s, err := searcher.Open(config.IndexConfig{
		ArtifactPath:  *indexPath,
		StopWordsPath: *stopWordsPath,
	}, nil)
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	var out any
	if *postingsTerm != "" {
		out = s.Postings(*postingsTerm)
	} else {
		docs, err := s.Search(context.Background(), query)
		if err != nil {
			slog.Error("query failed", "query", query, "error", err)
			s.Close()
			os.Exit(1)
		}
		out = docs
	}
	if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
		slog.Error("writing result", "error", err)
	}
}
