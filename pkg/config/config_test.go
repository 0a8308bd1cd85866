package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.CorpusSource != "jsonl" {
		t.Errorf("CorpusSource = %q, want jsonl", cfg.Index.CorpusSource)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlData := `
index:
  artifactPath: /tmp/idx.bin
  corpusSource: postgres
redis:
  cacheTTL: 2m
`
	if err := os.WriteFile(path, []byte(yamlData), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MS_SERVER_PORT", "9999")
	t.Setenv("MS_KAFKA_BROKERS", "a:1,b:2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.ArtifactPath != "/tmp/idx.bin" {
		t.Errorf("ArtifactPath = %q", cfg.Index.ArtifactPath)
	}
	if cfg.Index.StopWordsPath != "configs/stop_words.txt" {
		t.Errorf("StopWordsPath default lost: %q", cfg.Index.StopWordsPath)
	}
	if cfg.Redis.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.Redis.CacheTTL)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b:2" {
		t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoadRejectsUnknownCorpusSource(t *testing.T) {
	t.Setenv("MS_INDEX_CORPUS_SOURCE", "s3")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
