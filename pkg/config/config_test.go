package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
environment: test
server:
  port: 8080
market:
  symbols: [BTCUSDT, ETHUSDT]
  intervals: [1s, 1m, 5m]
  retention_horizon: 1h
  tolerance: 2s
analytics:
  default_window_size: 60
  adf_significance: 0.05
feed:
  source: binance
  websocket_url: wss://stream.example.com
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Feed.Source != "binance" {
		t.Fatalf("feed.source = %q", cfg.Feed.Source)
	}
	if len(cfg.Market.Symbols) != 2 {
		t.Fatalf("symbols = %v", cfg.Market.Symbols)
	}
	if got := cfg.Intervals(); len(got) != 3 || got[0] != time.Second || got[2] != 5*time.Minute {
		t.Fatalf("intervals = %v", got)
	}
}

func TestValidateRejectsUnknownSource(t *testing.T) {
	body := minimalYAML + "\n"
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Feed.Source = "coinbase"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown feed source should fail validation")
	}
}

func TestValidateRejectsBinanceWithoutURL(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Feed.WebSocketURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("binance source without websocket_url should fail")
	}
}

func TestValidateRejectsKafkaLoop(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Feed.Source = "kafka"
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.Topic = "ticks"
	cfg.Kafka.Publish = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("consuming and publishing the same topic should fail validation")
	}
	cfg.Kafka.Publish = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("kafka source without publish should validate: %v", err)
	}
}

func TestValidateRejectsBadInterval(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Market.Intervals = []string{"1s", "banana"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unparseable interval should fail validation")
	}
}

func TestLoadCacheSection(t *testing.T) {
	body := minimalYAML + `
cache:
  enabled: true
  backend: memory
  ttl: 2s
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// the pair-state cache picks its TTL up from here
	if cfg.Cache.TTL != 2*time.Second {
		t.Fatalf("cache.ttl = %v, want 2s", cfg.Cache.TTL)
	}
}

func TestValidateRejectsZeroSignificance(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Analytics.ADFSignificance = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("adf_significance = 0 should fail validation")
	}
	cfg.Analytics.ADFSignificance = -0.1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative adf_significance should fail validation")
	}
	cfg.Analytics.ADFSignificance = 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("adf_significance = 1 should fail validation")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "SOLUSDT")
	t.Setenv("FEED_SOURCE", "binance")
	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Market.Symbols) != 1 || cfg.Market.Symbols[0] != "SOLUSDT" {
		t.Fatalf("symbols = %v, want env override", cfg.Market.Symbols)
	}
}
