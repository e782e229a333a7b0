package config

import (
	"testing"
	"time"
)

func TestParseLocationOffset(t *testing.T) {
	t.Parallel()

	loc, err := ParseLocation("+09:00")
	if err != nil {
		t.Fatalf("ParseLocation returned error: %v", err)
	}

	_, offset := time.Date(2026, 1, 29, 0, 0, 0, 0, loc).Zone()
	if offset != 9*3600 {
		t.Fatalf("expected +9h offset, got %d", offset)
	}

	loc, err = ParseLocation("-0530")
	if err != nil {
		t.Fatalf("ParseLocation returned error: %v", err)
	}
	_, offset = time.Date(2026, 1, 29, 0, 0, 0, 0, loc).Zone()
	if offset != -(5*3600 + 30*60) {
		t.Fatalf("expected -5:30 offset, got %d", offset)
	}
}

func TestFromYAMLMergesOverDefaults(t *testing.T) {
	t.Parallel()

	raw := []byte(`
timezone: "+00:00"
report:
  recentDays: 5
  defaultWhy: "See post."
collect:
  concurrency: 1
  timeout: 30s
channels:
  social:
    enabled: true
ledger:
  driver: sqlite
  path: ledger.db
`)

	cfg, err := FromYAML(raw)
	if err != nil {
		t.Fatalf("FromYAML returned error: %v", err)
	}

	if cfg.Report.RecentDays != 5 {
		t.Fatalf("expected recentDays 5, got %d", cfg.Report.RecentDays)
	}
	if cfg.Report.DefaultWhy != "See post." {
		t.Fatalf("unexpected defaultWhy: %s", cfg.Report.DefaultWhy)
	}
	if cfg.Report.DefaultScore != 3 {
		t.Fatalf("expected default score to survive merge, got %d", cfg.Report.DefaultScore)
	}
	if cfg.Collect.Concurrency != 1 || cfg.Collect.Timeout != 30*time.Second {
		t.Fatalf("unexpected collect config: %+v", cfg.Collect)
	}
	if cfg.Collect.BreakerThreshold != 3 {
		t.Fatalf("expected default breaker threshold, got %d", cfg.Collect.BreakerThreshold)
	}
	if !cfg.Channels.Social.Enabled || !cfg.Channels.Site.Enabled {
		t.Fatalf("unexpected channel flags: %+v", cfg.Channels)
	}
	if cfg.Ledger.Driver != "sqlite" || cfg.Ledger.Path != "ledger.db" {
		t.Fatalf("unexpected ledger config: %+v", cfg.Ledger)
	}

	_, offset := time.Now().In(cfg.Location()).Zone()
	if offset != 0 {
		t.Fatalf("expected UTC location, got offset %d", offset)
	}
}

func TestFromYAMLHonorsExplicitOff(t *testing.T) {
	t.Parallel()

	raw := []byte(`
channels:
  site:
    enabled: false
  chat:
    enabled: true
    hour: 0
links:
  verify: false
feeds:
  enabled: false
  maxArticles: 5
`)

	cfg, err := FromYAML(raw)
	if err != nil {
		t.Fatalf("FromYAML returned error: %v", err)
	}
	if cfg.Channels.Site.Enabled {
		t.Fatalf("expected site channel disabled")
	}
	if !cfg.Channels.Chat.Enabled || cfg.Channels.Chat.Hour != 0 {
		t.Fatalf("expected midnight digest, got %+v", cfg.Channels.Chat)
	}
	if cfg.Feeds.Enabled || cfg.Feeds.MaxArticles != 5 || len(cfg.Feeds.Sources) == 0 {
		t.Fatalf("unexpected feeds config: enabled=%v max=%d sources=%d", cfg.Feeds.Enabled, cfg.Feeds.MaxArticles, len(cfg.Feeds.Sources))
	}

	cfg, err = FromYAML([]byte("channels:\n  chat:\n    maxItems: 5\n"))
	if err != nil {
		t.Fatalf("FromYAML returned error: %v", err)
	}
	if !cfg.Channels.Site.Enabled || cfg.Channels.Chat.Hour != 7 || !cfg.Feeds.Enabled {
		t.Fatalf("expected defaults for absent switches, got %+v", cfg.Channels)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(xaiAPIKeyEnv, "xai-key")
	t.Setenv(googleAPIKeyEnv, "google-key")
	t.Setenv(telegramChatIDEnv, "42")

	cfg := Defaults()
	cfg.applyEnvOverrides()

	if cfg.Search.APIKey != "xai-key" {
		t.Fatalf("unexpected search key: %s", cfg.Search.APIKey)
	}
	if cfg.Summarizer.APIKey != "google-key" {
		t.Fatalf("expected GOOGLE_API_KEY fallback, got %s", cfg.Summarizer.APIKey)
	}
	if cfg.Channels.Chat.Telegram.ChatID != "42" {
		t.Fatalf("unexpected chat id: %s", cfg.Channels.Chat.Telegram.ChatID)
	}
}
