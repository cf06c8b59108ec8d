package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("THE_ODDS_API_KEY", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("defaults should load: %v", err)
	}
	if cfg.Odds.BaseURL != "https://api.the-odds-api.com/v4/sports/" {
		t.Fatalf("unexpected base url %q", cfg.Odds.BaseURL)
	}
	if len(cfg.Odds.Sports) != 4 || cfg.Odds.Sports[0] != "basketball_nba" {
		t.Fatalf("unexpected sports %v", cfg.Odds.Sports)
	}
	if cfg.Model.Threshold != 0.6 || cfg.Model.TestRatio != 0.2 || cfg.Model.Seed != 42 {
		t.Fatalf("unexpected model defaults %+v", cfg.Model)
	}
	if cfg.Odds.RequestTimeout != 30*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.Odds.RequestTimeout)
	}
	if cfg.PersistenceEnabled() {
		t.Fatal("persistence must be disabled without a DSN")
	}
	if err := cfg.ValidateForRun(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("THE_ODDS_API_KEY", "secret")
	t.Setenv("THE_ODDS_API_BASE_URL", "http://localhost:9999/sports/")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/odds")
	t.Setenv("ODDSPICKS_ODDS_SPORTS", "icehockey_nhl,soccer_epl")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Odds.APIKey != "secret" {
		t.Fatalf("api key not bound from THE_ODDS_API_KEY: %q", cfg.Odds.APIKey)
	}
	if cfg.Odds.BaseURL != "http://localhost:9999/sports/" {
		t.Fatalf("base url not bound: %q", cfg.Odds.BaseURL)
	}
	if !cfg.PersistenceEnabled() {
		t.Fatal("DATABASE_URL should enable persistence")
	}
	if len(cfg.Odds.Sports) != 2 || cfg.Odds.Sports[1] != "soccer_epl" {
		t.Fatalf("comma separated sports not decoded: %v", cfg.Odds.Sports)
	}
	if err := cfg.ValidateForRun(); err != nil {
		t.Fatalf("run validation should pass: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("THE_ODDS_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("model:\n  threshold: 0.75\nscheduler:\n  interval: 15m\nodds:\n  odds_format: american\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.Model.Threshold != 0.75 {
		t.Fatalf("threshold from file not applied: %v", cfg.Model.Threshold)
	}
	if cfg.Scheduler.Interval != 15*time.Minute {
		t.Fatalf("interval from file not applied: %s", cfg.Scheduler.Interval)
	}
	if cfg.Odds.OddsFormat != "american" {
		t.Fatalf("odds format from file not applied: %q", cfg.Odds.OddsFormat)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("an explicit missing config file should fail")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Odds:      OddsConfig{BaseURL: "http://x/", Sports: []string{"basketball_nba"}},
			Model:     ModelConfig{TestRatio: 0.2, Threshold: 0.6, MaxIterations: 100},
			Scheduler: SchedulerConfig{Interval: time.Hour},
			Export:    ExportConfig{MaxDataPoints: 10},
		}
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	mutations := map[string]func(*Config){
		"no sports":         func(c *Config) { c.Odds.Sports = nil },
		"empty base url":    func(c *Config) { c.Odds.BaseURL = " " },
		"test ratio zero":   func(c *Config) { c.Model.TestRatio = 0 },
		"test ratio one":    func(c *Config) { c.Model.TestRatio = 1 },
		"threshold above 1": func(c *Config) { c.Model.Threshold = 1.5 },
		"no iterations":     func(c *Config) { c.Model.MaxIterations = 0 },
		"zero interval":     func(c *Config) { c.Scheduler.Interval = 0 },
		"zero export max":   func(c *Config) { c.Export.MaxDataPoints = 0 },
		"telegram no token": func(c *Config) { c.Alerting.Telegram = TelegramConfig{Enabled: true, ChatID: "1"} },
		"telegram no chat":  func(c *Config) { c.Alerting.Telegram = TelegramConfig{Enabled: true, BotToken: "t"} },
	}
	for name, mutate := range mutations {
		cfg := valid()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := Config{Export: ExportConfig{MaxDataPoints: 50}}
	if got := cfg.ResolveMaxPoints(0); got != 50 {
		t.Fatalf("expected config default, got %d", got)
	}
	if got := cfg.ResolveMaxPoints(7); got != 7 {
		t.Fatalf("expected override, got %d", got)
	}
}
