package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"odds-picks/internal/config"
)

func TestRawOddsRowsNulls(t *testing.T) {
	price := -150.0
	ts := time.Date(2024, 3, 1, 7, 0, 0, 0, time.FixedZone("EST", -5*3600))
	rows := rawOddsRows([]RawOddsRecord{
		{SportKey: "basketball_nba", MarketKey: "h2h", Team: "TeamA", Price: &price, Timestamp: ts},
		{SportKey: "basketball_nba", MarketKey: "totals", Team: "Over"},
	})

	if len(rows) != 2 || len(rows[0]) != len(rawOddsColumns) {
		t.Fatalf("unexpected shape %v", rows)
	}
	if rows[0][3] != -150.0 {
		t.Fatalf("price should be dereferenced, got %#v", rows[0][3])
	}
	if rows[0][4] != nil || rows[1][3] != nil {
		t.Fatal("nil pointers must be written as NULL")
	}
	stamp, ok := rows[0][5].(time.Time)
	if !ok || stamp.Location() != time.UTC || !stamp.Equal(ts) {
		t.Fatalf("timestamp must be normalised to UTC, got %#v", rows[0][5])
	}
}

func TestPickRowsShape(t *testing.T) {
	rows := pickRows([]PickRecord{{SportKey: "baseball_mlb", MarketKey: "h2h", Pick: "TeamA", Confidence: 0.8}})
	if len(rows[0]) != len(pickColumns) {
		t.Fatalf("pick row must match %d columns", len(pickColumns))
	}
	if rows[0][2] != "TeamA" || rows[0][3] != 0.8 {
		t.Fatalf("unexpected pick row %#v", rows[0])
	}
}

func TestRunSchemaCreatesBothTables(t *testing.T) {
	if len(runSchema) != 2 {
		t.Fatalf("a run must issue exactly two create statements, got %d", len(runSchema))
	}
	for i, table := range []string{"raw_odds", "picks"} {
		if !strings.Contains(runSchema[i], "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("statement %d should create %s", i, table)
		}
	}
}

func TestUnconfiguredStore(t *testing.T) {
	var s *Store
	ctx := context.Background()
	if _, err := s.SaveRun(ctx, nil, nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := s.TopPicks(ctx, PickFilter{Limit: 1}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	s.Close()
}

func TestNewPoolRequiresDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), config.DatabaseConfig{}, "oddspicks"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := NewPool(context.Background(), config.DatabaseConfig{DSN: "::not a dsn::"}, ""); err == nil {
		t.Fatal("expected parse error for malformed dsn")
	}
}
