package storage

import (
	"time"
)

// RawOddsRecord is one row of the raw_odds table. Nil pointers are stored as NULL.
type RawOddsRecord struct {
	ID        int64
	SportKey  string
	MarketKey string
	Team      string
	Price     *float64
	Point     *float64
	Timestamp time.Time
}

// PickRecord is one row of the picks table.
type PickRecord struct {
	ID         int64
	SportKey   string
	MarketKey  string
	Pick       string
	Confidence float64
	Timestamp  time.Time
}

// FeedbackRecord captures an operator reaction to a pick.
type FeedbackRecord struct {
	ID           int64
	PickID       int64
	FeedbackType string
	CreatedAt    time.Time
}

// SaveResult reports how many rows a run persisted.
type SaveResult struct {
	RawRows  int64
	PickRows int64
}

// PickFilter narrows pick listings.
type PickFilter struct {
	SportKey string
	Limit    int
}
