package picker

import (
	"sort"
	"time"

	"odds-picks/internal/odds"
)

// DefaultThreshold is the minimum confidence, exclusive, for a row to become a pick.
const DefaultThreshold = 0.6

// Scorer estimates the probability that a price is a favourable bet.
type Scorer interface {
	Probability(price float64) float64
}

// Pick is a row surfaced to the operator as a recommended bet.
type Pick struct {
	SportKey   string
	MarketKey  string
	Pick       string
	Confidence float64
	Timestamp  time.Time
}

// Select scores every priced row and keeps those strictly above threshold.
func Select(scorer Scorer, rows []odds.Row, threshold float64) []Pick {
	if scorer == nil {
		return nil
	}
	picks := make([]Pick, 0)
	for _, row := range rows {
		if !row.HasPrice() {
			continue
		}
		confidence := scorer.Probability(row.PriceFloat())
		if confidence <= threshold {
			continue
		}
		picks = append(picks, Pick{
			SportKey:   row.SportKey,
			MarketKey:  row.MarketKey,
			Pick:       row.Team,
			Confidence: confidence,
			Timestamp:  row.Timestamp,
		})
	}
	return picks
}

// Top returns up to n picks ordered by descending confidence without mutating picks.
func Top(picks []Pick, n int) []Pick {
	ordered := append([]Pick(nil), picks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})
	if n > 0 && len(ordered) > n {
		ordered = ordered[:n]
	}
	return ordered
}
