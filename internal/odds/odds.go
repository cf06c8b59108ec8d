// Package odds holds the upstream event shape and its flattened row form.
package odds

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is one upstream odds listing for a single matchup.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title,omitempty"`
	CommenceTime string      `json:"commence_time,omitempty"`
	HomeTeam     string      `json:"home_team,omitempty"`
	AwayTeam     string      `json:"away_team,omitempty"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker groups the markets one book offers for an event.
type Bookmaker struct {
	Key     string   `json:"key"`
	Title   string   `json:"title,omitempty"`
	Markets []Market `json:"markets"`
}

// Market is a bet type such as h2h, spreads or totals.
type Market struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

// Outcome is one side or line within a market.
type Outcome struct {
	Name  string              `json:"name"`
	Price decimal.NullDecimal `json:"price"`
	Point decimal.NullDecimal `json:"point"`
}

// Row is a flattened (event, bookmaker, market, outcome) observation.
type Row struct {
	SportKey  string
	MarketKey string
	Team      string
	Price     decimal.NullDecimal
	Point     decimal.NullDecimal
	Timestamp time.Time
}

// HasPrice reports whether the row carries a price.
func (r Row) HasPrice() bool {
	return r.Price.Valid
}

// PriceFloat returns the price as float64; callers must check HasPrice first.
func (r Row) PriceFloat() float64 {
	return r.Price.Decimal.InexactFloat64()
}

// Flatten expands events into one row per outcome, stamping each with now in UTC.
// Missing prices and points pass through unchanged.
func Flatten(events []Event, now time.Time) []Row {
	stamp := now.UTC()
	rows := make([]Row, 0, CountOutcomes(events))
	for _, event := range events {
		for _, book := range event.Bookmakers {
			for _, market := range book.Markets {
				for _, outcome := range market.Outcomes {
					rows = append(rows, Row{
						SportKey:  event.SportKey,
						MarketKey: market.Key,
						Team:      outcome.Name,
						Price:     outcome.Price,
						Point:     outcome.Point,
						Timestamp: stamp,
					})
				}
			}
		}
	}
	return rows
}

// CountOutcomes totals outcome instances across all events.
func CountOutcomes(events []Event) int {
	total := 0
	for _, event := range events {
		for _, book := range event.Bookmakers {
			for _, market := range book.Markets {
				total += len(market.Outcomes)
			}
		}
	}
	return total
}
