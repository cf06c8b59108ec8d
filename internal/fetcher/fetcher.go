package fetcher

import (
	"context"
	"errors"

	"odds-picks/internal/odds"
)

// ErrMissingAPIKey is returned before any request when no key is configured.
var ErrMissingAPIKey = errors.New("odds api key not configured")

// Fetch outcomes reported per sport.
const (
	OutcomeOK             = "ok"
	OutcomeHTTPError      = "http_error"
	OutcomeTransportError = "transport_error"
	OutcomeDecodeError    = "decode_error"
)

// OddsFetcher retrieves upstream events for every configured sport.
type OddsFetcher interface {
	FetchEvents(ctx context.Context) ([]odds.Event, error)
}

// Observer receives the outcome of each per-sport request.
type Observer interface {
	ObserveFetch(sport, outcome string, events int)
}
