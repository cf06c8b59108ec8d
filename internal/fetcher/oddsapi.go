package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"odds-picks/internal/odds"
)

const defaultBaseURL = "https://api.the-odds-api.com/v4/sports/"

// OddsAPIOptions parameterise The Odds API fetcher.
type OddsAPIOptions struct {
	BaseURL    string
	APIKey     string
	Sports     []string
	Regions    string
	Markets    string
	OddsFormat string
	Timeout    time.Duration
	UserAgent  string
	Observer   Observer
}

// OddsAPI fetches odds listings sport by sport.
type OddsAPI struct {
	opts    OddsAPIOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewOddsAPI constructs an odds fetcher.
func NewOddsAPI(opts OddsAPIOptions, logger zerolog.Logger) *OddsAPI {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if opts.Regions == "" {
		opts.Regions = "us"
	}
	if opts.Markets == "" {
		opts.Markets = "h2h,spreads,totals"
	}

	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &OddsAPI{
		opts:    opts,
		logger:  logger.With().Str("component", "odds_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchEvents requests every sport in order and concatenates the successful responses.
// Failed sports are logged and skipped; the result may be empty.
func (f *OddsAPI) FetchEvents(ctx context.Context) ([]odds.Event, error) {
	if strings.TrimSpace(f.opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	events := make([]odds.Event, 0)
	for _, sport := range f.opts.Sports {
		if err := ctx.Err(); err != nil {
			return events, err
		}

		batch, outcome, err := f.fetchSport(ctx, sport)
		f.observe(sport, outcome, len(batch))
		if err != nil {
			if outcome == OutcomeHTTPError {
				f.logger.Warn().Err(err).Str("sport", sport).Msg("odds api returned an error status; skipping sport")
			} else {
				f.logger.Error().Err(err).Str("sport", sport).Msg("error fetching sport; skipping")
			}
			continue
		}

		f.logger.Debug().Str("sport", sport).Int("events", len(batch)).Msg("sport fetched")
		events = append(events, batch...)
	}

	f.logger.Info().Int("sports", len(f.opts.Sports)).Int("events", len(events)).Msg("odds fetched")
	return events, nil
}

// SportURL renders the odds endpoint for sport.
func (f *OddsAPI) SportURL(sport string) string {
	var b strings.Builder
	b.WriteString(f.baseURL)
	b.WriteString(url.PathEscape(sport))
	b.WriteString("/odds/?apiKey=")
	b.WriteString(url.QueryEscape(f.opts.APIKey))
	b.WriteString("&regions=")
	b.WriteString(f.opts.Regions)
	b.WriteString("&markets=")
	b.WriteString(f.opts.Markets)
	if f.opts.OddsFormat != "" {
		b.WriteString("&oddsFormat=")
		b.WriteString(url.QueryEscape(f.opts.OddsFormat))
	}
	return b.String()
}

func (f *OddsAPI) fetchSport(ctx context.Context, sport string) ([]odds.Event, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.SportURL(sport), nil)
	if err != nil {
		return nil, OutcomeTransportError, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, OutcomeTransportError, redactKey(err, f.opts.APIKey)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, OutcomeTransportError, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, OutcomeHTTPError, parseHTTPError(resp.StatusCode, payload)
	}

	var events []odds.Event
	if err := json.Unmarshal(payload, &events); err != nil {
		return nil, OutcomeDecodeError, fmt.Errorf("decode events: %w", err)
	}
	return events, OutcomeOK, nil
}

func (f *OddsAPI) observe(sport, outcome string, events int) {
	if f.opts.Observer != nil {
		f.opts.Observer.ObserveFetch(sport, outcome, events)
	}
}

type errorResponse struct {
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("odds api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.ErrorCode != "" {
			return fmt.Errorf("odds api error (%d): %s", status, apiErr.ErrorCode)
		}
	}
	return fmt.Errorf("odds api error (%d)", status)
}

// redactKey keeps the api key out of transport errors, which embed the request URL.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	msg := err.Error()
	redacted := strings.ReplaceAll(strings.ReplaceAll(msg, url.QueryEscape(key), "REDACTED"), key, "REDACTED")
	if redacted == msg {
		return err
	}
	return errors.New(redacted)
}

var _ OddsFetcher = (*OddsAPI)(nil)
