package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"odds-picks/internal/fetcher"
	"odds-picks/internal/odds"
	"odds-picks/internal/service"
)

// Simulate runs the pipeline over a saved odds payload without touching the
// upstream API or the database, and prints the resulting picks.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	if opts.EventsPath == "" {
		return errors.New("--events must be provided")
	}

	events, err := loadEvents(opts.EventsPath)
	if err != nil {
		return err
	}

	notifier := a.newNotifier()
	if !opts.Notify {
		notifier = nil
	} else if notifier == nil {
		return errors.New("alerting is not enabled; cannot notify")
	}

	summary, err := a.newPipeline(&staticFetcher{events: events}, nil, notifier).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "events: %d  rows: %d  priced: %d  trained: %t  accuracy: %.3f\n",
		summary.Events, summary.Rows, summary.PricedRows, summary.Trained, summary.Accuracy)
	return writePicksTable(a.Out, service.PickRecords(summary.Picks))
}

func loadEvents(path string) ([]odds.Event, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	var events []odds.Event
	if err := json.Unmarshal(payload, &events); err != nil {
		return nil, fmt.Errorf("decode events %s: %w", path, err)
	}
	return events, nil
}

type staticFetcher struct {
	events []odds.Event
}

func (s *staticFetcher) FetchEvents(context.Context) ([]odds.Event, error) {
	return s.events, nil
}

var _ fetcher.OddsFetcher = (*staticFetcher)(nil)
