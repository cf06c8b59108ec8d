package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"odds-picks/internal/alerting"
	"odds-picks/internal/fetcher"
	"odds-picks/internal/model"
	"odds-picks/internal/odds"
	"odds-picks/internal/picker"
	"odds-picks/internal/storage"
)

// Recorder receives pipeline measurements.
type Recorder interface {
	AddRows(n int)
	AddPicks(n int)
	AddPersisted(table string, n int)
	SetAccuracy(accuracy float64)
	ObserveRun(result string, elapsed time.Duration)
}

// Options configure the pipeline.
type Options struct {
	Model     model.Options
	Threshold float64
	// AlertMaxPicks caps how many picks a notification lists.
	AlertMaxPicks int
}

// Summary reports what one run did.
type Summary struct {
	Events     int
	Rows       int
	PricedRows int
	Accuracy   float64
	Trained    bool
	Picks      []picker.Pick
	Persisted  bool
	Saved      storage.SaveResult
}

// Pipeline runs fetch, transform, predict, pick and persist in order.
type Pipeline struct {
	fetcher  fetcher.OddsFetcher
	store    storage.RunStore
	notifier alerting.Notifier
	recorder Recorder
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time
}

// New constructs the pipeline. A nil store disables persistence; a nil notifier
// or recorder disables those side channels.
func New(f fetcher.OddsFetcher, store storage.RunStore, notifier alerting.Notifier, recorder Recorder, opts Options, logger zerolog.Logger) *Pipeline {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Pipeline{
		fetcher:  f,
		store:    store,
		notifier: notifier,
		recorder: recorder,
		opts:     opts,
		logger:   logger.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
	}
}

// Run executes one full batch.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	summary, err := p.run(ctx)

	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case summary.Events == 0:
		result = "empty"
	}
	p.recorder.ObserveRun(result, time.Since(started))
	return summary, err
}

func (p *Pipeline) run(ctx context.Context) (Summary, error) {
	var summary Summary

	events, err := p.fetcher.FetchEvents(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch odds: %w", err)
	}
	summary.Events = len(events)
	if len(events) == 0 {
		p.logger.Info().Msg("no events fetched; exiting")
		return summary, nil
	}

	rows := odds.Flatten(events, p.now())
	summary.Rows = len(rows)
	summary.PricedRows = len(model.Priced(rows))
	p.recorder.AddRows(len(rows))
	p.logger.Info().Int("events", len(events)).Int("rows", len(rows)).Int("priced_rows", summary.PricedRows).Msg("events flattened")

	trained, err := model.Train(rows, p.opts.Model)
	switch {
	case errors.Is(err, model.ErrInsufficientData), errors.Is(err, model.ErrSingleClass):
		p.logger.Warn().Err(err).Msg("model not trained; no picks this run")
	case err != nil:
		return summary, fmt.Errorf("train model: %w", err)
	default:
		summary.Trained = true
		summary.Accuracy = trained.Accuracy
		p.recorder.SetAccuracy(trained.Accuracy)
		p.logger.Info().
			Float64("accuracy", trained.Accuracy).
			Int("train_rows", trained.TrainSize).
			Int("test_rows", trained.TestSize).
			Msg("model trained")

		summary.Picks = picker.Select(trained.Model, rows, p.opts.Threshold)
	}
	p.recorder.AddPicks(len(summary.Picks))
	p.logger.Info().Int("picks", len(summary.Picks)).Float64("threshold", p.opts.Threshold).Msg("picks selected")

	if err := p.persist(ctx, rows, &summary); err != nil {
		return summary, err
	}

	p.notify(ctx, summary)
	return summary, nil
}

func (p *Pipeline) persist(ctx context.Context, rows []odds.Row, summary *Summary) error {
	if p.store == nil {
		p.logger.Warn().Msg("database not configured; skipping persistence")
		return nil
	}

	saved, err := p.store.SaveRun(ctx, RawRecords(rows), PickRecords(summary.Picks))
	if err != nil {
		return fmt.Errorf("persist run: %w", err)
	}

	summary.Persisted = true
	summary.Saved = saved
	p.recorder.AddPersisted("raw_odds", int(saved.RawRows))
	p.recorder.AddPersisted("picks", int(saved.PickRows))
	p.logger.Info().Int64("raw_rows", saved.RawRows).Int64("picks", saved.PickRows).Msg("run persisted")
	return nil
}

func (p *Pipeline) notify(ctx context.Context, summary Summary) {
	if p.notifier == nil || len(summary.Picks) == 0 {
		return
	}
	note := alerting.Notification{
		RunAt:      p.now().UTC(),
		Events:     summary.Events,
		Rows:       summary.Rows,
		Accuracy:   summary.Accuracy,
		Threshold:  p.opts.Threshold,
		Picks:      picker.Top(summary.Picks, p.opts.AlertMaxPicks),
		TotalPicks: len(summary.Picks),
	}
	if err := p.notifier.Notify(ctx, note); err != nil {
		p.logger.Error().Err(err).Msg("failed to dispatch run summary")
	}
}

// RawRecords maps flattened rows onto raw_odds records.
func RawRecords(rows []odds.Row) []storage.RawOddsRecord {
	out := make([]storage.RawOddsRecord, len(rows))
	for i, row := range rows {
		out[i] = storage.RawOddsRecord{
			SportKey:  row.SportKey,
			MarketKey: row.MarketKey,
			Team:      row.Team,
			Timestamp: row.Timestamp,
		}
		if row.Price.Valid {
			price := row.Price.Decimal.InexactFloat64()
			out[i].Price = &price
		}
		if row.Point.Valid {
			point := row.Point.Decimal.InexactFloat64()
			out[i].Point = &point
		}
	}
	return out
}

// PickRecords maps picks onto picks-table records.
func PickRecords(picks []picker.Pick) []storage.PickRecord {
	out := make([]storage.PickRecord, len(picks))
	for i, p := range picks {
		out[i] = storage.PickRecord{
			SportKey:   p.SportKey,
			MarketKey:  p.MarketKey,
			Pick:       p.Pick,
			Confidence: p.Confidence,
			Timestamp:  p.Timestamp,
		}
	}
	return out
}

type nopRecorder struct{}

func (nopRecorder) AddRows(int)                      {}
func (nopRecorder) AddPicks(int)                     {}
func (nopRecorder) AddPersisted(string, int)         {}
func (nopRecorder) SetAccuracy(float64)              {}
func (nopRecorder) ObserveRun(string, time.Duration) {}
