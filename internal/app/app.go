package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"odds-picks/internal/alerting"
	"odds-picks/internal/config"
	"odds-picks/internal/fetcher"
	"odds-picks/internal/metrics"
	"odds-picks/internal/model"
	"odds-picks/internal/scheduler"
	"odds-picks/internal/service"
	"odds-picks/internal/storage"
	"odds-picks/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Manager
	Out     io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config:  cfg,
		Logger:  logger.With().Str("component", "app").Logger(),
		Metrics: metrics.NewManager(),
		Out:     os.Stdout,
	}
}

func (a *App) newFetcher() fetcher.OddsFetcher {
	userAgent := a.Config.Odds.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	return fetcher.NewOddsAPI(fetcher.OddsAPIOptions{
		BaseURL:    a.Config.Odds.BaseURL,
		APIKey:     a.Config.Odds.APIKey,
		Sports:     a.Config.Odds.Sports,
		Regions:    a.Config.Odds.Regions,
		Markets:    a.Config.Odds.Markets,
		OddsFormat: a.Config.Odds.OddsFormat,
		Timeout:    a.Config.Odds.RequestTimeout,
		UserAgent:  userAgent,
		Observer:   a.Metrics,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled || !a.Config.Alerting.Telegram.Enabled {
		return nil
	}
	cfg := a.Config.Alerting.Telegram
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
}

func (a *App) pipelineOptions() service.Options {
	return service.Options{
		Model: model.Options{
			TestRatio:     a.Config.Model.TestRatio,
			Seed:          a.Config.Model.Seed,
			MaxIterations: a.Config.Model.MaxIterations,
			C:             model.DefaultOptions().C,
		},
		Threshold:     a.Config.Model.Threshold,
		AlertMaxPicks: a.Config.Alerting.MaxPicks,
	}
}

func (a *App) newPipeline(f fetcher.OddsFetcher, store *storage.Store, notifier alerting.Notifier) *service.Pipeline {
	var runStore storage.RunStore
	if store != nil {
		runStore = store
	}
	return service.New(f, runStore, notifier, a.Metrics, a.pipelineOptions(), a.Logger)
}

// openStore returns a nil store when no DSN is configured.
func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if !a.Config.PersistenceEnabled() {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database, a.Config.App.Name)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) requireStore(ctx context.Context, action string) (*storage.Store, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, fmt.Errorf("database not configured; cannot %s", action)
	}
	return store, closeStore, nil
}

// RunOnce executes a single batch: fetch, transform, train, pick and persist.
func (a *App) RunOnce(ctx context.Context) error {
	if err := a.Config.ValidateForRun(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	summary, err := a.newPipeline(a.newFetcher(), store, a.newNotifier()).Run(ctx)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("events", summary.Events).
		Int("rows", summary.Rows).
		Int("picks", len(summary.Picks)).
		Bool("persisted", summary.Persisted).
		Msg("batch complete")
	return nil
}

// Schedule repeats the batch on the configured interval until interrupted.
func (a *App) Schedule(ctx context.Context) error {
	if err := a.Config.ValidateForRun(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched, err := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunOnStart:   true,
	}, a.Logger)
	if err != nil {
		return err
	}

	if addr := a.Config.Metrics.ListenAddr; addr != "" {
		go a.serveMetrics(ctx, addr)
	}

	var locker storage.AdvisoryLocker
	if store != nil {
		locker = store
	}
	pipeline := a.newPipeline(a.newFetcher(), store, a.newNotifier())
	job := a.lockedJob(locker, func(ctx context.Context) error {
		_, err := pipeline.Run(ctx)
		return err
	})

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Msg("starting scheduled batches")
	err = sched.Run(ctx, job)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("scheduler terminated with error")
		return err
	}

	a.Logger.Info().Msg("scheduler stopped")
	return nil
}

// lockedJob wraps run so that only one instance holding the advisory lock
// executes a slot. A nil locker runs unconditionally.
func (a *App) lockedJob(locker storage.AdvisoryLocker, run func(ctx context.Context) error) scheduler.JobFunc {
	key := a.Config.Scheduler.AdvisoryLockKey
	return func(ctx context.Context, runAt time.Time) error {
		if locker == nil {
			return run(ctx)
		}
		unlock, acquired, err := locker.TryAdvisoryLock(ctx, key)
		if err != nil {
			return err
		}
		if !acquired {
			a.Logger.Warn().Time("run_at", runAt).Int64("lock_key", key).Msg("another instance holds the run lock; skipping")
			return nil
		}
		defer unlock()
		return run(ctx)
	}
}

func (a *App) serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.Logger.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.Logger.Error().Err(err).Msg("metrics server failed")
	}
}

// ExportOptions hold parameters for exporting historical picks.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// PicksOptions configure the picks command.
type PicksOptions struct {
	Limit int
	Sport string
	// ByConfidence orders by confidence instead of recency.
	ByConfidence bool
}

// SimulateOptions configure an offline run over a saved odds payload.
type SimulateOptions struct {
	EventsPath string
	Notify     bool
}
