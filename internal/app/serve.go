package app

import (
	"context"
	"os/signal"
	"syscall"

	"odds-picks/internal/api"
)

// Serve exposes persisted picks and feedback capture over HTTP until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.requireStore(ctx, "serve picks")
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.EnsureFeedbackSchema(ctx); err != nil {
		return err
	}

	return api.NewServer(a.Config.Server, store, a.Metrics, a.Logger).ListenAndServe(ctx)
}
