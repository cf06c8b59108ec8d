package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewRejectsZeroInterval(t *testing.T) {
	if _, err := New(Options{}, zerolog.Nop()); err == nil {
		t.Fatal("zero interval must be rejected")
	}
}

func TestNextTickAligned(t *testing.T) {
	s, err := New(Options{Interval: time.Hour, AlignToStart: true}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)
	if got := s.NextTick(now); !got.Equal(time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next tick %s", got)
	}

	onBoundary := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
	if got := s.NextTick(onBoundary); !got.Equal(onBoundary.Add(time.Hour)) {
		t.Fatalf("next tick on a boundary must be the following slot, got %s", got)
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s, err := New(Options{Interval: 10 * time.Minute}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 3, 1, 10, 15, 7, 0, time.UTC)
	if got := s.NextTick(now); !got.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("unexpected next tick %s", got)
	}
}

func TestRunOnStartThenCancel(t *testing.T) {
	s, err := New(Options{Interval: time.Hour, RunOnStart: true}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runs := 0
	err = s.Run(ctx, func(ctx context.Context, runAt time.Time) error {
		runs++
		cancel()
		return errors.New("job errors are logged, not returned")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if runs != 1 {
		t.Fatalf("expected exactly one run, got %d", runs)
	}
}

func TestRunRepeats(t *testing.T) {
	s, err := New(Options{Interval: 5 * time.Millisecond}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	runs := 0
	_ = s.Run(ctx, func(ctx context.Context, runAt time.Time) error {
		runs++
		if runs == 3 {
			cancel()
		}
		return nil
	})
	if runs != 3 {
		t.Fatalf("expected 3 runs before cancel, got %d", runs)
	}
}
