package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPositiveInterval(t *testing.T) {
	_, err := New(Options{}, zerolog.Nop())
	require.ErrorIs(t, err, ErrInvalidInterval)
}

func TestRunTicksSequentiallyUntilCancelled(t *testing.T) {
	s, err := New(Options{Interval: 5 * time.Millisecond, Immediate: true}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var running, overlaps, ticks int32
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ctx context.Context, at time.Time) error {
			if !atomic.CompareAndSwapInt32(&running, 0, 1) {
				atomic.AddInt32(&overlaps, 1)
			}
			time.Sleep(2 * time.Millisecond)
			atomic.StoreInt32(&running, 0)
			if atomic.AddInt32(&ticks, 1) == 3 {
				cancel()
			}
			return errors.New("tick errors are logged, not fatal")
		})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	require.GreaterOrEqual(t, atomic.LoadInt32(&ticks), int32(3))
	require.Zero(t, atomic.LoadInt32(&overlaps))
}

func TestRunStopsDuringStartupDelay(t *testing.T) {
	s, err := New(Options{Interval: time.Hour, StartupDelay: time.Hour}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = s.Run(ctx, func(ctx context.Context, at time.Time) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestNextTickAlignment(t *testing.T) {
	s, err := New(Options{Interval: time.Minute, AlignToStart: true}, zerolog.Nop())
	require.NoError(t, err)

	now := time.Date(2026, 10, 18, 12, 0, 30, 0, time.UTC)
	require.Equal(t, time.Date(2026, 10, 18, 12, 1, 0, 0, time.UTC), s.nextTick(now))
	require.Equal(t, time.Date(2026, 10, 18, 12, 1, 0, 0, time.UTC), s.tickStart(time.Date(2026, 10, 18, 12, 1, 0, 5, time.UTC)))

	onBoundary := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	require.Equal(t, onBoundary.Add(time.Minute), s.nextTick(onBoundary))

	free, err := New(Options{Interval: time.Minute}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Minute), free.nextTick(now))
	require.Equal(t, now, free.tickStart(now))
}
