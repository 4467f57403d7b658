package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsJobs(t *testing.T) {
	t.Parallel()

	s := New(WithWorkers(2))
	defer s.Close()

	var ran atomic.Int32
	for range 8 {
		err := s.Submit(Job{
			Name: "count",
			Run: func(context.Context) error {
				ran.Add(1)
				return nil
			},
		})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Drain(ctx))
	assert.Equal(t, int32(8), ran.Load())
	assert.Equal(t, 0, s.Pending())
}

func TestSchedulerCompletionOnDispatchGoroutine(t *testing.T) {
	t.Parallel()

	s := New(WithWorkers(1))
	defer s.Close()

	done := make(chan struct{})
	var onDoneRan atomic.Bool
	require.NoError(t, s.Submit(Job{
		Name: "one",
		Run: func(context.Context) error {
			close(done)
			return nil
		},
		OnDone: func(err error) {
			assert.NoError(t, err)
			onDoneRan.Store(true)
		},
	}))

	<-done
	// The job has run but its completion must wait for Dispatch.
	require.Eventually(t, func() bool {
		return s.Dispatch(1) == 1
	}, 5*time.Second, time.Millisecond)
	assert.True(t, onDoneRan.Load())
}

func TestSchedulerReportsErrors(t *testing.T) {
	t.Parallel()

	s := New(WithWorkers(1))
	defer s.Close()

	wantErr := errors.New("boom")
	var got error
	require.NoError(t, s.Submit(Job{
		Name:   "failing",
		Run:    func(context.Context) error { return wantErr },
		OnDone: func(err error) { got = err },
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Drain(ctx))
	assert.ErrorIs(t, got, wantErr)
}

func TestSchedulerRecoversPanic(t *testing.T) {
	t.Parallel()

	s := New(WithWorkers(1))
	defer s.Close()

	var got error
	require.NoError(t, s.Submit(Job{
		Name:   "panicking",
		Run:    func(context.Context) error { panic("kaboom") },
		OnDone: func(err error) { got = err },
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Drain(ctx))
	require.Error(t, got)
	assert.Contains(t, got.Error(), "kaboom")
}

func TestSchedulerSubmitAfterClose(t *testing.T) {
	t.Parallel()

	s := New(WithWorkers(1))
	s.Close()
	s.Close() // idempotent

	err := s.Submit(Job{Run: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSchedulerQueueFull(t *testing.T) {
	t.Parallel()

	s := New(WithWorkers(1), WithQueueDepth(1))
	defer s.Close()

	block := make(chan struct{})
	defer close(block)

	// Occupy the single worker, then fill the single queue slot.
	require.NoError(t, s.Submit(Job{
		Name: "blocker",
		Run:  func(context.Context) error { <-block; return nil },
	}))
	require.Eventually(t, func() bool {
		return s.Submit(Job{Name: "filler", Run: func(context.Context) error { return nil }}) == nil
	}, 5*time.Second, time.Millisecond)

	err := s.Submit(Job{Name: "overflow", Run: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestSchedulerDrainCancelled(t *testing.T) {
	t.Parallel()

	s := New(WithWorkers(1))
	defer s.Close()

	block := make(chan struct{})
	defer close(block)
	require.NoError(t, s.Submit(Job{
		Name: "stuck",
		Run:  func(context.Context) error { <-block; return nil },
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Drain(ctx), context.DeadlineExceeded)
}
