// Package job provides a small worker pool for background asset work.
// Jobs run on pool goroutines; their completions are delivered on
// whichever goroutine calls Dispatch, so an engine can keep callbacks on
// its own update thread.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	// DefaultWorkers is the worker count used when WithWorkers is not
	// set.
	DefaultWorkers = 2

	// DefaultQueueDepth bounds both the pending and the completed job
	// queues when WithQueueDepth is not set.
	DefaultQueueDepth = 256
)

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("job: scheduler closed")

	// ErrQueueFull is returned by Submit when the pending queue is full.
	// Submit never blocks the caller.
	ErrQueueFull = errors.New("job: queue full")
)

// Job is one unit of background work.
//
// Run executes on a pool goroutine. OnDone, if set, runs later on the
// goroutine calling Dispatch and receives Run's error (nil on success).
// A panicking Run is reported as a failure rather than taking down the
// pool.
type Job struct {
	Name   string
	Run    func(ctx context.Context) error
	OnDone func(err error)
}

type completion struct {
	job Job
	err error
}

// Scheduler runs jobs on a fixed pool of goroutines.
//
// Completions accumulate until Dispatch is called; both queues are
// bounded, so a caller that never dispatches will eventually see
// ErrQueueFull from Submit.
type Scheduler struct {
	mu      sync.RWMutex
	closed  bool
	queue   chan Job
	done    chan completion
	pending atomic.Int64
	wg      sync.WaitGroup

	workers int
	depth   int
	logger  *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the number of pool goroutines.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueDepth sets the capacity of the pending and completion queues.
func WithQueueDepth(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.depth = n
		}
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New creates a Scheduler and starts its workers.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		workers: DefaultWorkers,
		depth:   DefaultQueueDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = make(chan Job, s.depth)
	s.done = make(chan completion, s.depth)

	s.wg.Add(s.workers)
	for i := range s.workers {
		go s.worker(i)
	}
	return s
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Scheduler) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Submit queues a job. It never blocks: a full queue is reported with
// ErrQueueFull so the caller can apply its own backpressure.
func (s *Scheduler) Submit(j Job) error {
	if j.Run == nil {
		return errors.New("job: nil Run")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	select {
	case s.queue <- j:
		s.pending.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of jobs submitted but not yet dispatched.
func (s *Scheduler) Pending() int {
	return int(s.pending.Load())
}

// Dispatch runs up to max pending completions on the calling goroutine
// and returns how many ran. max <= 0 drains everything currently
// completed. Dispatch never blocks waiting for running jobs.
func (s *Scheduler) Dispatch(max int) int {
	n := 0
	for max <= 0 || n < max {
		select {
		case c := <-s.done:
			s.finish(c)
			n++
		default:
			return n
		}
	}
	return n
}

// Drain blocks until every submitted job has completed and its OnDone
// has run, dispatching completions on the calling goroutine. Intended
// for shutdown and tests; do not call concurrently with Dispatch.
func (s *Scheduler) Drain(ctx context.Context) error {
	for s.pending.Load() > 0 {
		select {
		case c := <-s.done:
			s.finish(c)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops accepting jobs and waits for the workers to exit. Jobs
// still queued are run, but completions never dispatched are discarded
// without running OnDone; call Drain first when they matter. Close is
// idempotent.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	// Workers can be parked handing over completions nobody will
	// dispatch; consume them so the pool can exit.
	exited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(exited)
	}()
	for {
		select {
		case <-s.done:
		case <-exited:
			return
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	logger := s.log().With("worker", id)
	for j := range s.queue {
		err := runJob(j)
		if err != nil {
			logger.Debug("job failed", "job", j.Name, "error", err)
		}
		s.done <- completion{job: j, err: err}
	}
}

func (s *Scheduler) finish(c completion) {
	if c.job.OnDone != nil {
		c.job.OnDone(c.err)
	}
	s.pending.Add(-1)
}

// runJob isolates panics so one bad job cannot take down a worker.
func runJob(j Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %q panicked: %v", j.Name, r)
		}
	}()
	return j.Run(context.Background())
}
