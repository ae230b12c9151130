package monitoring

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the polling cadence used when none is configured.
const DefaultInterval = 5 * time.Second

// Scheduler polls a Collector on a fixed interval and keeps the latest
// snapshot. Start and Stop may be called from any goroutine.
type Scheduler struct {
	collector Collector
	interval  time.Duration
	groups    []Group
	logger    *zap.SugaredLogger

	mutex     sync.RWMutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}

	inFlight atomic.Bool
	latest   atomic.Pointer[Snapshot]

	errMutex sync.RWMutex
	lastErr  error

	subMutex    sync.RWMutex
	subscribers []func(*Snapshot)

	onError func(error)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(logger *zap.SugaredLogger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

// WithGroups restricts every scheduled collection to the given groups.
func WithGroups(groups ...Group) SchedulerOption {
	return func(s *Scheduler) { s.groups = groups }
}

// WithErrorHandler sets a callback for scheduled collections that fail.
// Skipped ticks and failures during shutdown are not reported.
func WithErrorHandler(fn func(error)) SchedulerOption {
	return func(s *Scheduler) { s.onError = fn }
}

// NewScheduler creates a stopped Scheduler. A non-positive interval falls
// back to DefaultInterval.
func NewScheduler(collector Collector, interval time.Duration, opts ...SchedulerOption) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{
		collector: collector,
		interval:  interval,
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the polling cadence.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start begins polling. The first collection runs immediately. Calling Start
// on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.isRunning {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.isRunning = true

	go s.run(runCtx, s.done)
	s.logger.Infow("scheduler started", "interval", s.interval)
}

// Stop halts polling and waits for the polling goroutine to exit.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	if !s.isRunning {
		s.mutex.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.isRunning = false
	s.mutex.Unlock()

	<-done
	s.logger.Infow("scheduler stopped")
}

// IsRunning reports whether the scheduler is polling.
func (s *Scheduler) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.isRunning
}

// Refresh runs one collection now. It returns ErrCollectionInFlight when a
// collection, scheduled or manual, is still running.
func (s *Scheduler) Refresh(ctx context.Context) (*Snapshot, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrCollectionInFlight
	}
	defer s.inFlight.Store(false)

	snapshot, err := s.collector.Collect(ctx, s.groups...)
	s.setLastError(err)
	if err != nil {
		return nil, err
	}

	s.latest.Store(snapshot)
	s.publish(snapshot)
	return snapshot, nil
}

// Latest returns the most recent successful snapshot, or nil before the first
// one.
func (s *Scheduler) Latest() *Snapshot {
	return s.latest.Load()
}

// LastError returns the error of the most recent collection, nil when it
// succeeded.
func (s *Scheduler) LastError() error {
	s.errMutex.RLock()
	defer s.errMutex.RUnlock()
	return s.lastErr
}

// Subscribe registers fn to receive every successful snapshot. fn runs on the
// collecting goroutine and must not block.
func (s *Scheduler) Subscribe(fn func(*Snapshot)) {
	s.subMutex.Lock()
	defer s.subMutex.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCollectionInFlight):
		s.logger.Debugw("previous collection still running, skipping tick")
	case ctx.Err() != nil:
		// 종료 중
	default:
		s.logger.Warnw("scheduled collection failed", "error", err)
		if s.onError != nil {
			s.onError(err)
		}
	}
}

func (s *Scheduler) setLastError(err error) {
	s.errMutex.Lock()
	s.lastErr = err
	s.errMutex.Unlock()
}

func (s *Scheduler) publish(snapshot *Snapshot) {
	s.subMutex.RLock()
	subscribers := make([]func(*Snapshot), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.subMutex.RUnlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}
