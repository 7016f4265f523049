package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Action is a user-triggered dashboard operation.
type Action string

const (
	ActionRefresh Action = "refresh"
	ActionCollect Action = "collect"
)

// Scheduler drives the loader: one load at start, then one every interval
// until the context ends. Manual actions and the reload that follows a
// collection run alongside the ticker and are waited for on shutdown.
type Scheduler struct {
	loader   *Loader
	interval time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	ctx     context.Context
	stopped bool
	pending sync.WaitGroup
}

// NewScheduler creates a scheduler with the given auto-refresh interval.
// It takes over the loader's delayed reloads.
func NewScheduler(l *Loader, interval time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s := &Scheduler{
		loader:   l,
		interval: interval,
		log:      log,
		ctx:      context.Background(),
	}
	l.schedule = s.after
	return s
}

// Run blocks until ctx is cancelled, then waits for in-flight actions.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.log.Info("dashboard scheduler started", zap.Duration("interval", s.interval))
	s.loader.LoadAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// No Add may race the Wait below.
			s.mu.Lock()
			s.stopped = true
			s.mu.Unlock()
			s.pending.Wait()
			s.log.Info("dashboard scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.loader.LoadAll(ctx)
		}
	}
}

// Trigger starts a manual action in the background and returns at once.
// It reports false for an unknown action or once the scheduler has stopped.
func (s *Scheduler) Trigger(a Action) bool {
	var fn func(context.Context)
	switch a {
	case ActionRefresh:
		fn = s.loader.Refresh
	case ActionCollect:
		fn = s.loader.TriggerCollection
	default:
		return false
	}

	ctx, ok := s.track()
	if !ok {
		s.log.Warn("dashboard action refused, scheduler stopped", zap.String("action", string(a)))
		return false
	}
	s.log.Info("dashboard action", zap.String("action", string(a)))
	go func() {
		defer s.pending.Done()
		fn(ctx)
	}()
	return true
}

// after runs fn once d has elapsed, unless the scheduler stops first.
func (s *Scheduler) after(_ context.Context, d time.Duration, fn func(context.Context)) {
	ctx, ok := s.track()
	if !ok {
		return
	}
	go func() {
		defer s.pending.Done()
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			fn(ctx)
		}
	}()
}

// track registers one unit of background work and returns the context it
// runs under. It fails once the scheduler has stopped.
func (s *Scheduler) track() (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.ctx.Err() != nil {
		return nil, false
	}
	s.pending.Add(1)
	return s.ctx, true
}

// Wait blocks until every triggered action has finished.
func (s *Scheduler) Wait() {
	s.pending.Wait()
}
