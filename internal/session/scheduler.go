package session

import (
	"context"
	"errors"
	"log"
	"time"
)

// SchedulerOption configures optional Scheduler behaviour.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger overrides the scheduler's logger.
func WithSchedulerLogger(logger *log.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

// WithRenewAhead sets how close to its expiry the access token must be before
// a tick actually renews. Zero disables the check and renews on every active
// tick.
func WithRenewAhead(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.renewAhead = d }
}

// Scheduler proactively renews the credential pair while the user is active.
// Ticks observed during an idle window are no-ops, so abandoned tabs do not
// keep their sessions alive. The loop tears down when the context is
// cancelled or the session's credentials are cleared.
type Scheduler struct {
	manager    *Manager
	monitor    *ActivityMonitor
	interval   time.Duration
	window     time.Duration
	renewAhead time.Duration
	logger     *log.Logger
}

// NewScheduler builds a Scheduler renewing every interval, provided user input
// was observed within the trailing window.
func NewScheduler(manager *Manager, monitor *ActivityMonitor, interval, window time.Duration, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		manager:  manager,
		monitor:  monitor,
		interval: interval,
		window:   window,
		logger:   log.New(log.Writer(), "[session] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until the context is cancelled or the session ends. It returns
// nil on logout and the context error on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	ended := s.manager.SessionEnded()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ended:
			return nil
		case <-ticker.C:
			if s.monitor.IdleFor() > s.window {
				continue
			}
			if s.renewAhead > 0 {
				if exp, ok := s.manager.ExpiresAt(); ok && time.Until(exp) > s.renewAhead {
					continue
				}
			}
			if _, err := s.manager.Refresh(ctx); err != nil {
				if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrSessionEnded) {
					return nil
				}
				s.logger.Printf("background renewal: %v", err)
				return nil
			}
		}
	}
}
