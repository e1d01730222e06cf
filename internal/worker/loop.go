package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one pass of periodic pipeline work.
type Task func(ctx context.Context) error

// Loop runs a task at a fixed interval. The next run is scheduled
// relative to the previous run's completion, so a slow pass never
// stacks up behind itself.
//
// A task error normally only logs and waits for the next pass. Errors
// the fatal classifier recognizes terminate the loop instead; the
// caller decides whether that takes the process down.
type Loop struct {
	name     string
	task     Task
	interval time.Duration
	fatal    func(error) bool
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewLoop creates a periodic loop. A nil fatal classifier treats every
// task error as recoverable.
func NewLoop(name string, task Task, interval time.Duration, fatal func(error) bool, logger *slog.Logger) *Loop {
	if fatal == nil {
		fatal = func(error) bool { return false }
	}
	return &Loop{
		name:     name,
		task:     task,
		interval: interval,
		fatal:    fatal,
		logger:   logger.With("component", "worker", "loop", name),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the loop until the context is cancelled, Stop is called,
// or the task returns a fatal error. The first pass runs immediately.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.mu.Unlock()

	l.logger.Info("starting loop", "interval", l.interval.String())

	defer func() {
		close(l.doneCh)
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for {
		if err := l.runOnce(ctx); err != nil {
			if l.fatal(err) {
				l.logger.Error("loop terminated by fatal error", "error", err)
				return err
			}
			l.logger.Error("pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			l.logger.Info("loop context cancelled")
			return ctx.Err()
		case <-l.stopCh:
			l.logger.Info("loop stopped")
			return nil
		case <-time.After(l.interval):
		}
	}
}

func (l *Loop) runOnce(ctx context.Context) error {
	start := time.Now()
	err := l.task(ctx)
	l.logger.Debug("pass completed", "duration", time.Since(start).String())
	return err
}

// Stop gracefully stops the loop and waits for the current pass
func (l *Loop) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	l.logger.Info("stopping loop")
	close(l.stopCh)

	select {
	case <-l.doneCh:
		return nil
	case <-time.After(10 * time.Second):
		return context.DeadlineExceeded
	}
}

// IsRunning returns whether the loop is currently running
func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
