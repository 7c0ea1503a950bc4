// Package throttle runs batches of independent tasks with bounded
// concurrency and per-slot pacing, returning results in submission order.
package throttle

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/grounding-cli/internal/config"
	"github.com/sells-group/grounding-cli/internal/metrics"
)

const (
	defaultMaxConcurrent = 10
	defaultMinSpacing    = 100 * time.Millisecond
)

// Task is one unit of work submitted to RunAll.
type Task[T any] func(ctx context.Context) (T, error)

// Throttle bounds how many tasks run at once. After a task finishes its
// slot stays occupied for MinSpacing before the next queued task may use it.
type Throttle struct {
	maxConcurrent int
	minSpacing    time.Duration
	deadline      time.Duration
	log           *zap.Logger
}

// Option configures a Throttle.
type Option func(*Throttle)

// WithMaxConcurrent sets the number of tasks allowed in flight.
func WithMaxConcurrent(n int) Option {
	return func(t *Throttle) {
		if n > 0 {
			t.maxConcurrent = n
		}
	}
}

// WithMinSpacing sets the delay between a slot freeing and its next dispatch.
func WithMinSpacing(d time.Duration) Option {
	return func(t *Throttle) {
		if d >= 0 {
			t.minSpacing = d
		}
	}
}

// WithDeadline bounds the wall time of each batch. Zero disables it.
func WithDeadline(d time.Duration) Option {
	return func(t *Throttle) {
		t.deadline = d
	}
}

// WithLogger sets the logger used for task failures.
func WithLogger(l *zap.Logger) Option {
	return func(t *Throttle) {
		t.log = l
	}
}

// New creates a Throttle. Defaults: 10 concurrent, 100ms spacing, no deadline.
func New(opts ...Option) *Throttle {
	t := &Throttle{
		maxConcurrent: defaultMaxConcurrent,
		minSpacing:    defaultMinSpacing,
		log:           zap.L(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// FromConfig builds a Throttle from config values.
func FromConfig(cfg config.ThrottleConfig, log *zap.Logger) *Throttle {
	return New(
		WithMaxConcurrent(cfg.MaxConcurrent),
		WithMinSpacing(time.Duration(cfg.MinSpacingMs)*time.Millisecond),
		WithDeadline(time.Duration(cfg.DeadlineSecs)*time.Second),
		WithLogger(log),
	)
}

// MaxConcurrent returns the concurrency bound.
func (t *Throttle) MaxConcurrent() int { return t.maxConcurrent }

// RunAll runs every task and returns one result per task, in task order.
// A task that errors, panics, or is still queued when ctx ends yields
// fallback in its position; siblings are unaffected. The only error
// returned is for a nil task, detected before anything is dispatched.
func RunAll[T any](ctx context.Context, t *Throttle, tasks []Task[T], fallback T) ([]T, error) {
	for i, task := range tasks {
		if task == nil {
			return nil, eris.Errorf("throttle: task %d is nil", i)
		}
	}

	results := make([]T, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	if t.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.deadline)
		defer cancel()
	}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(t.maxConcurrent)

	var queued atomic.Int64
	queued.Store(int64(len(tasks)))

	for i, task := range tasks {
		g.Go(func() error {
			queued.Add(-1)
			results[i] = runOne(ctx, t.log, i, task, fallback)
			if queued.Load() > 0 {
				t.pause(ctx)
			}
			return nil
		})
	}
	_ = g.Wait()

	metrics.ThrottleBatchDuration.Observe(time.Since(start).Seconds())
	return results, nil
}

func runOne[T any](ctx context.Context, log *zap.Logger, i int, task Task[T], fallback T) (result T) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ThrottleTaskFailures.Inc()
			log.Error("throttle: task panicked",
				zap.Int("task", i),
				zap.String("panic", fmt.Sprint(r)),
			)
			result = fallback
		}
	}()

	if err := ctx.Err(); err != nil {
		metrics.ThrottleTaskFailures.Inc()
		log.Warn("throttle: task not started before deadline", zap.Int("task", i), zap.Error(err))
		return fallback
	}

	val, err := task(ctx)
	if err != nil {
		metrics.ThrottleTaskFailures.Inc()
		log.Warn("throttle: task failed", zap.Int("task", i), zap.Error(err))
		return fallback
	}
	return val
}

func (t *Throttle) pause(ctx context.Context) {
	if t.minSpacing <= 0 {
		return
	}
	timer := time.NewTimer(t.minSpacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
