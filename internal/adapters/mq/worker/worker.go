// Package worker runs equip requests one at a time. A single Runner
// consuming the queue is what guarantees at most one equip run in
// flight for the whole process.
package worker

import (
	"context"
	"fmt"

	"github.com/okian/menagerie/internal/adapters/mq/queue"
	"github.com/okian/menagerie/internal/domain/model"
	"github.com/okian/menagerie/pkg/logger"
)

// Equipper executes one equip run.
type Equipper interface {
	Use(ctx context.Context, team model.Team) (model.EquipResult, error)
}

// Queue defines how the runner receives requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Request
}

// Runner consumes the equip queue and drives the engine.
type Runner struct {
	queue    Queue
	equipper Equipper
	name     string
	shutdown chan struct{}
	done     chan struct{}
	logger   logger.Logger
}

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithName sets the runner name for logging.
func WithName(name string) Option {
	return func(r *Runner) {
		if name != "" {
			r.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a runner over the given queue and engine.
func NewRunner(q Queue, e Equipper, opts ...Option) *Runner {
	r := &Runner{
		queue:    q,
		equipper: e,
		name:     "equip-runner",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes requests until ctx is canceled or Shutdown is called.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	requests := r.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			r.process(ctx, req)
		}
	}
}

func (r *Runner) process(ctx context.Context, req queue.Request) {
	counts, err := r.equipper.Use(ctx, req.Team)
	if err != nil {
		r.logger.Warn(ctx, "equip run failed",
			logger.String("team", req.Team.ID), logger.Error(err))
	}

	// Reply channel is buffered; an abandoned caller must not wedge the
	// runner.
	select {
	case req.Result <- queue.Result{Counts: counts, Err: err}:
	default:
		r.logger.Warn(ctx, "equip result dropped, caller gone",
			logger.String("team", req.Team.ID))
	}
}

// Shutdown stops the runner, waiting for the in-flight run to finish.
func (r *Runner) Shutdown(ctx context.Context) error {
	close(r.shutdown)
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
