// Package runtime runs the concurrent tasks of a system and joins them.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aretw0/conduit/internal/logging"
	"github.com/aretw0/conduit/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of concurrent work. It should return promptly once ctx is done.
type Task func(ctx context.Context) error

// PanicError is the failure reported for a task that panicked.
type PanicError struct {
	Task  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Task, e.Value)
}

// Group tracks spawned tasks until all complete. A failing task does not cancel
// its siblings: they are drained so their teardown is not lost.
type Group struct {
	base   context.Context
	cancel context.CancelFunc
	eg     errgroup.Group

	logger *slog.Logger
	hooks  domain.LifecycleHooks
	runID  string

	mu      sync.Mutex
	handles []*Handle
}

// Option configures a Group.
type Option func(*Group)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Group) {
		g.logger = logger
	}
}

func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(g *Group) {
		g.hooks = hooks
	}
}

// WithRunID tags emitted events with a correlation ID.
func WithRunID(id string) Option {
	return func(g *Group) {
		g.runID = id
	}
}

// NewGroup creates an empty group.
func NewGroup(opts ...Option) *Group {
	g := &Group{}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logging.NewNop()
	}
	g.base, g.cancel = context.WithCancel(context.Background())
	return g
}

// Handle controls a single spawned task.
type Handle struct {
	name    string
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	aborted bool
	mu      sync.Mutex
}

func (h *Handle) Name() string { return h.name }

// Abort cancels the task's context. Channel state is never corrupted by an abort:
// the task's ports simply stop being serviced, and their peers observe that.
func (h *Handle) Abort() {
	h.mu.Lock()
	h.aborted = true
	h.mu.Unlock()
	h.cancel()
}

// Done is closed when the task has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the task result. It is only meaningful after Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the task returns or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) wasAborted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.aborted
}

// Spawn schedules task and returns its handle immediately.
func (g *Group) Spawn(name string, task Task) *Handle {
	ctx, cancel := context.WithCancel(g.base)
	h := &Handle{name: name, cancel: cancel, done: make(chan struct{})}
	if g.base.Err() != nil {
		h.aborted = true
	}

	g.mu.Lock()
	g.handles = append(g.handles, h)
	g.mu.Unlock()

	g.eg.Go(func() error {
		defer cancel()
		err := g.run(ctx, h, task)

		h.mu.Lock()
		h.err = err
		h.mu.Unlock()
		close(h.done)

		if err != nil && h.wasAborted() && errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return h
}

func (g *Group) run(ctx context.Context, h *Handle, task Task) (err error) {
	start := time.Now()
	g.logger.Debug("task started", "task", h.name, "run_id", g.runID)
	if g.hooks.OnTaskStart != nil {
		g.hooks.OnTaskStart(ctx, &domain.TaskEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventTaskStart, RunID: g.runID},
			Task:      h.name,
		})
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Task: h.name, Value: r, Stack: debug.Stack()}
		}
		if err != nil && !errors.As(err, new(*PanicError)) {
			err = fmt.Errorf("task %s: %w", h.name, err)
		}

		aborted := h.wasAborted()
		switch {
		case err == nil:
			g.logger.Debug("task finished", "task", h.name, "duration", time.Since(start))
		case aborted && errors.Is(err, context.Canceled):
			g.logger.Debug("task aborted", "task", h.name)
		default:
			g.logger.Error("task failed", "task", h.name, "error", err)
		}

		if g.hooks.OnTaskFinish != nil {
			g.hooks.OnTaskFinish(ctx, &domain.TaskEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTaskFinish, RunID: g.runID},
				Task:      h.name,
				Duration:  time.Since(start),
				Err:       err,
				Aborted:   aborted,
				Panicked:  errors.As(err, new(*PanicError)),
			})
		}
	}()

	return task(ctx)
}

// Wait blocks until every spawned task has returned and reports the first failure.
// If ctx ends first, every task is aborted and then drained.
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- g.eg.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		g.Abort()
		if err := <-done; err != nil {
			return err
		}
		return ctx.Err()
	}
}

// Abort cancels every task, including ones spawned later.
func (g *Group) Abort() {
	g.mu.Lock()
	handles := append([]*Handle(nil), g.handles...)
	g.mu.Unlock()
	for _, h := range handles {
		h.Abort()
	}
	g.cancel()
}

// Len returns the number of tasks spawned so far.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.handles)
}

// Pending returns the names of tasks that have not returned yet.
func (g *Group) Pending() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var names []string
	for _, h := range g.handles {
		select {
		case <-h.done:
		default:
			names = append(names, h.name)
		}
	}
	return names
}
