package conduit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/conduit/internal/logging"
	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/channel"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/model"
	"github.com/aretw0/conduit/pkg/port"
	"github.com/google/uuid"
)

// DefaultCapacity is the queue bound used for channels opened by a System unless
// WithCapacity overrides it.
const DefaultCapacity = 1

// Task is one unit of concurrent work. It should return promptly once ctx is done.
type Task = runtime.Task

// TaskHandle controls a spawned task: Abort cancels it, Done and Err observe it.
type TaskHandle = runtime.Handle

// PanicError is reported for a task that panicked.
type PanicError = runtime.PanicError

// System is the scheduler: it owns the spawned tasks, hands out port identities and
// opens the channels that connect them.
type System struct {
	group    *runtime.Group
	alloc    *model.Allocator
	backend  channel.Backend
	capacity int
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	runID    string
}

// Option defines a functional option for configuring a System.
type Option func(*System)

// WithLogger sets a custom structured logger for the system.
func WithLogger(logger *slog.Logger) Option {
	return func(s *System) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *System) {
		s.hooks = hooks
	}
}

// WithCapacity sets the queue bound of channels opened by the system. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(s *System) {
		if n >= 0 {
			s.capacity = n
		}
	}
}

// WithTransport carries every channel over t, encoding values with c.
func WithTransport(t channel.Transport, c channel.Codec) Option {
	return func(s *System) {
		s.backend = channel.Backend{Transport: t, Codec: c}
	}
}

// WithAllocator shares a port allocator, typically the one a Builder used.
func WithAllocator(a *model.Allocator) Option {
	return func(s *System) {
		s.alloc = a
	}
}

// WithRunID overrides the generated correlation ID.
func WithRunID(id string) Option {
	return func(s *System) {
		s.runID = id
	}
}

// New creates an empty system. Channels are in-memory unless WithTransport is given.
func New(opts ...Option) *System {
	s := &System{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.alloc == nil {
		s.alloc = model.NewAllocator()
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	s.logger = s.logger.With("run_id", s.runID)
	s.group = runtime.NewGroup(
		runtime.WithLogger(s.logger),
		runtime.WithLifecycleHooks(s.hooks),
		runtime.WithRunID(s.runID),
	)
	return s
}

func (s *System) RunID() string               { return s.runID }
func (s *System) Allocator() *model.Allocator { return s.alloc }
func (s *System) Backend() channel.Backend    { return s.backend }
func (s *System) Capacity() int               { return s.capacity }
func (s *System) Logger() *slog.Logger        { return s.logger }

// Spawn schedules task and returns its handle immediately.
func (s *System) Spawn(name string, task Task) *TaskHandle {
	return s.group.Spawn(name, task)
}

// Execute blocks until every spawned task has returned and reports the first failure.
// Tasks are not cancelled when a sibling fails. If ctx ends first, all tasks are
// aborted and drained, and ctx.Err() is returned.
func (s *System) Execute(ctx context.Context) error {
	s.logger.Debug("executing", "tasks", s.group.Len())
	return s.group.Wait(ctx)
}

// Abort cancels every task, including ones spawned later.
func (s *System) Abort() {
	s.group.Abort()
}

// Pending returns the names of tasks that have not returned yet.
func (s *System) Pending() []string {
	return s.group.Pending()
}

func (s *System) channelName(out domain.OutputPortID, in domain.InputPortID) string {
	return fmt.Sprintf("%s:%d:%d", s.runID, out, in)
}

// message fires the OnMessage hook for one value moved by a link.
func (s *System) message(ctx context.Context, link string, in domain.InputPortID, out domain.OutputPortID) {
	if s.hooks.OnMessage == nil {
		return
	}
	s.hooks.OnMessage(ctx, &domain.MessageEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventMessage, RunID: s.runID},
		Link:      link,
		Input:     in.PortID(),
		Output:    out.PortID(),
	})
}

// Pipe allocates a fresh output and input and opens a channel between them.
func Pipe[T any](ctx context.Context, s *System, name string) (*port.Output[T], *port.Input[T], error) {
	out := model.AllocOutput[T](s.alloc).ID
	in := model.AllocInput[T](s.alloc).ID
	if name == "" {
		name = s.channelName(out, in)
	}
	return port.Pipe[T](ctx, s.backend, name, s.capacity, out, in)
}

// Connect spawns a forwarding link that receives from in and sends every value to
// out. The link succeeds at end-of-stream and fails if a send fails. Both handles
// are closed when it returns.
func Connect[T any](s *System, in *port.Input[T], out *port.Output[T]) *TaskHandle {
	name := fmt.Sprintf("link %d -> %d", in.ID(), out.ID())
	return s.Spawn(name, func(ctx context.Context) error {
		return port.Forward(ctx, in, out, func(T) {
			s.message(ctx, name, in.ID(), out.ID())
		})
	})
}

// Run creates a system, lets setup spawn its tasks and executes it. If setup fails,
// whatever it already spawned is aborted and drained before the error is returned.
func Run(ctx context.Context, setup func(*System) error, opts ...Option) error {
	s := New(opts...)
	if err := setup(s); err != nil {
		s.Abort()
		_ = s.group.Wait(context.Background())
		return err
	}
	return s.Execute(ctx)
}
