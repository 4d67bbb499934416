package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTaskStart  EventType = "task_start"
	EventTaskFinish EventType = "task_finish"
	EventMessage    EventType = "message"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// TaskEvent represents a task being started or finishing.
type TaskEvent struct {
	EventBase
	Task     string        `json:"task"`
	Duration time.Duration `json:"duration,omitempty"` // Only set on finish
	Err      error         `json:"-"`
	Aborted  bool          `json:"aborted,omitempty"`
	Panicked bool          `json:"panicked,omitempty"`
}

// MessageEvent represents one value moved by a forwarding link.
type MessageEvent struct {
	EventBase
	Link   string `json:"link"`
	Input  PortID `json:"input"`
	Output PortID `json:"output"`
}

// LifecycleHooks defines callbacks for runtime observability.
// Any nil callback is skipped.
type LifecycleHooks struct {
	OnTaskStart  func(context.Context, *TaskEvent)
	OnTaskFinish func(context.Context, *TaskEvent)
	OnMessage    func(context.Context, *MessageEvent)
}

// Merge returns hooks that invoke h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTaskStart:  chainTask(h.OnTaskStart, other.OnTaskStart),
		OnTaskFinish: chainTask(h.OnTaskFinish, other.OnTaskFinish),
		OnMessage:    chainMessage(h.OnMessage, other.OnMessage),
	}
}

func chainTask(a, b func(context.Context, *TaskEvent)) func(context.Context, *TaskEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *TaskEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainMessage(a, b func(context.Context, *MessageEvent)) func(context.Context, *MessageEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *MessageEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
