// Package channel defines the Sender/Receiver capabilities backing a connection and
// ships the default in-process backend.
//
// A channel has exactly one sender-side handle and one receiver-side handle. Messages
// are delivered in send order. Recv reports end-of-stream as ok == false with a nil
// error once the sender is closed and every queued message has been drained; it keeps
// reporting it on every later call.
//
// Blocking operations take a context.Context, so deadlines are layered on by the
// caller (context.WithTimeout) without widening the interfaces.
package channel

import (
	"context"
	"fmt"
)

// Sender is the producing half of a channel.
type Sender[T any] interface {
	// Send enqueues v, suspending while a bounded queue is full. Once the receiver is
	// closed it fails immediately with a *SendError carrying v.
	Send(ctx context.Context, v T) error
	// TrySend enqueues v without suspending. It fails with a *SendError wrapping
	// domain.ErrFull or domain.ErrSend.
	TrySend(v T) error
	// Close stops accepting new messages and lets the receiver observe end-of-stream
	// after draining. Close is idempotent.
	Close() error
	// IsClosed reports whether the receiver is gone or this sender was closed.
	IsClosed() bool
	// Capacity reports the number of free slots; ok is false when unbounded.
	Capacity() (free int, ok bool)
	// MaxCapacity reports the configured bound; ok is false when unbounded.
	MaxCapacity() (max int, ok bool)
}

// Receiver is the consuming half of a channel.
type Receiver[T any] interface {
	// Recv returns the next message. ok == false with a nil error is end-of-stream.
	Recv(ctx context.Context) (v T, ok bool, err error)
	// TryRecv returns domain.ErrEmpty when nothing is queued and the sender is alive.
	TryRecv() (v T, ok bool, err error)
	// Close drops the receiving side. Pending and future sends fail fast. Idempotent.
	Close() error
	// IsClosed reports whether no further messages can be enqueued.
	IsClosed() bool
	IsEmpty() bool
	Len() int
	Capacity() (free int, ok bool)
	MaxCapacity() (max int, ok bool)
}

// SendError is returned when a value could not be enqueued. The rejected value is
// handed back so the caller may retry or fall back.
type SendError[T any] struct {
	Value T
	Err   error
}

func (e *SendError[T]) Error() string {
	return e.Err.Error()
}

func (e *SendError[T]) Unwrap() error {
	return e.Err
}

// Provider opens connected sender/receiver pairs. The name identifies the
// connection for backends that address channels externally; in-process backends
// ignore it. A capacity of zero or less requests an unbounded queue.
type Provider[T any] interface {
	Open(ctx context.Context, name string, capacity int) (Sender[T], Receiver[T], error)
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc[T any] func(ctx context.Context, name string, capacity int) (Sender[T], Receiver[T], error)

func (f ProviderFunc[T]) Open(ctx context.Context, name string, capacity int) (Sender[T], Receiver[T], error) {
	return f(ctx, name, capacity)
}

// Transport is a byte-oriented backend. Typed channels are layered over it with a Codec.
type Transport = Provider[[]byte]

// Codec serializes messages for byte transports.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Backend selects where typed channels are opened. The zero value is the in-process backend.
type Backend struct {
	Transport Transport
	Codec     Codec
}

// IsMemory reports whether channels are kept in-process.
func (b Backend) IsMemory() bool {
	return b.Transport == nil
}

// Open opens a typed channel on the configured backend.
func Open[T any](ctx context.Context, b Backend, name string, capacity int) (Sender[T], Receiver[T], error) {
	if b.IsMemory() {
		tx, rx := New[T](capacity)
		return tx, rx, nil
	}
	if b.Codec == nil {
		return nil, nil, fmt.Errorf("channel %q: transport configured without a codec", name)
	}
	return Encoded[T](b.Transport, b.Codec).Open(ctx, name, capacity)
}
