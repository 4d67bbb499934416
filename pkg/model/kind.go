package model

import (
	"context"
	"fmt"
	"reflect"

	"github.com/aretw0/conduit/pkg/channel"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/port"
)

// Kind is the declared message type of a port. Two kinds are equal exactly when
// they describe the same Go type, so kinds can be compared with ==.
//
// A Kind also knows how to create live handles for its type, which lets a frozen
// Definition be materialized without the caller spelling out every type again.
type Kind interface {
	Name() string
	// Pipe opens a channel for this kind and returns the connected output and input handles.
	Pipe(ctx context.Context, b channel.Backend, name string, capacity int, out domain.OutputPortID, in domain.InputPortID) (port.Closer, port.Closer, error)
	// Handle returns an Unconnected handle for id, an input or output by sign.
	Handle(id domain.PortID) (port.Closer, error)
	// Forward relays values from an input handle to an output handle of this kind
	// until end-of-stream, calling each after every delivered value.
	Forward(ctx context.Context, from, to port.Closer, each func()) error
}

type kind[T any] struct{}

// KindFor returns the Kind of message type T.
func KindFor[T any]() Kind {
	return kind[T]{}
}

func (kind[T]) Name() string {
	return reflect.TypeFor[T]().String()
}

func (kind[T]) Pipe(ctx context.Context, b channel.Backend, name string, capacity int, out domain.OutputPortID, in domain.InputPortID) (port.Closer, port.Closer, error) {
	o, i, err := port.Pipe[T](ctx, b, name, capacity, out, in)
	if err != nil {
		return nil, nil, err
	}
	return o, i, nil
}

func (kind[T]) Handle(id domain.PortID) (port.Closer, error) {
	dir, err := domain.DirectionOf(id)
	if err != nil {
		return nil, err
	}
	if dir == domain.DirectionInput {
		return port.NewInput[T](domain.InputPortID(id)), nil
	}
	return port.NewOutput[T](domain.OutputPortID(id)), nil
}

func (k kind[T]) Forward(ctx context.Context, from, to port.Closer, each func()) error {
	in, ok := from.(*port.Input[T])
	if !ok {
		return fmt.Errorf("%w: forward source is %T, want %s input", domain.ErrKindMismatch, from, k.Name())
	}
	out, ok := to.(*port.Output[T])
	if !ok {
		return fmt.Errorf("%w: forward target is %T, want %s output", domain.ErrKindMismatch, to, k.Name())
	}
	var hook func(T)
	if each != nil {
		hook = func(T) { each() }
	}
	return port.Forward(ctx, in, out, hook)
}

func (k kind[T]) String() string { return k.Name() }
