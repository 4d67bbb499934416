package channel

import (
	"context"
	"fmt"

	"github.com/aretw0/conduit/pkg/domain"
)

// Encoded layers typed channels over a byte Transport.
func Encoded[T any](t Transport, c Codec) Provider[T] {
	return ProviderFunc[T](func(ctx context.Context, name string, capacity int) (Sender[T], Receiver[T], error) {
		tx, rx, err := t.Open(ctx, name, capacity)
		if err != nil {
			return nil, nil, err
		}
		return &encodedSender[T]{tx: tx, codec: c}, &encodedReceiver[T]{rx: rx, codec: c}, nil
	})
}

type encodedSender[T any] struct {
	tx    Sender[[]byte]
	codec Codec
}

func (s *encodedSender[T]) Send(ctx context.Context, v T) error {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return &SendError[T]{Value: v, Err: fmt.Errorf("%s encode: %w", s.codec.Name(), err)}
	}
	return s.retype(v, s.tx.Send(ctx, data))
}

func (s *encodedSender[T]) TrySend(v T) error {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return &SendError[T]{Value: v, Err: fmt.Errorf("%s encode: %w", s.codec.Name(), err)}
	}
	return s.retype(v, s.tx.TrySend(data))
}

// retype swaps the encoded payload in a transport SendError for the typed value.
func (s *encodedSender[T]) retype(v T, err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*SendError[[]byte]); ok {
		return &SendError[T]{Value: v, Err: se.Err}
	}
	return &SendError[T]{Value: v, Err: err}
}

func (s *encodedSender[T]) Close() error             { return s.tx.Close() }
func (s *encodedSender[T]) IsClosed() bool           { return s.tx.IsClosed() }
func (s *encodedSender[T]) Capacity() (int, bool)    { return s.tx.Capacity() }
func (s *encodedSender[T]) MaxCapacity() (int, bool) { return s.tx.MaxCapacity() }

type encodedReceiver[T any] struct {
	rx    Receiver[[]byte]
	codec Codec
}

func (r *encodedReceiver[T]) Recv(ctx context.Context) (T, bool, error) {
	data, ok, err := r.rx.Recv(ctx)
	return r.decode(data, ok, err)
}

func (r *encodedReceiver[T]) TryRecv() (T, bool, error) {
	data, ok, err := r.rx.TryRecv()
	return r.decode(data, ok, err)
}

func (r *encodedReceiver[T]) decode(data []byte, ok bool, err error) (T, bool, error) {
	var v T
	if err != nil || !ok {
		return v, ok, err
	}
	if err := r.codec.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("%w: %s decode: %v", domain.ErrRecv, r.codec.Name(), err)
	}
	return v, true, nil
}

func (r *encodedReceiver[T]) Close() error             { return r.rx.Close() }
func (r *encodedReceiver[T]) IsClosed() bool           { return r.rx.IsClosed() }
func (r *encodedReceiver[T]) IsEmpty() bool            { return r.rx.IsEmpty() }
func (r *encodedReceiver[T]) Len() int                 { return r.rx.Len() }
func (r *encodedReceiver[T]) Capacity() (int, bool)    { return r.rx.Capacity() }
func (r *encodedReceiver[T]) MaxCapacity() (int, bool) { return r.rx.MaxCapacity() }
