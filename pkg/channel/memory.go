package channel

import (
	"context"
	"sync"

	"github.com/aretw0/conduit/pkg/domain"
)

// queue is the state shared by the two halves of an in-process channel.
// Every state change closes notify and replaces it, waking all waiters.
type queue[T any] struct {
	mu             sync.Mutex
	buf            []T
	capacity       int // 0 means unbounded
	senderClosed   bool
	receiverClosed bool
	notify         chan struct{}
}

func (q *queue[T]) signal() {
	close(q.notify)
	q.notify = make(chan struct{})
}

// New returns a connected in-process pair. A capacity of zero or less is unbounded.
func New[T any](capacity int) (Sender[T], Receiver[T]) {
	if capacity < 0 {
		capacity = 0
	}
	q := &queue[T]{
		capacity: capacity,
		notify:   make(chan struct{}),
	}
	return &memSender[T]{q: q}, &memReceiver[T]{q: q}
}

// Bounded returns an in-process pair holding at most capacity messages.
func Bounded[T any](capacity int) (Sender[T], Receiver[T]) {
	if capacity < 1 {
		capacity = 1
	}
	return New[T](capacity)
}

// Unbounded returns an in-process pair that never suspends senders.
func Unbounded[T any]() (Sender[T], Receiver[T]) {
	return New[T](0)
}

// Memory is the default in-process Provider.
type Memory[T any] struct{}

func (Memory[T]) Open(_ context.Context, _ string, capacity int) (Sender[T], Receiver[T], error) {
	tx, rx := New[T](capacity)
	return tx, rx, nil
}

type memSender[T any] struct {
	q *queue[T]
}

func (s *memSender[T]) Send(ctx context.Context, v T) error {
	q := s.q
	for {
		q.mu.Lock()
		if err := s.rejectLocked(); err != nil {
			q.mu.Unlock()
			return &SendError[T]{Value: v, Err: err}
		}
		if q.capacity == 0 || len(q.buf) < q.capacity {
			q.buf = append(q.buf, v)
			q.signal()
			q.mu.Unlock()
			return nil
		}
		wait := q.notify
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return &SendError[T]{Value: v, Err: ctx.Err()}
		case <-wait:
		}
	}
}

func (s *memSender[T]) TrySend(v T) error {
	q := s.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := s.rejectLocked(); err != nil {
		return &SendError[T]{Value: v, Err: err}
	}
	if q.capacity != 0 && len(q.buf) >= q.capacity {
		return &SendError[T]{Value: v, Err: domain.ErrFull}
	}
	q.buf = append(q.buf, v)
	q.signal()
	return nil
}

func (s *memSender[T]) rejectLocked() error {
	switch {
	case s.q.receiverClosed:
		return domain.ErrSend
	case s.q.senderClosed:
		return domain.ErrChannelClosed
	}
	return nil
}

func (s *memSender[T]) Close() error {
	q := s.q
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.senderClosed {
		q.senderClosed = true
		q.signal()
	}
	return nil
}

func (s *memSender[T]) IsClosed() bool {
	s.q.mu.Lock()
	defer s.q.mu.Unlock()
	return s.q.receiverClosed || s.q.senderClosed
}

func (s *memSender[T]) Capacity() (int, bool) { return s.q.free() }

func (s *memSender[T]) MaxCapacity() (int, bool) { return s.q.max() }

type memReceiver[T any] struct {
	q *queue[T]
}

func (r *memReceiver[T]) Recv(ctx context.Context) (T, bool, error) {
	q := r.q
	for {
		q.mu.Lock()
		if v, ok := q.popLocked(); ok {
			q.mu.Unlock()
			return v, true, nil
		}
		if q.senderClosed || q.receiverClosed {
			q.mu.Unlock()
			var zero T
			return zero, false, nil
		}
		wait := q.notify
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		case <-wait:
		}
	}
}

func (r *memReceiver[T]) TryRecv() (T, bool, error) {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if v, ok := q.popLocked(); ok {
		return v, true, nil
	}
	var zero T
	if q.senderClosed || q.receiverClosed {
		return zero, false, nil
	}
	return zero, false, domain.ErrEmpty
}

func (q *queue[T]) popLocked() (T, bool) {
	var zero T
	if len(q.buf) == 0 {
		return zero, false
	}
	v := q.buf[0]
	q.buf[0] = zero
	q.buf = q.buf[1:]
	q.signal()
	return v, true
}

// Close marks the receiver gone. Already queued messages can still be drained.
func (r *memReceiver[T]) Close() error {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.receiverClosed {
		q.receiverClosed = true
		q.signal()
	}
	return nil
}

func (r *memReceiver[T]) IsClosed() bool {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return r.q.senderClosed || r.q.receiverClosed
}

func (r *memReceiver[T]) IsEmpty() bool { return r.Len() == 0 }

func (r *memReceiver[T]) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.buf)
}

func (r *memReceiver[T]) Capacity() (int, bool) { return r.q.free() }

func (r *memReceiver[T]) MaxCapacity() (int, bool) { return r.q.max() }

func (q *queue[T]) free() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.capacity == 0 {
		return 0, false
	}
	return q.capacity - len(q.buf), true
}

func (q *queue[T]) max() (int, bool) {
	if q.capacity == 0 {
		return 0, false
	}
	return q.capacity, true
}
