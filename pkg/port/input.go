// Package port provides the live handles blocks use to exchange messages.
//
// A handle wraps one half of a channel and tracks the port lifecycle:
//
//	Unconnected -> Connected -> Disconnected -> Closed
//
// Illegal moves return a *domain.TransitionError. Close is always safe to repeat.
package port

import (
	"context"
	"sync"

	"github.com/aretw0/conduit/pkg/channel"
	"github.com/aretw0/conduit/pkg/domain"
)

// Input is the receiving handle of a port.
type Input[T any] struct {
	id domain.InputPortID

	mu        sync.Mutex
	state     domain.PortState
	rx        channel.Receiver[T]
	announced bool // Connect event delivered by RecvEvent
	farewell  bool // Disconnect event delivered by RecvEvent
}

// NewInput returns an Unconnected input handle.
func NewInput[T any](id domain.InputPortID) *Input[T] {
	return &Input[T]{id: id}
}

// OpenInput returns an input handle already Connected to rx.
func OpenInput[T any](id domain.InputPortID, rx channel.Receiver[T]) *Input[T] {
	return &Input[T]{id: id, state: domain.PortConnected, rx: rx}
}

func (p *Input[T]) ID() domain.InputPortID { return p.id }

func (p *Input[T]) State() domain.PortState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Connect attaches a receiver half. Only legal from Unconnected.
func (p *Input[T]) Connect(rx channel.Receiver[T]) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := p.state.Transition(domain.PortConnected)
	if err != nil {
		return err
	}
	p.state, p.rx = next, rx
	return nil
}

// Disconnect records that the sending peer is gone. Queued messages can still be drained.
func (p *Input[T]) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := p.state.Transition(domain.PortDisconnected)
	if err != nil {
		return err
	}
	p.state = next
	return nil
}

// Close releases the receiver half. The peer's next send fails instead of suspending.
func (p *Input[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == domain.PortClosed {
		return nil
	}
	p.state = domain.PortClosed
	if p.rx != nil {
		return p.rx.Close()
	}
	return nil
}

// receiver returns the attached half when the port is readable.
func (p *Input[T]) receiver() channel.Receiver[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.HasChannel() {
		return nil
	}
	return p.rx
}

// peerGone moves Connected to Disconnected after end-of-stream was observed.
func (p *Input[T]) peerGone() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == domain.PortConnected {
		p.state = domain.PortDisconnected
	}
}

// Recv returns the next message. ok == false with a nil error is end-of-stream,
// which is also what an Unconnected or Closed input reports.
func (p *Input[T]) Recv(ctx context.Context) (T, bool, error) {
	var zero T
	rx := p.receiver()
	if rx == nil {
		return zero, false, nil
	}
	v, ok, err := rx.Recv(ctx)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		p.peerGone()
	}
	return v, ok, nil
}

// TryRecv polls without suspending. An Unconnected input reports domain.ErrNotConnected.
func (p *Input[T]) TryRecv() (T, bool, error) {
	var zero T
	rx := p.receiver()
	if rx == nil {
		if p.State() == domain.PortUnconnected {
			return zero, false, domain.ErrNotConnected
		}
		return zero, false, nil
	}
	v, ok, err := rx.TryRecv()
	if err == nil && !ok {
		p.peerGone()
	}
	return v, ok, err
}

// RecvEvent reads the port as an event stream: one Connect event, the messages in
// order, then one Disconnect event. After that it reports ok == false.
func (p *Input[T]) RecvEvent(ctx context.Context) (domain.PortEvent[T], bool, error) {
	evt := domain.PortEvent[T]{Port: p.id.PortID()}

	p.mu.Lock()
	if p.state.HasChannel() && !p.announced {
		p.announced = true
		p.mu.Unlock()
		evt.Type = domain.PortEventConnect
		return evt, true, nil
	}
	p.mu.Unlock()

	v, ok, err := p.Recv(ctx)
	if err != nil {
		return evt, false, err
	}
	if ok {
		evt.Type, evt.Value = domain.PortEventMessage, v
		return evt, true, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.announced && !p.farewell {
		p.farewell = true
		evt.Type = domain.PortEventDisconnect
		return evt, true, nil
	}
	return evt, false, nil
}

// IsEmpty reports whether no message is queued; ok is false outside Connected/Disconnected.
func (p *Input[T]) IsEmpty() (empty bool, ok bool) {
	rx := p.receiver()
	if rx == nil {
		return false, false
	}
	return rx.IsEmpty(), true
}

// Capacity reports the free slots; ok is false when unknown.
func (p *Input[T]) Capacity() (int, bool) {
	rx := p.receiver()
	if rx == nil {
		return 0, false
	}
	return rx.Capacity()
}

// MaxCapacity reports the configured bound; ok is false when unknown.
func (p *Input[T]) MaxCapacity() (int, bool) {
	rx := p.receiver()
	if rx == nil {
		return 0, false
	}
	return rx.MaxCapacity()
}
