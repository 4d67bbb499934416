package port

import (
	"context"
	"errors"
	"sync"

	"github.com/aretw0/conduit/pkg/channel"
	"github.com/aretw0/conduit/pkg/domain"
)

// Output is the sending handle of a port.
type Output[T any] struct {
	id domain.OutputPortID

	mu    sync.Mutex
	state domain.PortState
	tx    channel.Sender[T]
}

// NewOutput returns an Unconnected output handle.
func NewOutput[T any](id domain.OutputPortID) *Output[T] {
	return &Output[T]{id: id}
}

// OpenOutput returns an output handle already Connected to tx.
func OpenOutput[T any](id domain.OutputPortID, tx channel.Sender[T]) *Output[T] {
	return &Output[T]{id: id, state: domain.PortConnected, tx: tx}
}

func (p *Output[T]) ID() domain.OutputPortID { return p.id }

func (p *Output[T]) State() domain.PortState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Connect attaches a sender half. Only legal from Unconnected.
func (p *Output[T]) Connect(tx channel.Sender[T]) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := p.state.Transition(domain.PortConnected)
	if err != nil {
		return err
	}
	p.state, p.tx = next, tx
	return nil
}

// Disconnect records that the receiving peer is gone.
func (p *Output[T]) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := p.state.Transition(domain.PortDisconnected)
	if err != nil {
		return err
	}
	p.state = next
	return nil
}

// Close stops accepting new messages. The receiver drains what is queued and then
// observes end-of-stream. Sends already suspended are not failed by Close.
func (p *Output[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == domain.PortClosed {
		return nil
	}
	p.state = domain.PortClosed
	if p.tx != nil {
		return p.tx.Close()
	}
	return nil
}

func (p *Output[T]) sender() (channel.Sender[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case domain.PortUnconnected:
		return nil, domain.ErrNotConnected
	case domain.PortClosed:
		return nil, domain.ErrPortClosed
	}
	return p.tx, nil
}

func (p *Output[T]) peerGone(err error) {
	if !errors.Is(err, domain.ErrSend) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == domain.PortConnected {
		p.state = domain.PortDisconnected
	}
}

// Send enqueues v, suspending while the channel is full. When the receiver is gone
// the error is a *channel.SendError carrying v and matching domain.ErrSend.
func (p *Output[T]) Send(ctx context.Context, v T) error {
	tx, err := p.sender()
	if err != nil {
		return &channel.SendError[T]{Value: v, Err: err}
	}
	err = tx.Send(ctx, v)
	p.peerGone(err)
	return err
}

// TrySend enqueues v without suspending.
func (p *Output[T]) TrySend(v T) error {
	tx, err := p.sender()
	if err != nil {
		return &channel.SendError[T]{Value: v, Err: err}
	}
	err = tx.TrySend(v)
	p.peerGone(err)
	return err
}

func (p *Output[T]) halfForQuery() channel.Sender[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.HasChannel() {
		return nil
	}
	return p.tx
}

// IsClosed reports whether sends can no longer succeed.
func (p *Output[T]) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == domain.PortClosed {
		return true
	}
	return p.tx != nil && p.tx.IsClosed()
}

// Capacity reports the free slots; ok is false when unknown.
func (p *Output[T]) Capacity() (int, bool) {
	tx := p.halfForQuery()
	if tx == nil {
		return 0, false
	}
	return tx.Capacity()
}

// MaxCapacity reports the configured bound; ok is false when unknown.
func (p *Output[T]) MaxCapacity() (int, bool) {
	tx := p.halfForQuery()
	if tx == nil {
		return 0, false
	}
	return tx.MaxCapacity()
}
