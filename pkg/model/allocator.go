package model

import (
	"sync"
	"sync/atomic"

	"github.com/aretw0/conduit/pkg/domain"
)

// Allocator hands out port identities from two independent counters: inputs
// count down from -1 and outputs count up from 1. It is safe for concurrent use.
// Every builder owns one, so independent graphs never share counters.
type Allocator struct {
	inputs  atomic.Int64
	outputs atomic.Int64

	mu    sync.RWMutex
	kinds map[domain.PortID]Kind
}

func NewAllocator() *Allocator {
	return &Allocator{kinds: make(map[domain.PortID]Kind)}
}

// NextInput returns a fresh input ID.
func (a *Allocator) NextInput() domain.InputPortID {
	return domain.InputPortID(-a.inputs.Add(1))
}

// NextOutput returns a fresh output ID.
func (a *Allocator) NextOutput() domain.OutputPortID {
	return domain.OutputPortID(a.outputs.Add(1))
}

// Allocated reports how many IDs of each direction have been issued.
func (a *Allocator) Allocated() (inputs, outputs int64) {
	return a.inputs.Load(), a.outputs.Load()
}

// KindOf returns the message kind recorded for id, if any.
func (a *Allocator) KindOf(id domain.PortID) (Kind, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	k, ok := a.kinds[id]
	return k, ok
}

func (a *Allocator) record(id domain.PortID, k Kind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kinds[id] = k
}

// Input is a typed input identity. The type parameter is the message type.
type Input[T any] struct {
	ID domain.InputPortID
}

// Output is a typed output identity. The type parameter is the message type.
type Output[T any] struct {
	ID domain.OutputPortID
}

// AllocInput issues a fresh input ID and records T as its message kind.
func AllocInput[T any](a *Allocator) Input[T] {
	id := a.NextInput()
	a.record(id.PortID(), KindFor[T]())
	return Input[T]{ID: id}
}

// AllocOutput issues a fresh output ID and records T as its message kind.
func AllocOutput[T any](a *Allocator) Output[T] {
	id := a.NextOutput()
	a.record(id.PortID(), KindFor[T]())
	return Output[T]{ID: id}
}
