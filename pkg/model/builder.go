// Package model holds the construction-time view of a dataflow system: port
// identity allocation, the Builder that validates wiring, and the frozen Definition.
package model

import (
	"fmt"

	"github.com/aretw0/conduit/pkg/domain"
)

// Builder records blocks, ports and connections, enforcing the wiring rules on
// every call. A Builder is owned by a single goroutine.
type Builder struct {
	alloc *Allocator
	def   *Definition

	registeredInputs  map[domain.InputPortID]struct{}
	registeredOutputs map[domain.OutputPortID]struct{}
	connectedOutputs  map[domain.OutputPortID]struct{}
	connectedInputs   map[domain.InputPortID]struct{}

	consumed bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithAllocator shares an allocator, typically one already used by block constructors.
func WithAllocator(a *Allocator) BuilderOption {
	return func(b *Builder) {
		b.alloc = a
	}
}

// NewBuilder creates an empty builder with its own allocator unless one is provided.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		registeredInputs:  make(map[domain.InputPortID]struct{}),
		registeredOutputs: make(map[domain.OutputPortID]struct{}),
		connectedOutputs:  make(map[domain.OutputPortID]struct{}),
		connectedInputs:   make(map[domain.InputPortID]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.alloc == nil {
		b.alloc = NewAllocator()
	}
	b.def = newDefinition(b.alloc)
	return b
}

// Allocator returns the allocator used for standalone ports.
func (b *Builder) Allocator() *Allocator { return b.alloc }

// Block returns a registered block by handle.
func (b *Builder) Block(h BlockHandle) (domain.BlockDefinition, bool) {
	if b.consumed {
		return nil, false
	}
	return b.def.Block(h)
}

func (b *Builder) isRegistered(id domain.PortID) bool {
	if id.IsInput() {
		_, ok := b.registeredInputs[domain.InputPortID(id)]
		return ok
	}
	_, ok := b.registeredOutputs[domain.OutputPortID(id)]
	return ok
}

// checkNew validates ids as a batch: correct sign, not yet registered, no repeats.
func (b *Builder) checkNew(ids []domain.PortID, wantInput []bool) error {
	seen := make(map[domain.PortID]struct{}, len(ids))
	for i, id := range ids {
		if id == 0 {
			return domain.NewBuildError(domain.ErrZeroPortID, id)
		}
		if id.IsInput() != wantInput[i] {
			return domain.NewBuildError(domain.ErrWrongDirection, id)
		}
		if _, dup := seen[id]; dup || b.isRegistered(id) {
			return domain.NewBuildError(domain.ErrDuplicatePort, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (b *Builder) record(id domain.PortID) {
	if id.IsInput() {
		in := domain.InputPortID(id)
		b.registeredInputs[in] = struct{}{}
		b.def.inputs = append(b.def.inputs, in)
	} else {
		out := domain.OutputPortID(id)
		b.registeredOutputs[out] = struct{}{}
		b.def.outputs = append(b.def.outputs, out)
	}
	if k, ok := b.alloc.KindOf(id); ok {
		b.def.kinds[id] = k
	}
}

// Register records a block and all its ports. If any port is invalid or already
// registered, nothing is recorded.
func (b *Builder) Register(block domain.BlockDefinition) (BlockHandle, error) {
	if b.consumed {
		return 0, domain.ErrBuilderConsumed
	}
	ids := domain.PortIDs(block)
	want := make([]bool, len(ids))
	for i := range block.Inputs() {
		want[i] = true
	}
	if err := b.checkNew(ids, want); err != nil {
		return 0, fmt.Errorf("register block %q: %w", block.Name(), err)
	}

	h := BlockHandle(len(b.def.blocks))
	b.def.blocks = append(b.def.blocks, block)
	for _, id := range ids {
		b.record(id)
		b.def.owners[id] = h
	}
	return h, nil
}

// RegisterPort registers a standalone port, dispatching on the sign of id.
func (b *Builder) RegisterPort(id domain.PortID) error {
	if b.consumed {
		return domain.ErrBuilderConsumed
	}
	if err := b.checkNew([]domain.PortID{id}, []bool{id.IsInput()}); err != nil {
		return err
	}
	b.record(id)
	return nil
}

func (b *Builder) RegisterInput(id domain.InputPortID) error {
	if id.PortID().IsOutput() {
		return domain.NewBuildError(domain.ErrWrongDirection, id.PortID())
	}
	return b.RegisterPort(id.PortID())
}

func (b *Builder) RegisterOutput(id domain.OutputPortID) error {
	if id.PortID().IsInput() {
		return domain.NewBuildError(domain.ErrWrongDirection, id.PortID())
	}
	return b.RegisterPort(id.PortID())
}

// Export marks a registered port as part of the system boundary.
func (b *Builder) Export(id domain.PortID) error {
	switch {
	case id.IsInput():
		return b.ExportInput(domain.InputPortID(id))
	case id.IsOutput():
		return b.ExportOutput(domain.OutputPortID(id))
	}
	return domain.NewBuildError(domain.ErrZeroPortID, id)
}

func (b *Builder) ExportInput(id domain.InputPortID) error {
	if b.consumed {
		return domain.ErrBuilderConsumed
	}
	if _, ok := b.registeredInputs[id]; !ok {
		return domain.NewBuildError(domain.ErrUnregisteredInput, id.PortID())
	}
	b.def.exportedIn[id] = struct{}{}
	return nil
}

func (b *Builder) ExportOutput(id domain.OutputPortID) error {
	if b.consumed {
		return domain.ErrBuilderConsumed
	}
	if _, ok := b.registeredOutputs[id]; !ok {
		return domain.NewBuildError(domain.ErrUnregisteredOutput, id.PortID())
	}
	b.def.exportedOut[id] = struct{}{}
	return nil
}

// ConnectIDs wires out to in by raw IDs. Recorded kinds must agree.
// Checks run in order: unregistered input, unregistered output, output already
// connected, input already connected, kind mismatch.
func (b *Builder) ConnectIDs(out domain.OutputPortID, in domain.InputPortID) (bool, error) {
	return b.connect(out, in, nil)
}

// Connect wires two typed ports carrying the same message type.
func Connect[T any](b *Builder, out Output[T], in Input[T]) (bool, error) {
	return b.connect(out.ID, in.ID, KindFor[T]())
}

func (b *Builder) connect(out domain.OutputPortID, in domain.InputPortID, declared Kind) (bool, error) {
	if b.consumed {
		return false, domain.ErrBuilderConsumed
	}
	if _, ok := b.registeredInputs[in]; !ok {
		return false, domain.NewBuildError(domain.ErrUnregisteredInput, in.PortID())
	}
	if _, ok := b.registeredOutputs[out]; !ok {
		return false, domain.NewBuildError(domain.ErrUnregisteredOutput, out.PortID())
	}
	if _, ok := b.connectedOutputs[out]; ok {
		return false, domain.NewBuildError(domain.ErrAlreadyConnectedOutput, out.PortID())
	}
	if _, ok := b.connectedInputs[in]; ok {
		return false, domain.NewBuildError(domain.ErrAlreadyConnectedInput, in.PortID())
	}

	k, err := b.resolveKind(out, in, declared)
	if err != nil {
		return false, err
	}
	if k != nil {
		b.def.kinds[out.PortID()] = k
		b.def.kinds[in.PortID()] = k
	}

	b.connectedOutputs[out] = struct{}{}
	b.connectedInputs[in] = struct{}{}
	b.def.connections = append(b.def.connections, Connection{Output: out, Input: in, Kind: k})
	return true, nil
}

// resolveKind reconciles the kinds recorded for both ends with the declared one.
func (b *Builder) resolveKind(out domain.OutputPortID, in domain.InputPortID, declared Kind) (Kind, error) {
	k := declared
	for _, id := range []domain.PortID{out.PortID(), in.PortID()} {
		recorded, ok := b.def.kinds[id]
		if !ok {
			continue
		}
		if k == nil {
			k = recorded
			continue
		}
		if recorded != k {
			return nil, fmt.Errorf("%w (%s, want %s)", domain.NewBuildError(domain.ErrKindMismatch, id), recorded.Name(), k.Name())
		}
	}
	return k, nil
}

// Build freezes the graph. The builder cannot be used afterwards.
func (b *Builder) Build() (*Definition, error) {
	if b.consumed {
		return nil, domain.ErrBuilderConsumed
	}
	b.consumed = true

	def := b.def
	def.freeze()

	b.def = nil
	b.registeredInputs = nil
	b.registeredOutputs = nil
	b.connectedOutputs = nil
	b.connectedInputs = nil
	return def, nil
}

// NewInput allocates a typed input and registers it as a standalone port.
func NewInput[T any](b *Builder) (Input[T], error) {
	if b.consumed {
		return Input[T]{}, domain.ErrBuilderConsumed
	}
	in := AllocInput[T](b.alloc)
	return in, b.RegisterInput(in.ID)
}

// NewOutput allocates a typed output and registers it as a standalone port.
func NewOutput[T any](b *Builder) (Output[T], error) {
	if b.consumed {
		return Output[T]{}, domain.ErrBuilderConsumed
	}
	out := AllocOutput[T](b.alloc)
	return out, b.RegisterOutput(out.ID)
}
