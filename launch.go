package conduit

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/model"
	"github.com/aretw0/conduit/pkg/port"
)

// Runner is a block that can be started by Launch. Run receives the live handles
// of the block's own ports, keyed by port ID; use port.In and port.Out to retrieve
// them with their message type.
type Runner interface {
	domain.BlockDefinition
	Run(ctx context.Context, ports *port.Set) error
}

// Network is a launched Definition.
type Network struct {
	def      *model.Definition
	ports    *port.Set
	boundary *port.Set
	blocks   []*TaskHandle
	links    []*TaskHandle
}

func (n *Network) Definition() *model.Definition { return n.def }

// Boundary holds the peer handles of exported ports: an output for every exported
// input, an input for every exported output, keyed by the exported port's ID.
func (n *Network) Boundary() *port.Set { return n.boundary }

func (n *Network) Blocks() []*TaskHandle { return n.blocks }
func (n *Network) Links() []*TaskHandle  { return n.links }

// Close closes every boundary handle. Blocks reading exported inputs observe
// end-of-stream, and blocks writing exported outputs fail their next send.
func (n *Network) Close() error {
	return n.boundary.CloseAll()
}

// Feed returns the handle that sends into the exported input id.
func Feed[T any](n *Network, id domain.InputPortID) (*port.Output[T], error) {
	return port.Get[*port.Output[T]](n.boundary, id.PortID())
}

// Drain returns the handle that receives from the exported output id.
func Drain[T any](n *Network, id domain.OutputPortID) (*port.Input[T], error) {
	return port.Get[*port.Input[T]](n.boundary, id.PortID())
}

type pendingLink struct {
	name     string
	kind     model.Kind
	conn     model.Connection
	from, to port.Closer
}

// Launch materializes def on s. Every connection gets two channels and a forwarding
// link between them, every exported port gets a boundary peer, and every block is
// spawned as a task. Ports are closed when their block returns, so end-of-stream
// propagates even when a runner forgets to close them.
//
// Every registered block must implement Runner, and every port that needs a
// channel must have a recorded message kind. On error nothing is spawned.
func Launch(ctx context.Context, s *System, def *model.Definition) (*Network, error) {
	runners := make([]Runner, 0, len(def.Blocks()))
	for _, b := range def.Blocks() {
		r, ok := b.(Runner)
		if !ok {
			return nil, fmt.Errorf("%w: %q is %T", domain.ErrNotRunnable, b.Name(), b)
		}
		runners = append(runners, r)
	}

	n := &Network{def: def, ports: port.NewSet(), boundary: port.NewSet()}
	links, err := n.open(ctx, s)
	if err != nil {
		for _, l := range links {
			_ = l.from.Close()
			_ = l.to.Close()
		}
		_ = n.ports.CloseAll()
		_ = n.boundary.CloseAll()
		return nil, err
	}

	for _, r := range runners {
		view := port.NewSet()
		for _, id := range domain.PortIDs(r) {
			h, err := port.Get[port.Closer](n.ports, id)
			if err != nil {
				continue
			}
			_ = view.Add(id, h)
		}
		n.blocks = append(n.blocks, s.Spawn(r.Name(), func(ctx context.Context) error {
			defer view.CloseAll()
			return r.Run(ctx, view)
		}))
	}

	for _, l := range links {
		n.links = append(n.links, s.Spawn(l.name, func(ctx context.Context) error {
			return l.kind.Forward(ctx, l.from, l.to, func() {
				s.message(ctx, l.name, l.conn.Input, l.conn.Output)
			})
		}))
	}

	s.logger.Info("network launched",
		"blocks", len(n.blocks),
		"links", len(n.links),
		"boundary", n.boundary.Len())
	return n, nil
}

// Channel names must not depend on allocator state: blocks may carry IDs from any
// allocator, so fresh link IDs can repeat IDs already in the graph.
func linkChannel(s *System, conn int, side string) string {
	return fmt.Sprintf("%s:link:%d:%s", s.runID, conn, side)
}

func boundaryChannel(s *System, id domain.PortID) string {
	return fmt.Sprintf("%s:export:%d", s.runID, id)
}

func kindOf(def *model.Definition, id domain.PortID) (model.Kind, error) {
	k, ok := def.Kind(id)
	if !ok || k == nil {
		return nil, domain.NewBuildError(domain.ErrUnknownKind, id)
	}
	return k, nil
}

// open creates every handle and channel but spawns nothing. The links opened so far
// are returned even on error so the caller can release them.
func (n *Network) open(ctx context.Context, s *System) ([]pendingLink, error) {
	def, alloc := n.def, n.def.Allocator()
	var links []pendingLink

	for i, c := range def.Connections() {
		if def.IsExported(c.Output.PortID()) {
			return links, domain.NewBuildError(domain.ErrAlreadyConnectedOutput, c.Output.PortID())
		}
		if def.IsExported(c.Input.PortID()) {
			return links, domain.NewBuildError(domain.ErrAlreadyConnectedInput, c.Input.PortID())
		}
		k := c.Kind
		if k == nil {
			return links, domain.NewBuildError(domain.ErrUnknownKind, c.Output.PortID())
		}

		linkIn, linkOut := alloc.NextInput(), alloc.NextOutput()
		up, from, err := k.Pipe(ctx, s.backend, linkChannel(s, i, "up"), s.capacity, c.Output, linkIn)
		if err != nil {
			return links, err
		}
		to, down, err := k.Pipe(ctx, s.backend, linkChannel(s, i, "down"), s.capacity, linkOut, c.Input)
		if err != nil {
			_ = up.Close()
			_ = from.Close()
			return links, err
		}
		if err := errors.Join(n.ports.Add(c.Output.PortID(), up), n.ports.Add(c.Input.PortID(), down)); err != nil {
			return links, err
		}
		links = append(links, pendingLink{
			name: fmt.Sprintf("link %d -> %d", c.Output, c.Input),
			kind: k,
			conn: c,
			from: from,
			to:   to,
		})
	}

	for _, id := range def.ExportedInputs() {
		k, err := kindOf(def, id.PortID())
		if err != nil {
			return links, err
		}
		feed := alloc.NextOutput()
		o, i, err := k.Pipe(ctx, s.backend, boundaryChannel(s, id.PortID()), s.capacity, feed, id)
		if err != nil {
			return links, err
		}
		if err := errors.Join(n.ports.Add(id.PortID(), i), n.boundary.Add(id.PortID(), o)); err != nil {
			return links, err
		}
	}

	for _, id := range def.ExportedOutputs() {
		k, err := kindOf(def, id.PortID())
		if err != nil {
			return links, err
		}
		drain := alloc.NextInput()
		o, i, err := k.Pipe(ctx, s.backend, boundaryChannel(s, id.PortID()), s.capacity, id, drain)
		if err != nil {
			return links, err
		}
		if err := errors.Join(n.ports.Add(id.PortID(), o), n.boundary.Add(id.PortID(), i)); err != nil {
			return links, err
		}
	}

	// Remaining block ports stay Unconnected: receiving yields end-of-stream and
	// sending fails with ErrNotConnected. Ports without a kind are left out.
	for _, b := range def.Blocks() {
		for _, id := range domain.PortIDs(b) {
			if n.ports.Has(id) {
				continue
			}
			k, ok := def.Kind(id)
			if !ok || k == nil {
				continue
			}
			h, err := k.Handle(id)
			if err != nil {
				return links, err
			}
			if err := n.ports.Add(id, h); err != nil {
				return links, err
			}
		}
	}
	return links, nil
}
