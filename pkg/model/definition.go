package model

import (
	"cmp"
	"encoding/json"
	"slices"

	"github.com/aretw0/conduit/pkg/domain"
)

// Connection is one validated edge from an output to an input.
// Kind is nil when neither port carried a recorded message kind.
type Connection struct {
	Output domain.OutputPortID
	Input  domain.InputPortID
	Kind   Kind
}

// Definition is the frozen result of Builder.Build. Every accessor returns a copy,
// so nothing reachable from a Definition can add a port or a connection.
type Definition struct {
	alloc       *Allocator
	blocks      []domain.BlockDefinition
	owners      map[domain.PortID]BlockHandle
	inputs      []domain.InputPortID
	outputs     []domain.OutputPortID
	exportedIn  map[domain.InputPortID]struct{}
	exportedOut map[domain.OutputPortID]struct{}
	connections []Connection
	kinds       map[domain.PortID]Kind
}

func newDefinition(alloc *Allocator) *Definition {
	return &Definition{
		alloc:       alloc,
		owners:      make(map[domain.PortID]BlockHandle),
		exportedIn:  make(map[domain.InputPortID]struct{}),
		exportedOut: make(map[domain.OutputPortID]struct{}),
		kinds:       make(map[domain.PortID]Kind),
	}
}

// freeze puts the collections into their canonical order.
func (d *Definition) freeze() {
	slices.SortFunc(d.inputs, func(a, b domain.InputPortID) int { return cmp.Compare(b, a) })
	slices.Sort(d.outputs)
	slices.SortFunc(d.connections, func(a, b Connection) int { return cmp.Compare(a.Output, b.Output) })
}

// Allocator returns the allocator the graph was built with. It can mint fresh IDs
// for handles created outside the graph, such as boundary ports at launch.
func (d *Definition) Allocator() *Allocator { return d.alloc }

// ExportedInputs returns the system's external input ports, in allocation order.
func (d *Definition) ExportedInputs() []domain.InputPortID {
	ids := make([]domain.InputPortID, 0, len(d.exportedIn))
	for _, id := range d.inputs {
		if _, ok := d.exportedIn[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ExportedOutputs returns the system's external output ports, in allocation order.
func (d *Definition) ExportedOutputs() []domain.OutputPortID {
	ids := make([]domain.OutputPortID, 0, len(d.exportedOut))
	for _, id := range d.outputs {
		if _, ok := d.exportedOut[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (d *Definition) IsExported(id domain.PortID) bool {
	if id.IsInput() {
		_, ok := d.exportedIn[domain.InputPortID(id)]
		return ok
	}
	_, ok := d.exportedOut[domain.OutputPortID(id)]
	return ok
}

// RegisteredInputs returns every registered input port.
func (d *Definition) RegisteredInputs() []domain.InputPortID { return slices.Clone(d.inputs) }

// RegisteredOutputs returns every registered output port.
func (d *Definition) RegisteredOutputs() []domain.OutputPortID { return slices.Clone(d.outputs) }

// Blocks returns the block arena; the index of each block is its BlockHandle.
func (d *Definition) Blocks() []domain.BlockDefinition { return slices.Clone(d.blocks) }

func (d *Definition) Block(h BlockHandle) (domain.BlockDefinition, bool) {
	if h < 0 || int(h) >= len(d.blocks) {
		return nil, false
	}
	return d.blocks[h], true
}

// Owner returns the block a port was registered with. Standalone ports have none.
func (d *Definition) Owner(id domain.PortID) (BlockHandle, bool) {
	h, ok := d.owners[id]
	return h, ok
}

// Connections returns the edges ordered by output ID.
func (d *Definition) Connections() []Connection { return slices.Clone(d.connections) }

func (d *Definition) HasConnection(out domain.OutputPortID, in domain.InputPortID) bool {
	c, ok := d.ConnectionFrom(out)
	return ok && c.Input == in
}

func (d *Definition) ConnectionFrom(out domain.OutputPortID) (Connection, bool) {
	i, ok := slices.BinarySearchFunc(d.connections, out, func(c Connection, id domain.OutputPortID) int {
		return cmp.Compare(c.Output, id)
	})
	if !ok {
		return Connection{}, false
	}
	return d.connections[i], true
}

func (d *Definition) ConnectionTo(in domain.InputPortID) (Connection, bool) {
	for _, c := range d.connections {
		if c.Input == in {
			return c, true
		}
	}
	return Connection{}, false
}

// Kind returns the message kind recorded for a port.
func (d *Definition) Kind(id domain.PortID) (Kind, bool) {
	k, ok := d.kinds[id]
	return k, ok
}

// InputRange returns the lowest and highest registered input IDs.
func (d *Definition) InputRange() (lo, hi domain.InputPortID, ok bool) {
	if len(d.inputs) == 0 {
		return 0, 0, false
	}
	return slices.Min(d.inputs), slices.Max(d.inputs), true
}

// OutputRange returns the lowest and highest registered output IDs.
func (d *Definition) OutputRange() (lo, hi domain.OutputPortID, ok bool) {
	if len(d.outputs) == 0 {
		return 0, 0, false
	}
	return slices.Min(d.outputs), slices.Max(d.outputs), true
}

// PortRange returns the lowest and highest port IDs in use across both directions.
func (d *Definition) PortRange() (lo, hi domain.PortID, ok bool) {
	inLo, inHi, hasIn := d.InputRange()
	outLo, outHi, hasOut := d.OutputRange()
	switch {
	case hasIn && hasOut:
		return inLo.PortID(), outHi.PortID(), true
	case hasIn:
		return inLo.PortID(), inHi.PortID(), true
	case hasOut:
		return outLo.PortID(), outHi.PortID(), true
	}
	return 0, 0, false
}

// Summary counts the parts of a Definition.
type Summary struct {
	Blocks          int `json:"blocks"`
	Inputs          int `json:"inputs"`
	Outputs         int `json:"outputs"`
	Connections     int `json:"connections"`
	ExportedInputs  int `json:"exported_inputs"`
	ExportedOutputs int `json:"exported_outputs"`
}

func (d *Definition) Summary() Summary {
	return Summary{
		Blocks:          len(d.blocks),
		Inputs:          len(d.inputs),
		Outputs:         len(d.outputs),
		Connections:     len(d.connections),
		ExportedInputs:  len(d.exportedIn),
		ExportedOutputs: len(d.exportedOut),
	}
}

type blockJSON struct {
	Handle  BlockHandle           `json:"handle"`
	Name    string                `json:"name"`
	Inputs  []domain.InputPortID  `json:"inputs"`
	Outputs []domain.OutputPortID `json:"outputs"`
}

type connectionJSON struct {
	Output domain.OutputPortID `json:"output"`
	Input  domain.InputPortID  `json:"input"`
	Kind   string              `json:"kind,omitempty"`
}

type definitionJSON struct {
	Summary         Summary               `json:"summary"`
	Blocks          []blockJSON           `json:"blocks"`
	Connections     []connectionJSON      `json:"connections"`
	ExportedInputs  []domain.InputPortID  `json:"exported_inputs"`
	ExportedOutputs []domain.OutputPortID `json:"exported_outputs"`
}

// MarshalJSON renders the definition for diagnostics.
func (d *Definition) MarshalJSON() ([]byte, error) {
	out := definitionJSON{
		Summary:         d.Summary(),
		Blocks:          make([]blockJSON, 0, len(d.blocks)),
		Connections:     make([]connectionJSON, 0, len(d.connections)),
		ExportedInputs:  d.ExportedInputs(),
		ExportedOutputs: d.ExportedOutputs(),
	}
	for i, b := range d.blocks {
		out.Blocks = append(out.Blocks, blockJSON{
			Handle:  BlockHandle(i),
			Name:    b.Name(),
			Inputs:  b.Inputs(),
			Outputs: b.Outputs(),
		})
	}
	for _, c := range d.connections {
		cj := connectionJSON{Output: c.Output, Input: c.Input}
		if c.Kind != nil {
			cj.Kind = c.Kind.Name()
		}
		out.Connections = append(out.Connections, cj)
	}
	return json.Marshal(out)
}
