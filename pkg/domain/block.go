package domain

// BlockDefinition describes a unit of work by its stable name and the ports it uses.
// The port lists are fixed for the lifetime of the block. A block without ports
// (a pure source or sink bridged to the outside world) is valid.
type BlockDefinition interface {
	Name() string
	Inputs() []InputPortID
	Outputs() []OutputPortID
}

// PortIDs returns every port of b, inputs first, in declaration order.
func PortIDs(b BlockDefinition) []PortID {
	ins, outs := b.Inputs(), b.Outputs()
	ids := make([]PortID, 0, len(ins)+len(outs))
	for _, in := range ins {
		ids = append(ids, in.PortID())
	}
	for _, out := range outs {
		ids = append(ids, out.PortID())
	}
	return ids
}
