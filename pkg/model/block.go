package model

import (
	"slices"

	"github.com/aretw0/conduit/pkg/domain"
)

// Block is a plain BlockDefinition for callers that do not need their own type.
type Block struct {
	name    string
	inputs  []domain.InputPortID
	outputs []domain.OutputPortID
}

// NewBlock copies the port lists so later changes by the caller are not observed.
func NewBlock(name string, inputs []domain.InputPortID, outputs []domain.OutputPortID) *Block {
	return &Block{
		name:    name,
		inputs:  slices.Clone(inputs),
		outputs: slices.Clone(outputs),
	}
}

func (b *Block) Name() string { return b.name }

func (b *Block) Inputs() []domain.InputPortID { return slices.Clone(b.inputs) }

func (b *Block) Outputs() []domain.OutputPortID { return slices.Clone(b.outputs) }

// BlockHandle indexes a block in the arena shared by a Builder and its Definition.
type BlockHandle int
