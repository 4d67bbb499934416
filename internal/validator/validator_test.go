package validator

import (
	"strings"
	"testing"

	"github.com/aretw0/conduit/internal/pipelines"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/model"
)

func build(t *testing.T, f func(b *model.Builder, a *model.Allocator)) *model.Definition {
	t.Helper()
	b := model.NewBuilder()
	f(b, b.Allocator())
	def, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return def
}

func TestValidateDefinition(t *testing.T) {
	sqrt, err := pipelines.Sqrt(pipelines.IO{})
	if err != nil {
		t.Fatal(err)
	}

	// loop -> loop, fed by nothing
	cycle := build(t, func(b *model.Builder, a *model.Allocator) {
		in, out := model.AllocInput[int](a), model.AllocOutput[int](a)
		blk := model.NewBlock("loop", []domain.InputPortID{in.ID}, []domain.OutputPortID{out.ID})
		if _, err := b.Register(blk); err != nil {
			t.Fatal(err)
		}
		if _, err := model.Connect(b, out, in); err != nil {
			t.Fatal(err)
		}
	})

	// exported input -> worker -> dangling output
	dangling := build(t, func(b *model.Builder, a *model.Allocator) {
		in, out := model.AllocInput[int](a), model.AllocOutput[int](a)
		blk := model.NewBlock("worker", []domain.InputPortID{in.ID}, []domain.OutputPortID{out.ID})
		if _, err := b.Register(blk); err != nil {
			t.Fatal(err)
		}
		if err := b.ExportInput(in.ID); err != nil {
			t.Fatal(err)
		}
	})

	tests := []struct {
		name     string
		def      *model.Definition
		wantErr  bool
		contains []string
	}{
		{name: "Valid Pipeline", def: sqrt},
		{
			name:     "Unreachable Cycle",
			def:      cycle,
			wantErr:  true,
			contains: []string{"Unreachable block 'loop'"},
		},
		{
			name:     "Dangling Output",
			def:      dangling,
			wantErr:  true,
			contains: []string{"found 1 errors", "Dangling output 1 on block 'worker'"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDefinition(tt.def)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateDefinition() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.contains {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("ValidateDefinition() = %v\nWant substring: %v", err, want)
				}
			}
		})
	}
}
