// Package pipelines holds the ready-made graphs exposed by the command line.
package pipelines

import (
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/aretw0/conduit/internal/logging"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/model"
)

// IO carries the streams and logger a pipeline is built over.
type IO struct {
	Reader io.Reader
	Writer io.Writer
	Logger *slog.Logger
}

func (o IO) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.NewNop()
	}
	return o.Logger
}

// Factory builds a frozen pipeline definition.
type Factory func(IO) (*model.Definition, error)

var registry = map[string]Factory{
	"echo": Echo,
	"sqrt": Sqrt,
}

// Names lists the known pipelines in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build returns the named pipeline.
func Build(name string, o IO) (*model.Definition, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown pipeline %q (known: %v)", name, Names())
	}
	return f(o)
}

// Echo copies every input line to the output.
func Echo(o IO) (*model.Definition, error) {
	b := model.NewBuilder()
	src := NewLineSource[string](b.Allocator(), "stdin", o.Reader, o.logger())
	dst := NewLineSink[string](b.Allocator(), "stdout", o.Writer, o.logger())

	if err := register(b, src, dst); err != nil {
		return nil, err
	}
	if _, err := model.Connect(b, src.Out, dst.In); err != nil {
		return nil, err
	}
	return b.Build()
}

// Sqrt parses each line as a number and writes its square root. Lines that are not
// numbers are dropped.
func Sqrt(o IO) (*model.Definition, error) {
	b := model.NewBuilder()
	src := NewLineSource[float64](b.Allocator(), "stdin", o.Reader, o.logger())
	sqrt := NewSqrt(b.Allocator())
	dst := NewLineSink[float64](b.Allocator(), "stdout", o.Writer, o.logger())

	if err := register(b, src, sqrt, dst); err != nil {
		return nil, err
	}
	if _, err := model.Connect(b, src.Out, sqrt.In); err != nil {
		return nil, err
	}
	if _, err := model.Connect(b, sqrt.Out, dst.In); err != nil {
		return nil, err
	}
	return b.Build()
}

func register(b *model.Builder, blocks ...domain.BlockDefinition) error {
	for _, blk := range blocks {
		if _, err := b.Register(blk); err != nil {
			return err
		}
	}
	return nil
}
