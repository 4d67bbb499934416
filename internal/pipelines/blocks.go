package pipelines

import (
	"context"
	"io"
	"log/slog"
	"math"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/model"
	"github.com/aretw0/conduit/pkg/port"
	"github.com/aretw0/conduit/pkg/stdio"
)

// LineSource is a runnable block that parses lines from a reader onto one output.
type LineSource[T any] struct {
	name   string
	reader io.Reader
	logger *slog.Logger
	Out    model.Output[T]
}

func NewLineSource[T any](a *model.Allocator, name string, r io.Reader, logger *slog.Logger) *LineSource[T] {
	return &LineSource[T]{name: name, reader: r, logger: logger, Out: model.AllocOutput[T](a)}
}

func (s *LineSource[T]) Name() string                   { return s.name }
func (s *LineSource[T]) Inputs() []domain.InputPortID   { return nil }
func (s *LineSource[T]) Outputs() []domain.OutputPortID { return []domain.OutputPortID{s.Out.ID} }

func (s *LineSource[T]) Run(ctx context.Context, ports *port.Set) error {
	out, err := port.Out[T](ports, s.Out.ID)
	if err != nil {
		return err
	}
	return stdio.NewSource(s.reader, nil, out, stdio.WithName(s.name), stdio.WithLogger(s.logger)).Run(ctx)
}

// LineSink is a runnable block that writes each value from one input as a line.
type LineSink[T any] struct {
	name   string
	writer io.Writer
	logger *slog.Logger
	In     model.Input[T]
}

func NewLineSink[T any](a *model.Allocator, name string, w io.Writer, logger *slog.Logger) *LineSink[T] {
	return &LineSink[T]{name: name, writer: w, logger: logger, In: model.AllocInput[T](a)}
}

func (s *LineSink[T]) Name() string                   { return s.name }
func (s *LineSink[T]) Inputs() []domain.InputPortID   { return []domain.InputPortID{s.In.ID} }
func (s *LineSink[T]) Outputs() []domain.OutputPortID { return nil }

func (s *LineSink[T]) Run(ctx context.Context, ports *port.Set) error {
	in, err := port.In[T](ports, s.In.ID)
	if err != nil {
		return err
	}
	return stdio.NewSink(s.writer, nil, in, stdio.WithName(s.name), stdio.WithLogger(s.logger)).Run(ctx)
}

// SqrtBlock replaces every value with its square root. Negative values become NaN.
type SqrtBlock struct {
	In  model.Input[float64]
	Out model.Output[float64]
}

func NewSqrt(a *model.Allocator) *SqrtBlock {
	return &SqrtBlock{In: model.AllocInput[float64](a), Out: model.AllocOutput[float64](a)}
}

func (*SqrtBlock) Name() string                     { return "sqrt" }
func (b *SqrtBlock) Inputs() []domain.InputPortID   { return []domain.InputPortID{b.In.ID} }
func (b *SqrtBlock) Outputs() []domain.OutputPortID { return []domain.OutputPortID{b.Out.ID} }

func (b *SqrtBlock) Run(ctx context.Context, ports *port.Set) error {
	in, err := port.In[float64](ports, b.In.ID)
	if err != nil {
		return err
	}
	out, err := port.Out[float64](ports, b.Out.ID)
	if err != nil {
		return err
	}
	defer out.Close()
	for {
		v, ok, err := in.Recv(ctx)
		if err != nil || !ok {
			return err
		}
		if err := out.Send(ctx, math.Sqrt(v)); err != nil {
			return err
		}
	}
}
