package conduit

import (
	"context"
	"io"

	"github.com/aretw0/conduit/pkg/port"
	"github.com/aretw0/conduit/pkg/stdio"
)

// Stdin spawns a block reading standard input and returns the input port that
// receives its parsed lines. Lines that do not parse as T are dropped.
func Stdin[T any](ctx context.Context, s *System) (*port.Input[T], error) {
	return Source[T](ctx, s, nil, nil)
}

// Source is Stdin over an arbitrary reader and parser. Nil values select the defaults.
func Source[T any](ctx context.Context, s *System, r io.Reader, parse stdio.ParseFunc[T]) (*port.Input[T], error) {
	out, in, err := Pipe[T](ctx, s, "")
	if err != nil {
		return nil, err
	}
	src := stdio.NewSource(r, parse, out, stdio.WithLogger(s.logger))
	s.Spawn(src.Name(), src.Run)
	return in, nil
}

// Stdout spawns a block writing one line per value to standard output and
// returns the output port that feeds it.
func Stdout[T any](ctx context.Context, s *System) (*port.Output[T], error) {
	return Sink[T](ctx, s, nil, nil)
}

// Sink is Stdout over an arbitrary writer and formatter. Nil values select the defaults.
func Sink[T any](ctx context.Context, s *System, w io.Writer, format stdio.FormatFunc[T]) (*port.Output[T], error) {
	out, in, err := Pipe[T](ctx, s, "")
	if err != nil {
		return nil, err
	}
	sink := stdio.NewSink(w, format, in, stdio.WithLogger(s.logger))
	s.Spawn(sink.Name(), sink.Run)
	return out, nil
}
