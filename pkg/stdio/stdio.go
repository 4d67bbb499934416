// Package stdio bridges line-oriented text streams and ports.
//
// A Source reads newline-delimited text, parses each line and sends the values on
// an output port, silently dropping lines that fail to parse. A Sink receives values
// from an input port and writes one line per value. Both are ordinary blocks.
package stdio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/conduit/internal/logging"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/port"
)

// Option configures a Source or Sink.
type Option func(*options)

type options struct {
	name   string
	logger *slog.Logger
}

// WithName overrides the block name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func apply(defaultName string, opts []Option) options {
	o := options{name: defaultName}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	return o
}

// Source forwards parsed lines from a reader to an output port.
type Source[T any] struct {
	opts   options
	reader *bufio.Reader
	parse  ParseFunc[T]
	out    *port.Output[T]
}

// NewSource creates a source block. A nil reader means os.Stdin and a nil
// parser means Parse.
func NewSource[T any](r io.Reader, parse ParseFunc[T], out *port.Output[T], opts ...Option) *Source[T] {
	if r == nil {
		r = os.Stdin
	}
	if parse == nil {
		parse = Parse[T]
	}
	return &Source[T]{
		opts:   apply("stdin", opts),
		reader: bufio.NewReader(r),
		parse:  parse,
		out:    out,
	}
}

func (s *Source[T]) Name() string                   { return s.opts.name }
func (s *Source[T]) Inputs() []domain.InputPortID   { return nil }
func (s *Source[T]) Outputs() []domain.OutputPortID { return []domain.OutputPortID{s.out.ID()} }

type line struct {
	text string
	err  error
}

// pump reads lines until EOF, a read error, or done is closed. A blocked read cannot
// be interrupted, so after a cancelled Run the goroutine lives until its next read returns.
func (s *Source[T]) pump(lines chan<- line, done <-chan struct{}) {
	defer close(lines)
	send := func(l line) bool {
		select {
		case lines <- l:
			return true
		case <-done:
			return false
		}
	}
	for {
		text, err := s.reader.ReadString('\n')
		if text != "" && !send(line{text: text}) {
			return
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				send(line{err: err})
			}
			return
		}
	}
}

// Run reads until EOF, then closes the output so downstream observes end-of-stream.
func (s *Source[T]) Run(ctx context.Context) error {
	defer s.out.Close()

	lines := make(chan line, 1)
	done := make(chan struct{})
	defer close(done)
	go s.pump(lines, done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			if l.err != nil {
				return fmt.Errorf("%s: read: %w", s.opts.name, l.err)
			}
			text := strings.TrimRight(l.text, "\r\n")
			v, err := s.parse(text)
			if err != nil {
				s.opts.logger.Debug("dropping unparseable line", "block", s.opts.name, "line", text, "error", err)
				continue
			}
			if err := s.out.Send(ctx, v); err != nil {
				return fmt.Errorf("%s: %w", s.opts.name, err)
			}
		}
	}
}

// Sink writes each value received on an input port as one line.
type Sink[T any] struct {
	opts   options
	writer io.Writer
	format FormatFunc[T]
	in     *port.Input[T]
}

// NewSink creates a sink block. A nil writer means os.Stdout.
func NewSink[T any](w io.Writer, format FormatFunc[T], in *port.Input[T], opts ...Option) *Sink[T] {
	if w == nil {
		w = os.Stdout
	}
	if format == nil {
		format = Format[T]
	}
	return &Sink[T]{
		opts:   apply("stdout", opts),
		writer: w,
		format: format,
		in:     in,
	}
}

func (s *Sink[T]) Name() string                   { return s.opts.name }
func (s *Sink[T]) Inputs() []domain.InputPortID   { return []domain.InputPortID{s.in.ID()} }
func (s *Sink[T]) Outputs() []domain.OutputPortID { return nil }

// Run writes values until end-of-stream and closes the input on exit.
func (s *Sink[T]) Run(ctx context.Context) error {
	defer s.in.Close()
	for {
		v, ok, err := s.in.Recv(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", s.opts.name, err)
		}
		if !ok {
			return nil
		}
		if _, err := fmt.Fprintln(s.writer, s.format(v)); err != nil {
			return fmt.Errorf("%s: write: %w", s.opts.name, err)
		}
	}
}
