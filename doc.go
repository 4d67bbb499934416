/*
Package conduit is a flow-based programming runtime: independent blocks exchange typed
messages over asynchronous channels, wired together through numbered ports.

# Concept

A program is a graph. Each block is a concurrent unit of work that owns some input and
output ports. Ports are identified by signed integers: inputs are negative, outputs are
positive. An output connects to exactly one input, and the connection is backed by a
FIFO channel, bounded or unbounded.

The graph is built with a model.Builder, which validates every registration and
connection and freezes the result into an immutable model.Definition. A System then
runs the tasks: blocks, plus one forwarding link per connection.

# Usage

The smallest useful program reads lines from standard input and echoes them back:

	err := conduit.Run(ctx, func(s *conduit.System) error {
		in, err := conduit.Stdin[string](ctx, s)
		if err != nil {
			return err
		}
		out, err := conduit.Stdout[string](ctx, s)
		if err != nil {
			return err
		}
		conduit.Connect(s, in, out)
		return nil
	})

A frozen Definition whose blocks implement Runner can be started with Launch, which
opens the channels (in memory, or over a Transport such as Redis) and spawns every task.

# Termination

A stream ends when its sender closes: the receiver drains what was queued and then
observes end-of-stream, which is not an error. A link that sees end-of-stream closes
its own output, so closure flows downstream until every task returns. Closing a
receiver makes the peer's next send fail instead of hang.

Execute waits for every task and reports the first failure. Failing tasks do not
cancel their siblings.
*/
package conduit
