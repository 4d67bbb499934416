/*
Package domain contains the core vocabulary of the Conduit dataflow runtime.

It defines port identities, port lifecycle states, the block contract and the error
taxonomy shared by the builder, the channel backends and the scheduler. This package
is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - PortID: A signed identity. Negative IDs are inputs, positive IDs are outputs, zero is invalid.
  - PortState: The lifecycle of a live port handle (Unconnected, Connected, Disconnected, Closed).
  - PortEvent: A connection lifecycle notification or a message observed on an input port.
  - BlockDefinition: A named unit of work with fixed, ordered input and output port lists.
  - LifecycleHooks: Callbacks used by the scheduler to report task and message activity.
*/
package domain
