package domain

import (
	"errors"
	"fmt"
)

// Identity errors.
var (
	// ErrZeroPortID is returned when a raw integer of zero is offered as a port ID.
	ErrZeroPortID = errors.New("port IDs cannot be zero")

	// ErrWrongDirection is returned when an ID from one sign space is used where the other is required.
	ErrWrongDirection = errors.New("port ID has the wrong direction")
)

// Build-time errors, carried by BuildError.
var (
	ErrUnregisteredInput      = errors.New("unregistered input port ID")
	ErrUnregisteredOutput     = errors.New("unregistered output port ID")
	ErrAlreadyConnectedOutput = errors.New("already connected output port ID")
	ErrAlreadyConnectedInput  = errors.New("already connected input port ID")
	ErrDuplicatePort          = errors.New("duplicate port ID")
	ErrKindMismatch           = errors.New("mismatched message kind for port ID")

	// ErrBuilderConsumed is returned by any builder call made after Build.
	ErrBuilderConsumed = errors.New("system builder already consumed by build")
)

// Channel errors. End-of-stream is never an error.
var (
	// ErrRecv is returned when a backend fails to deliver a pending message.
	ErrRecv = errors.New("receive failed")

	// ErrSend is returned when the receiving side of a channel is gone.
	ErrSend = errors.New("send failed: receiver disconnected")

	// ErrEmpty is returned by TryRecv when no message is queued but the sender is alive.
	ErrEmpty = errors.New("channel is empty")

	// ErrFull is returned by TrySend when a bounded queue has no free slot.
	ErrFull = errors.New("channel is full")

	// ErrChannelClosed is returned when sending through a sender that was itself closed.
	ErrChannelClosed = errors.New("send on closed channel")
)

// Port errors.
var (
	ErrNotConnected      = errors.New("port is not connected")
	ErrPortClosed        = errors.New("port is closed")
	ErrInvalidTransition = errors.New("invalid port state transition")
	ErrUnknownPort       = errors.New("unknown port ID")
)

// Launch errors.
var (
	// ErrUnknownKind is returned when a port must be materialized but no message kind was recorded for it.
	ErrUnknownKind = errors.New("no message kind recorded for port ID")

	// ErrNotRunnable is returned when a registered block has no Run method.
	ErrNotRunnable = errors.New("block cannot be run")
)

// BuildError reports a graph construction failure for a specific port.
type BuildError struct {
	Kind error
	Port PortID
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %d", e.Kind, e.Port)
}

func (e *BuildError) Unwrap() error {
	return e.Kind
}

// NewBuildError is a small convenience for builder call sites.
func NewBuildError(kind error, id PortID) *BuildError {
	return &BuildError{Kind: kind, Port: id}
}

// TransitionError reports an illegal port lifecycle move.
type TransitionError struct {
	From PortState
	To   PortState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
