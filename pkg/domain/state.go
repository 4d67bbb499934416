package domain

import "fmt"

// PortState is the lifecycle of a live port handle.
//
//	Unconnected -> Connected -> Disconnected -> Closed
//	Unconnected -> Closed
//	Connected   -> Closed
//
// Closed is terminal. No transition ever returns to Unconnected.
type PortState uint8

const (
	PortUnconnected PortState = iota
	PortConnected
	PortDisconnected
	PortClosed
)

func (s PortState) String() string {
	switch s {
	case PortUnconnected:
		return "unconnected"
	case PortConnected:
		return "connected"
	case PortDisconnected:
		return "disconnected"
	case PortClosed:
		return "closed"
	}
	return fmt.Sprintf("PortState(%d)", uint8(s))
}

// IsOpen reports whether the port has not been closed yet.
func (s PortState) IsOpen() bool { return s != PortClosed }

func (s PortState) IsConnected() bool { return s == PortConnected }

func (s PortState) IsClosed() bool { return s == PortClosed }

// HasChannel reports whether capacity queries are meaningful in this state.
func (s PortState) HasChannel() bool {
	return s == PortConnected || s == PortDisconnected
}

// CanTransition reports whether moving from s to next is legal.
// Closing is always permitted, including from Closed itself.
func (s PortState) CanTransition(next PortState) bool {
	switch next {
	case PortClosed:
		return true
	case PortConnected:
		return s == PortUnconnected
	case PortDisconnected:
		return s == PortConnected
	}
	return false
}

// Transition validates and returns the next state.
func (s PortState) Transition(next PortState) (PortState, error) {
	if !s.CanTransition(next) {
		return s, &TransitionError{From: s, To: next}
	}
	return next, nil
}

// MarshalText implements encoding.TextMarshaler.
func (s PortState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PortEventType classifies a PortEvent.
type PortEventType string

const (
	PortEventConnect    PortEventType = "connect"
	PortEventMessage    PortEventType = "message"
	PortEventDisconnect PortEventType = "disconnect"
)

// PortEvent is an observation on an input port: the port being connected, a message
// arriving, or the peer going away.
type PortEvent[T any] struct {
	Type  PortEventType
	Port  PortID
	Value T // Only set for PortEventMessage
}
