package domain

import (
	"fmt"
	"strconv"
)

// PortID identifies a port. The sign determines the direction: negative IDs are
// inputs and positive IDs are outputs. Zero is never a valid identity.
type PortID int64

// ParsePortID converts a raw integer into a PortID, rejecting zero.
func ParsePortID(raw int64) (PortID, error) {
	if raw == 0 {
		return 0, ErrZeroPortID
	}
	return PortID(raw), nil
}

// ParsePortIDString parses the decimal form produced by PortID.String.
func ParsePortIDString(s string) (PortID, error) {
	raw, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid port ID %q: %w", s, err)
	}
	return ParsePortID(raw)
}

// Direction derives the direction from the sign of the ID.
func (id PortID) Direction() (PortDirection, error) {
	return DirectionOf(id)
}

// IsInput reports whether the ID lives in the input space.
func (id PortID) IsInput() bool { return id < 0 }

// IsOutput reports whether the ID lives in the output space.
func (id PortID) IsOutput() bool { return id > 0 }

func (id PortID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// InputPortID is a PortID known to be in the input (negative) space.
type InputPortID PortID

// NewInputPortID validates that id is a non-zero input identity.
func NewInputPortID(id PortID) (InputPortID, error) {
	switch {
	case id == 0:
		return 0, ErrZeroPortID
	case id > 0:
		return 0, fmt.Errorf("%w: %d is an output port ID", ErrWrongDirection, id)
	}
	return InputPortID(id), nil
}

// PortID widens the typed identity.
func (id InputPortID) PortID() PortID { return PortID(id) }

// Index returns the zero-based allocation position (-1 => 0, -2 => 1, ...).
func (id InputPortID) Index() int { return int(-id) - 1 }

func (id InputPortID) String() string { return PortID(id).String() }

// OutputPortID is a PortID known to be in the output (positive) space.
type OutputPortID PortID

// NewOutputPortID validates that id is a non-zero output identity.
func NewOutputPortID(id PortID) (OutputPortID, error) {
	switch {
	case id == 0:
		return 0, ErrZeroPortID
	case id < 0:
		return 0, fmt.Errorf("%w: %d is an input port ID", ErrWrongDirection, id)
	}
	return OutputPortID(id), nil
}

// PortID widens the typed identity.
func (id OutputPortID) PortID() PortID { return PortID(id) }

// Index returns the zero-based allocation position (1 => 0, 2 => 1, ...).
func (id OutputPortID) Index() int { return int(id) - 1 }

func (id OutputPortID) String() string { return PortID(id).String() }

// PortDirection is the direction of data flow through a port.
type PortDirection uint8

const (
	DirectionInput PortDirection = iota + 1
	DirectionOutput
)

// DirectionOf is a pure function of the sign of id.
func DirectionOf(id PortID) (PortDirection, error) {
	switch {
	case id < 0:
		return DirectionInput, nil
	case id > 0:
		return DirectionOutput, nil
	}
	return 0, ErrZeroPortID
}

func (d PortDirection) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (d PortDirection) MarshalText() ([]byte, error) {
	if d != DirectionInput && d != DirectionOutput {
		return nil, fmt.Errorf("invalid port direction %d", d)
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *PortDirection) UnmarshalText(text []byte) error {
	switch string(text) {
	case "input":
		*d = DirectionInput
	case "output":
		*d = DirectionOutput
	default:
		return fmt.Errorf("invalid port direction %q", text)
	}
	return nil
}
