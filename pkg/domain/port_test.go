package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionOf(t *testing.T) {
	tests := []struct {
		name    string
		id      PortID
		want    PortDirection
		wantErr error
	}{
		{name: "negative is input", id: -1, want: DirectionInput},
		{name: "large negative is input", id: -9000, want: DirectionInput},
		{name: "positive is output", id: 1, want: DirectionOutput},
		{name: "zero is rejected", id: 0, wantErr: ErrZeroPortID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DirectionOf(tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want == DirectionInput, tt.id.IsInput())
			assert.Equal(t, tt.want == DirectionOutput, tt.id.IsOutput())
		})
	}
}

func TestParsePortID(t *testing.T) {
	_, err := ParsePortID(0)
	assert.ErrorIs(t, err, ErrZeroPortID)

	id, err := ParsePortIDString("-7")
	require.NoError(t, err)
	assert.Equal(t, PortID(-7), id)

	_, err = ParsePortIDString("seven")
	assert.Error(t, err)

	_, err = ParsePortIDString("0")
	assert.ErrorIs(t, err, ErrZeroPortID)
}

func TestTypedPortIDs(t *testing.T) {
	in, err := NewInputPortID(-3)
	require.NoError(t, err)
	assert.Equal(t, 2, in.Index())
	assert.Equal(t, "-3", in.String())

	_, err = NewInputPortID(3)
	assert.ErrorIs(t, err, ErrWrongDirection)

	out, err := NewOutputPortID(1)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Index())

	_, err = NewOutputPortID(-1)
	assert.ErrorIs(t, err, ErrWrongDirection)

	_, err = NewOutputPortID(0)
	assert.ErrorIs(t, err, ErrZeroPortID)
}

func TestPortDirectionText(t *testing.T) {
	text, err := DirectionOutput.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "output", string(text))

	var d PortDirection
	require.NoError(t, d.UnmarshalText([]byte("input")))
	assert.Equal(t, DirectionInput, d)
	assert.Error(t, d.UnmarshalText([]byte("sideways")))
}

func TestPortStateTransitions(t *testing.T) {
	legal := []struct{ from, to PortState }{
		{PortUnconnected, PortConnected},
		{PortConnected, PortDisconnected},
		{PortUnconnected, PortClosed},
		{PortConnected, PortClosed},
		{PortDisconnected, PortClosed},
		{PortClosed, PortClosed},
	}
	for _, tt := range legal {
		next, err := tt.from.Transition(tt.to)
		assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		assert.Equal(t, tt.to, next)
	}

	illegal := []struct{ from, to PortState }{
		{PortConnected, PortConnected},
		{PortClosed, PortConnected},
		{PortDisconnected, PortConnected},
		{PortConnected, PortUnconnected},
		{PortUnconnected, PortDisconnected},
		{PortClosed, PortDisconnected},
	}
	for _, tt := range illegal {
		next, err := tt.from.Transition(tt.to)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tt.from, tt.to)
		assert.Equal(t, tt.from, next)

		var te *TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, tt.from, te.From)
	}
}

func TestPortStatePredicates(t *testing.T) {
	assert.True(t, PortUnconnected.IsOpen())
	assert.True(t, PortDisconnected.IsOpen())
	assert.False(t, PortClosed.IsOpen())
	assert.True(t, PortConnected.HasChannel())
	assert.True(t, PortDisconnected.HasChannel())
	assert.False(t, PortUnconnected.HasChannel())
	assert.False(t, PortClosed.HasChannel())
	assert.Equal(t, "disconnected", PortDisconnected.String())
}

func TestBuildErrorMessage(t *testing.T) {
	err := NewBuildError(ErrUnregisteredInput, -4)
	assert.Equal(t, "unregistered input port ID: -4", err.Error())
	assert.ErrorIs(t, err, ErrUnregisteredInput)
	assert.NotErrorIs(t, err, ErrUnregisteredOutput)
}
