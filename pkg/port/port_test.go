package port

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/conduit/pkg/channel"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInput_Lifecycle(t *testing.T) {
	in := NewInput[string](-1)
	assert.Equal(t, domain.PortUnconnected, in.State())

	_, ok := in.Capacity()
	assert.False(t, ok, "capacity is unknown while unconnected")
	_, ok = in.IsEmpty()
	assert.False(t, ok)

	_, ok, err := in.Recv(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "an unconnected input reports end-of-stream")

	_, _, err = in.TryRecv()
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	tx, rx := channel.Bounded[string](2)
	require.NoError(t, in.Connect(rx))
	assert.Equal(t, domain.PortConnected, in.State())

	err = in.Connect(rx)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "connecting twice is a programming error")

	free, ok := in.Capacity()
	require.True(t, ok)
	assert.Equal(t, 2, free)

	require.NoError(t, tx.Send(context.Background(), "a"))
	require.NoError(t, tx.Close())

	v, ok, err := in.Recv(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, domain.PortConnected, in.State())

	_, ok, err = in.Recv(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.PortDisconnected, in.State(), "end-of-stream marks the peer gone")

	require.NoError(t, in.Close())
	require.NoError(t, in.Close(), "Close is idempotent")
	assert.Equal(t, domain.PortClosed, in.State())

	err = in.Connect(rx)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestInput_UnconnectedToClosed(t *testing.T) {
	in := NewInput[int](-2)
	require.NoError(t, in.Close())
	assert.Equal(t, domain.PortClosed, in.State())

	err := in.Disconnect()
	var te *domain.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, domain.PortClosed, te.From)
	assert.Equal(t, domain.PortDisconnected, te.To)
}

func TestInput_CloseFailsPeerSend(t *testing.T) {
	out, in, err := Pipe[string](context.Background(), channel.Backend{}, "link", 1, 1, -1)
	require.NoError(t, err)

	require.NoError(t, out.Send(context.Background(), "first"))

	blocked := make(chan error, 1)
	go func() { blocked <- out.Send(context.Background(), "second") }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, in.Close())

	select {
	case err := <-blocked:
		require.ErrorIs(t, err, domain.ErrSend)
		var se *channel.SendError[string]
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "second", se.Value)
	case <-time.After(time.Second):
		t.Fatal("send did not fail after the input was closed")
	}
	assert.Equal(t, domain.PortDisconnected, out.State())
	assert.True(t, out.IsClosed())
}

func TestOutput_Lifecycle(t *testing.T) {
	out := NewOutput[int](3)

	err := out.Send(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNotConnected)
	_, ok := out.MaxCapacity()
	assert.False(t, ok)

	tx, rx := channel.Bounded[int](4)
	require.NoError(t, out.Connect(tx))

	bound, ok := out.MaxCapacity()
	require.True(t, ok)
	assert.Equal(t, 4, bound)

	require.NoError(t, out.Send(context.Background(), 1))
	require.NoError(t, out.TrySend(2))
	require.NoError(t, out.Close())
	require.NoError(t, out.Close())

	err = out.Send(context.Background(), 3)
	assert.ErrorIs(t, err, domain.ErrPortClosed)

	var got []int
	for {
		v, ok, err := rx.Recv(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2}, got, "closing an output drains queued values then ends the stream")
}

func TestInput_RecvEvent(t *testing.T) {
	out, in, err := Pipe[string](context.Background(), channel.Backend{}, "events", 4, 1, -1)
	require.NoError(t, err)

	require.NoError(t, out.Send(context.Background(), "hello"))
	require.NoError(t, out.Close())

	var types []domain.PortEventType
	for {
		evt, ok, err := in.RecvEvent(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		assert.Equal(t, domain.PortID(-1), evt.Port)
		types = append(types, evt.Type)
		if evt.Type == domain.PortEventMessage {
			assert.Equal(t, "hello", evt.Value)
		}
	}
	assert.Equal(t, []domain.PortEventType{
		domain.PortEventConnect,
		domain.PortEventMessage,
		domain.PortEventDisconnect,
	}, types)
}

func TestSet_TypedAccess(t *testing.T) {
	s := NewSet()
	out, in, err := Pipe[float64](context.Background(), channel.Backend{}, "f", 1, 1, -1)
	require.NoError(t, err)

	require.NoError(t, s.Add(out.ID().PortID(), out))
	require.NoError(t, s.Add(in.ID().PortID(), in))
	assert.ErrorIs(t, s.Add(in.ID().PortID(), in), domain.ErrDuplicatePort)

	gotOut, err := Out[float64](s, 1)
	require.NoError(t, err)
	assert.Same(t, out, gotOut)

	_, err = In[string](s, -1)
	assert.ErrorIs(t, err, domain.ErrKindMismatch)

	_, err = In[float64](s, -9)
	assert.ErrorIs(t, err, domain.ErrUnknownPort)

	assert.Equal(t, []domain.PortID{-1, 1}, s.IDs())
	require.NoError(t, s.CloseAll())
	for _, state := range s.States() {
		assert.Equal(t, domain.PortClosed, state)
	}
}

func TestForward_PreservesOrderAndEndsStream(t *testing.T) {
	ctx := context.Background()
	srcOut, linkIn, err := Pipe[string](ctx, channel.Backend{}, "a", 1, 1, -1)
	require.NoError(t, err)
	linkOut, sinkIn, err := Pipe[string](ctx, channel.Backend{}, "b", 1, 2, -2)
	require.NoError(t, err)

	go func() {
		_ = srcOut.Send(ctx, "value1")
		_ = srcOut.Send(ctx, "value2")
		_ = srcOut.Close()
	}()

	var seen []string
	done := make(chan error, 1)
	go func() { done <- Forward(ctx, linkIn, linkOut, func(v string) { seen = append(seen, v) }) }()

	var got []string
	for {
		v, ok, err := sinkIn.Recv(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.NoError(t, <-done)
	assert.Equal(t, []string{"value1", "value2"}, got)
	assert.Equal(t, got, seen)
	assert.Equal(t, domain.PortClosed, linkOut.State())
}

func TestForward_FailsWhenDownstreamCloses(t *testing.T) {
	ctx := context.Background()
	srcOut, linkIn, err := Pipe[int](ctx, channel.Backend{}, "a", 1, 1, -1)
	require.NoError(t, err)
	linkOut, sinkIn, err := Pipe[int](ctx, channel.Backend{}, "b", 1, 2, -2)
	require.NoError(t, err)

	require.NoError(t, sinkIn.Close())
	require.NoError(t, srcOut.Send(ctx, 1))

	err = Forward(ctx, linkIn, linkOut, nil)
	assert.ErrorIs(t, err, domain.ErrSend)

	err = srcOut.Send(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrSend, "upstream fails fast once the link is gone")
}

func TestGet_WrongHandleType(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add(-1, NewInput[int](-1)))
	_, err := Get[*Output[int]](s, -1)
	assert.ErrorIs(t, err, domain.ErrKindMismatch)
}
