package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/conduit/internal/testutils"
	"github.com/aretw0/conduit/pkg/adapters/redis"
	"github.com/aretw0/conduit/pkg/channel"
	"github.com/aretw0/conduit/pkg/codec"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransport(t *testing.T, opts ...redis.Option) (*redis.Transport, *miniredis.Miniredis) {
	opts = append([]redis.Option{redis.WithPollInterval(5 * time.Millisecond)}, opts...)
	return testutils.SetupRedisTransport(t, opts...)
}

func TestRedisTransport_Contract(t *testing.T) {
	transport, _ := newTransport(t)
	channel.RunContract(t, channel.Encoded[int](transport, codec.JSON{}))
}

func TestRedisTransport_MsgPackZstdContract(t *testing.T) {
	transport, _ := newTransport(t)
	c, err := codec.ByName("msgpack+zstd")
	require.NoError(t, err)
	channel.RunContract(t, channel.Encoded[int](transport, c))
}

func TestRedisTransport_KeysUsePrefix(t *testing.T) {
	transport, mr := newTransport(t, redis.WithPrefix("test:"))
	ctx := context.Background()

	tx, rx, err := transport.Open(ctx, "numbers", 4)
	require.NoError(t, err)

	require.NoError(t, tx.Send(ctx, []byte("1")))
	assert.True(t, mr.Exists("test:numbers:queue"))

	require.NoError(t, tx.Close())
	assert.True(t, mr.Exists("test:numbers:tx-closed"))

	require.NoError(t, rx.Close())
	assert.True(t, mr.Exists("test:numbers:rx-closed"))
}

func TestRedisTransport_OpenResetsStaleState(t *testing.T) {
	transport, _ := newTransport(t)
	ctx := context.Background()

	tx, rx, err := transport.Open(ctx, "reuse", 2)
	require.NoError(t, err)
	require.NoError(t, tx.Send(ctx, []byte("stale")))
	require.NoError(t, rx.Close())

	tx, rx, err = transport.Open(ctx, "reuse", 2)
	require.NoError(t, err)
	assert.True(t, rx.IsEmpty())
	assert.False(t, tx.IsClosed())
}

func TestRedisTransport_TTLAfterBothSidesClose(t *testing.T) {
	transport, mr := newTransport(t, redis.WithTTL(time.Second))
	ctx := context.Background()

	tx, rx, err := transport.Open(ctx, "ttl", 2)
	require.NoError(t, err)
	require.NoError(t, tx.Send(ctx, []byte("left")))
	require.NoError(t, tx.Close())
	require.NoError(t, rx.Close())

	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists("conduit:channel:ttl:queue"))
}

func TestRedisTransport_BackendFailureIsRecvError(t *testing.T) {
	transport, mr := newTransport(t)
	ctx := context.Background()

	_, rx, err := transport.Open(ctx, "broken", 2)
	require.NoError(t, err)

	mr.Close()
	_, ok, err := rx.Recv(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrRecv)
}
