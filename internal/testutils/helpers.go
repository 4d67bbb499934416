package testutils

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/conduit/pkg/adapters/redis"
	backend "github.com/redis/go-redis/v9"
)

// SetupRedisTransport starts an in-process Redis server and returns a transport bound to it.
// The server and the client are released when the test ends. The transport polls every
// millisecond unless opts say otherwise.
func SetupRedisTransport(t *testing.T, opts ...redis.Option) (*redis.Transport, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})

	opts = append([]redis.Option{redis.WithPollInterval(time.Millisecond)}, opts...)
	transport := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = transport.Close() })

	return transport, mr
}
