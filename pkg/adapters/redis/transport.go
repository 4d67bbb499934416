package redis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aretw0/conduit/pkg/channel"
	"github.com/aretw0/conduit/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// pushScript enqueues ARGV[1] unless the receiver is gone (-1) or the list
// already holds ARGV[2] entries (0). A bound of zero means unbounded.
var pushScript = backend.NewScript(`
	if redis.call("exists", KEYS[2]) == 1 then
		return -1
	end
	local bound = tonumber(ARGV[2])
	if bound > 0 and redis.call("llen", KEYS[1]) >= bound then
		return 0
	end
	redis.call("rpush", KEYS[1], ARGV[1])
	return 1
`)

// Transport implements channel.Transport on top of Redis lists.
// Each channel uses three keys: the queue itself and one marker per closed side.
type Transport struct {
	client *backend.Client
	prefix string
	poll   time.Duration
	ttl    time.Duration
}

type Option func(*Transport)

// WithPrefix sets the key prefix for channels.
func WithPrefix(prefix string) Option {
	return func(t *Transport) {
		t.prefix = prefix
	}
}

// WithPollInterval sets how often a suspended Send or Recv re-checks the queue.
func WithPollInterval(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.poll = d
		}
	}
}

// WithTTL expires the keys of a channel once both sides are closed.
func WithTTL(ttl time.Duration) Option {
	return func(t *Transport) {
		t.ttl = ttl
	}
}

// New creates a new Redis transport with options.
func New(address, password string, db int, opts ...Option) *Transport {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis transport from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Transport {
	t := &Transport{
		client: client,
		prefix: "conduit:channel:",
		poll:   10 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Ping checks connectivity.
func (t *Transport) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (t *Transport) Close() error {
	return t.client.Close()
}

type keys struct {
	queue    string
	txClosed string
	rxClosed string
}

func (t *Transport) keys(name string) keys {
	base := t.prefix + name
	return keys{
		queue:    base + ":queue",
		txClosed: base + ":tx-closed",
		rxClosed: base + ":rx-closed",
	}
}

// Open resets any state left under name and returns a connected pair.
func (t *Transport) Open(ctx context.Context, name string, capacity int) (channel.Sender[[]byte], channel.Receiver[[]byte], error) {
	if capacity < 0 {
		capacity = 0
	}
	k := t.keys(name)
	if err := t.client.Del(ctx, k.queue, k.txClosed, k.rxClosed).Err(); err != nil {
		return nil, nil, fmt.Errorf("redis error resetting channel %q: %w", name, err)
	}
	return &sender{t: t, k: k, capacity: capacity}, &receiver{t: t, k: k, capacity: capacity}, nil
}

// markClosed sets a side marker and, when both sides are gone, applies the TTL.
func (t *Transport) markClosed(marker string, k keys) error {
	ctx := context.Background()
	if err := t.client.Set(ctx, marker, "1", t.ttl).Err(); err != nil {
		return fmt.Errorf("redis error closing channel: %w", err)
	}
	if t.ttl <= 0 {
		return nil
	}
	both, err := t.client.Exists(ctx, k.txClosed, k.rxClosed).Result()
	if err != nil || both < 2 {
		return err
	}
	return t.client.Expire(ctx, k.queue, t.ttl).Err()
}

func (t *Transport) exists(key string) bool {
	n, err := t.client.Exists(context.Background(), key).Result()
	return err == nil && n > 0
}

func (t *Transport) free(k keys, capacity int) (int, bool) {
	if capacity == 0 {
		return 0, false
	}
	n, err := t.client.LLen(context.Background(), k.queue).Result()
	if err != nil {
		return 0, false
	}
	return capacity - int(n), true
}

type sender struct {
	t        *Transport
	k        keys
	capacity int
	closed   atomic.Bool
}

// push returns true when the value was enqueued and false when the queue is full.
func (s *sender) push(ctx context.Context, v []byte) (bool, error) {
	if s.closed.Load() {
		return false, domain.ErrChannelClosed
	}
	res, err := pushScript.Run(ctx, s.t.client, []string{s.k.queue, s.k.rxClosed}, v, s.capacity).Int()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, fmt.Errorf("redis error pushing message: %w", err)
	}
	switch res {
	case -1:
		return false, domain.ErrSend
	case 0:
		return false, nil
	}
	return true, nil
}

func (s *sender) Send(ctx context.Context, v []byte) error {
	ticker := time.NewTicker(s.t.poll)
	defer ticker.Stop()

	for {
		ok, err := s.push(ctx, v)
		if err != nil {
			return &channel.SendError[[]byte]{Value: v, Err: err}
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return &channel.SendError[[]byte]{Value: v, Err: ctx.Err()}
		case <-ticker.C:
			// Retry...
		}
	}
}

func (s *sender) TrySend(v []byte) error {
	ok, err := s.push(context.Background(), v)
	if err != nil {
		return &channel.SendError[[]byte]{Value: v, Err: err}
	}
	if !ok {
		return &channel.SendError[[]byte]{Value: v, Err: domain.ErrFull}
	}
	return nil
}

func (s *sender) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.t.markClosed(s.k.txClosed, s.k)
}

func (s *sender) IsClosed() bool {
	return s.closed.Load() || s.t.exists(s.k.rxClosed)
}

func (s *sender) Capacity() (int, bool) { return s.t.free(s.k, s.capacity) }

func (s *sender) MaxCapacity() (int, bool) { return s.capacity, s.capacity > 0 }

type receiver struct {
	t        *Transport
	k        keys
	capacity int
	closed   atomic.Bool
}

// pop returns ok == false with a nil error when the queue is currently empty.
func (r *receiver) pop(ctx context.Context) ([]byte, bool, error) {
	v, err := r.t.client.LPop(ctx, r.k.queue).Bytes()
	if err == nil {
		return v, true, nil
	}
	if errors.Is(err, backend.Nil) {
		return nil, false, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, ctxErr
	}
	return nil, false, fmt.Errorf("%w: redis error popping message: %v", domain.ErrRecv, err)
}

// drained reports end-of-stream. The sender marks itself closed only after its
// last push, so a second pop after observing the marker cannot miss a message.
func (r *receiver) drained(ctx context.Context) ([]byte, bool, error) {
	if !r.closed.Load() && !r.t.exists(r.k.txClosed) {
		return nil, false, nil
	}
	v, ok, err := r.pop(ctx)
	if err != nil || ok {
		return v, ok, err
	}
	return nil, false, errEndOfStream
}

var errEndOfStream = errors.New("end of stream")

func (r *receiver) Recv(ctx context.Context) ([]byte, bool, error) {
	ticker := time.NewTicker(r.t.poll)
	defer ticker.Stop()

	for {
		v, ok, err := r.pop(ctx)
		if err != nil || ok {
			return v, ok, err
		}
		v, ok, err = r.drained(ctx)
		if errors.Is(err, errEndOfStream) {
			return nil, false, nil
		}
		if err != nil || ok {
			return v, ok, err
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *receiver) TryRecv() ([]byte, bool, error) {
	ctx := context.Background()
	v, ok, err := r.pop(ctx)
	if err != nil || ok {
		return v, ok, err
	}
	v, ok, err = r.drained(ctx)
	if errors.Is(err, errEndOfStream) {
		return nil, false, nil
	}
	if err != nil || ok {
		return v, ok, err
	}
	return nil, false, domain.ErrEmpty
}

func (r *receiver) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.t.markClosed(r.k.rxClosed, r.k)
}

func (r *receiver) IsClosed() bool {
	return r.closed.Load() || r.t.exists(r.k.txClosed)
}

func (r *receiver) IsEmpty() bool { return r.Len() == 0 }

func (r *receiver) Len() int {
	n, err := r.t.client.LLen(context.Background(), r.k.queue).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

func (r *receiver) Capacity() (int, bool) { return r.t.free(r.k, r.capacity) }

func (r *receiver) MaxCapacity() (int, bool) { return r.capacity, r.capacity > 0 }
