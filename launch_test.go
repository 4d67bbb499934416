package conduit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/internal/testutils"
	"github.com/aretw0/conduit/pkg/codec"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/model"
	"github.com/aretw0/conduit/pkg/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n   int
	out model.Output[int]
}

func (c *counter) Name() string                   { return "counter" }
func (c *counter) Inputs() []domain.InputPortID   { return nil }
func (c *counter) Outputs() []domain.OutputPortID { return []domain.OutputPortID{c.out.ID} }

func (c *counter) Run(ctx context.Context, ports *port.Set) error {
	out, err := port.Out[int](ports, c.out.ID)
	if err != nil {
		return err
	}
	for i := 1; i <= c.n; i++ {
		if err := out.Send(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

type doubler struct {
	in  model.Input[int]
	out model.Output[int]
}

func (d *doubler) Name() string                   { return "doubler" }
func (d *doubler) Inputs() []domain.InputPortID   { return []domain.InputPortID{d.in.ID} }
func (d *doubler) Outputs() []domain.OutputPortID { return []domain.OutputPortID{d.out.ID} }

func (d *doubler) Run(ctx context.Context, ports *port.Set) error {
	in, err := port.In[int](ports, d.in.ID)
	if err != nil {
		return err
	}
	out, err := port.Out[int](ports, d.out.ID)
	if err != nil {
		return err
	}
	for {
		v, ok, err := in.Recv(ctx)
		if err != nil || !ok {
			return err
		}
		if err := out.Send(ctx, v*2); err != nil {
			return err
		}
	}
}

type collector struct {
	in model.Input[int]

	mu  sync.Mutex
	got []int
}

func (c *collector) Name() string                   { return "collector" }
func (c *collector) Inputs() []domain.InputPortID   { return []domain.InputPortID{c.in.ID} }
func (c *collector) Outputs() []domain.OutputPortID { return nil }

func (c *collector) Run(ctx context.Context, ports *port.Set) error {
	in, err := port.In[int](ports, c.in.ID)
	if err != nil {
		return err
	}
	for {
		v, ok, err := in.Recv(ctx)
		if err != nil || !ok {
			return err
		}
		c.mu.Lock()
		c.got = append(c.got, v)
		c.mu.Unlock()
	}
}

func (c *collector) values() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.got...)
}

// chain builds counter -> doubler -> collector.
func chain(t *testing.T, n int) (*model.Definition, *collector) {
	t.Helper()
	b := model.NewBuilder()
	return chainOn(t, b, b.Allocator(), n)
}

// chainOn builds the chain on b with port IDs drawn from a, which need not be b's allocator.
func chainOn(t *testing.T, b *model.Builder, a *model.Allocator, n int) (*model.Definition, *collector) {
	t.Helper()

	src := &counter{n: n, out: model.AllocOutput[int](a)}
	dbl := &doubler{in: model.AllocInput[int](a), out: model.AllocOutput[int](a)}
	sink := &collector{in: model.AllocInput[int](a)}
	for _, blk := range []domain.BlockDefinition{src, dbl, sink} {
		_, err := b.Register(blk)
		require.NoError(t, err)
	}

	_, err := model.Connect(b, src.out, dbl.in)
	require.NoError(t, err)
	_, err = model.Connect(b, dbl.out, sink.in)
	require.NoError(t, err)

	def, err := b.Build()
	require.NoError(t, err)
	return def, sink
}

func TestLaunch_RunsChain(t *testing.T) {
	ctx := context.Background()
	def, sink := chain(t, 3)

	var messages atomic.Int64
	s := conduit.New(conduit.WithLifecycleHooks(domain.LifecycleHooks{
		OnMessage: func(context.Context, *domain.MessageEvent) { messages.Add(1) },
	}))

	n, err := conduit.Launch(ctx, s, def)
	require.NoError(t, err)
	assert.Len(t, n.Blocks(), 3)
	assert.Len(t, n.Links(), 2)
	assert.Zero(t, n.Boundary().Len())

	require.NoError(t, s.Execute(ctx))
	assert.Equal(t, []int{2, 4, 6}, sink.values())
	assert.Equal(t, int64(6), messages.Load())
}

func TestLaunch_ExportedPorts(t *testing.T) {
	ctx := context.Background()
	b := model.NewBuilder()
	dbl := &doubler{in: model.AllocInput[int](b.Allocator()), out: model.AllocOutput[int](b.Allocator())}
	_, err := b.Register(dbl)
	require.NoError(t, err)
	require.NoError(t, b.ExportInput(dbl.in.ID))
	require.NoError(t, b.ExportOutput(dbl.out.ID))
	def, err := b.Build()
	require.NoError(t, err)

	s := conduit.New()
	n, err := conduit.Launch(ctx, s, def)
	require.NoError(t, err)

	feed, err := conduit.Feed[int](n, dbl.in.ID)
	require.NoError(t, err)
	drain, err := conduit.Drain[int](n, dbl.out.ID)
	require.NoError(t, err)

	_, err = conduit.Feed[string](n, dbl.in.ID)
	assert.ErrorIs(t, err, domain.ErrKindMismatch)

	go func() {
		_ = feed.Send(ctx, 5)
		_ = feed.Send(ctx, 7)
		_ = feed.Close()
	}()

	var got []int
	for {
		v, ok, err := drain.Recv(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.NoError(t, s.Execute(ctx))
	assert.Equal(t, []int{10, 14}, got)
	require.NoError(t, n.Close())
}

func TestLaunch_UnconnectedOutputFailsSend(t *testing.T) {
	ctx := context.Background()
	b := model.NewBuilder()
	src := &counter{n: 1, out: model.AllocOutput[int](b.Allocator())}
	_, err := b.Register(src)
	require.NoError(t, err)
	def, err := b.Build()
	require.NoError(t, err)

	s := conduit.New()
	_, err = conduit.Launch(ctx, s, def)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Execute(ctx), domain.ErrNotConnected)
}

func TestLaunch_Rejects(t *testing.T) {
	t.Run("Block Without Run", func(t *testing.T) {
		b := model.NewBuilder()
		_, err := b.Register(model.NewBlock("inert", nil, []domain.OutputPortID{b.Allocator().NextOutput()}))
		require.NoError(t, err)
		def, err := b.Build()
		require.NoError(t, err)

		_, err = conduit.Launch(context.Background(), conduit.New(), def)
		assert.ErrorIs(t, err, domain.ErrNotRunnable)
	})

	t.Run("Exported And Connected", func(t *testing.T) {
		b := model.NewBuilder()
		a := b.Allocator()
		src := &counter{n: 1, out: model.AllocOutput[int](a)}
		sink := &collector{in: model.AllocInput[int](a)}
		_, err := b.Register(src)
		require.NoError(t, err)
		_, err = b.Register(sink)
		require.NoError(t, err)
		_, err = model.Connect(b, src.out, sink.in)
		require.NoError(t, err)
		require.NoError(t, b.ExportOutput(src.out.ID))
		def, err := b.Build()
		require.NoError(t, err)

		s := conduit.New()
		_, err = conduit.Launch(context.Background(), s, def)
		assert.ErrorIs(t, err, domain.ErrAlreadyConnectedOutput)
		assert.Empty(t, s.Pending(), "nothing is spawned on error")
	})

	t.Run("Untyped Connection", func(t *testing.T) {
		b := model.NewBuilder()
		out, in := b.Allocator().NextOutput(), b.Allocator().NextInput()
		require.NoError(t, b.RegisterOutput(out))
		require.NoError(t, b.RegisterInput(in))
		_, err := b.ConnectIDs(out, in)
		require.NoError(t, err)
		def, err := b.Build()
		require.NoError(t, err)

		_, err = conduit.Launch(context.Background(), conduit.New(), def)
		assert.ErrorIs(t, err, domain.ErrUnknownKind)
	})
}

func TestLaunch_OverRedisTransport(t *testing.T) {
	transport, _ := testutils.SetupRedisTransport(t)

	c, err := codec.ByName("msgpack")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	def, sink := chain(t, 4)
	s := conduit.New(conduit.WithTransport(transport, c), conduit.WithCapacity(2))
	_, err = conduit.Launch(ctx, s, def)
	require.NoError(t, err)

	require.NoError(t, s.Execute(ctx))
	assert.Equal(t, []int{2, 4, 6, 8}, sink.values())
}

func TestLaunch_ForeignAllocatorKeepsOrderOverRedis(t *testing.T) {
	transport, _ := testutils.SetupRedisTransport(t)

	// The builder's own allocator restarts at 1/-1, repeating the block port IDs.
	def, sink := chainOn(t, model.NewBuilder(), model.NewAllocator(), 5)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := conduit.New(conduit.WithTransport(transport, codec.JSON{}), conduit.WithCapacity(2), conduit.WithRunID("run"))
	_, err := conduit.Launch(ctx, s, def)
	require.NoError(t, err)

	require.NoError(t, s.Execute(ctx))
	assert.Equal(t, []int{2, 4, 6, 8, 10}, sink.values())
}
