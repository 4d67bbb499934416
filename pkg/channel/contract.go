package channel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/conduit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunContract runs a suite of tests to verify that a Provider implementation
// honors the Sender/Receiver contract. Backends that poll must settle within
// a few hundred milliseconds for the suite to pass.
func RunContract(t *testing.T, provider Provider[int]) {
	open := func(t *testing.T, capacity int) (Sender[int], Receiver[int]) {
		name := "contract-" + strings.ReplaceAll(t.Name(), "/", "-")
		tx, rx, err := provider.Open(context.Background(), name, capacity)
		require.NoError(t, err, "Open should not return error")
		t.Cleanup(func() {
			_ = tx.Close()
			_ = rx.Close()
		})
		return tx, rx
	}
	recv := func(t *testing.T, rx Receiver[int]) (int, bool) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		v, ok, err := rx.Recv(ctx)
		require.NoError(t, err)
		return v, ok
	}

	t.Run("FIFO", func(t *testing.T) {
		tx, rx := open(t, 8)
		ctx := context.Background()
		for i := 1; i <= 5; i++ {
			require.NoError(t, tx.Send(ctx, i))
		}
		for i := 1; i <= 5; i++ {
			v, ok := recv(t, rx)
			require.True(t, ok)
			assert.Equal(t, i, v)
		}
	})

	t.Run("Full Send Suspends Until Receive", func(t *testing.T) {
		tx, rx := open(t, 1)
		ctx := context.Background()
		require.NoError(t, tx.Send(ctx, 1))

		done := make(chan error, 1)
		go func() { done <- tx.Send(ctx, 2) }()

		assert.Never(t, func() bool { return len(done) > 0 }, 100*time.Millisecond, 10*time.Millisecond,
			"second send must suspend while the queue is full")

		v, ok := recv(t, rx)
		require.True(t, ok)
		assert.Equal(t, 1, v)

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("second send did not complete after the first value was received")
		}

		v, ok = recv(t, rx)
		require.True(t, ok)
		assert.Equal(t, 2, v)
	})

	t.Run("End Of Stream Is Idempotent", func(t *testing.T) {
		tx, rx := open(t, 4)
		ctx := context.Background()
		require.NoError(t, tx.Send(ctx, 7))
		require.NoError(t, tx.Close())
		require.NoError(t, tx.Close(), "Close should be idempotent")

		v, ok := recv(t, rx)
		require.True(t, ok, "queued messages drain before end-of-stream")
		assert.Equal(t, 7, v)

		for i := 0; i < 3; i++ {
			_, ok = recv(t, rx)
			assert.False(t, ok)
		}
		assert.True(t, rx.IsClosed())
	})

	t.Run("Closed Receiver Fails Send Fast", func(t *testing.T) {
		tx, rx := open(t, 1)
		ctx := context.Background()
		require.NoError(t, tx.Send(ctx, 1))

		blocked := make(chan error, 1)
		go func() { blocked <- tx.Send(ctx, 2) }()

		require.NoError(t, rx.Close())
		require.NoError(t, rx.Close(), "Close should be idempotent")

		select {
		case err := <-blocked:
			assert.ErrorIs(t, err, domain.ErrSend, "in-flight send must fail once the receiver is closed")
		case <-time.After(2 * time.Second):
			t.Fatal("in-flight send did not fail after receiver close")
		}

		err := tx.Send(ctx, 3)
		require.ErrorIs(t, err, domain.ErrSend)
		var se *SendError[int]
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 3, se.Value, "rejected value is handed back")
		assert.True(t, tx.IsClosed())
	})

	t.Run("Recv Honors Context Deadline", func(t *testing.T) {
		_, rx := open(t, 1)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, ok, err := rx.Recv(ctx)
		assert.False(t, ok)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Non Blocking Variants", func(t *testing.T) {
		tx, rx := open(t, 1)

		_, _, err := rx.TryRecv()
		assert.ErrorIs(t, err, domain.ErrEmpty)

		require.NoError(t, tx.TrySend(1))
		err = tx.TrySend(2)
		assert.ErrorIs(t, err, domain.ErrFull)

		v, ok, err := rx.TryRecv()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, v)

		require.NoError(t, tx.Close())
		_, ok, err = rx.TryRecv()
		assert.NoError(t, err, "end-of-stream is not an error")
		assert.False(t, ok)
	})

	t.Run("Capacity Reporting", func(t *testing.T) {
		tx, rx := open(t, 2)

		bound, ok := tx.MaxCapacity()
		require.True(t, ok)
		assert.Equal(t, 2, bound)

		require.NoError(t, tx.Send(context.Background(), 1))
		free, ok := rx.Capacity()
		require.True(t, ok)
		assert.Equal(t, 1, free)
		assert.False(t, rx.IsEmpty())
		assert.Equal(t, 1, rx.Len())
	})

	t.Run("Unbounded", func(t *testing.T) {
		tx, rx := open(t, 0)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		for i := 0; i < 64; i++ {
			require.NoError(t, tx.Send(ctx, i))
		}
		_, ok := tx.MaxCapacity()
		assert.False(t, ok, "unbounded channels report an unknown bound")
		_, ok = rx.Capacity()
		assert.False(t, ok)

		require.NoError(t, tx.Close())
		count := 0
		for {
			_, ok := recv(t, rx)
			if !ok {
				break
			}
			count++
		}
		assert.Equal(t, 64, count)
	})
}
