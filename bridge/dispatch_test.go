// ABOUTME: Tests for the call dispatcher
// ABOUTME: Covers sync offload, async inline execution, and timeouts
package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCallReturnsResult(t *testing.T) {
	d := NewDispatcher(2, time.Second, nil)

	v, err := d.Call(context.Background(), CallSync, func(context.Context) (any, error) {
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestAsyncCallRunsInline(t *testing.T) {
	d := NewDispatcher(2, time.Second, nil)

	v, err := d.Call(context.Background(), CallAsync, func(ctx context.Context) (any, error) {
		require.NotNil(t, ctx.Done(), "async calls receive a cancellable context")
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSyncCallTimesOut(t *testing.T) {
	d := NewDispatcher(2, 30*time.Millisecond, nil)

	release := make(chan struct{})
	defer close(release)

	_, err := d.Call(context.Background(), CallSync, func(context.Context) (any, error) {
		<-release
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "timeout", err.Error())
}

func TestAsyncCallTimesOut(t *testing.T) {
	d := NewDispatcher(2, 30*time.Millisecond, nil)

	_, err := d.Call(context.Background(), CallAsync, func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPoolExhaustionCountsAgainstTimeout(t *testing.T) {
	d := NewDispatcher(1, 30*time.Millisecond, nil)

	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = d.Call(context.Background(), CallSync, func(context.Context) (any, error) {
			<-release
			return nil, nil
		})
	}()
	<-started
	time.Sleep(5 * time.Millisecond) // let the first call occupy the only slot

	_, err := d.Call(context.Background(), CallSync, func(context.Context) (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrTimeout, "waiting for a pool slot counts against the deadline")
}

func TestCancelledContextPropagates(t *testing.T) {
	d := NewDispatcher(1, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Call(ctx, CallSync, func(context.Context) (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
