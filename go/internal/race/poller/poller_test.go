package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestPollerContinuesAfterFailure(t *testing.T) {
	fc := clockwork.NewFakeClock()
	var calls, handled atomic.Int32

	p := New[int](fc, Config{Name: "test", Interval: time.Second},
		func(ctx context.Context) (int, error) {
			n := calls.Add(1)
			if n == 1 {
				return 0, errBoom
			}
			return int(n), nil
		},
		func(ctx context.Context, v int) bool {
			handled.Add(1)
			return false
		})
	p.Start(context.Background())
	defer p.Stop()

	fc.Advance(time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), handled.Load())

	fc.Advance(time.Second)
	require.Eventually(t, func() bool { return handled.Load() == 1 }, time.Second, time.Millisecond)
}

func TestPollerStopsItself(t *testing.T) {
	fc := clockwork.NewFakeClock()
	var calls atomic.Int32

	p := New[int](fc, Config{Name: "self-stop", Interval: time.Second, Immediate: true},
		func(ctx context.Context) (int, error) {
			return int(calls.Add(1)), nil
		},
		func(ctx context.Context, v int) bool {
			return v >= 2
		})
	p.Start(context.Background())

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	fc.Advance(time.Second)

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not stop itself")
	}

	fc.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
	p.Stop()
}

func TestPollerStopInterruptsFetch(t *testing.T) {
	fc := clockwork.NewFakeClock()
	var calls atomic.Int32
	entered := make(chan struct{})

	p := New[int](fc, Config{Name: "blocked", Interval: time.Second},
		func(ctx context.Context) (int, error) {
			calls.Add(1)
			close(entered)
			<-ctx.Done()
			return 0, ctx.Err()
		},
		func(ctx context.Context, v int) bool {
			t.Error("handler must not run after stop")
			return false
		})
	p.Start(context.Background())
	fc.Advance(time.Second)
	<-entered

	p.Stop()
	fc.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPollerStopBeforeStart(t *testing.T) {
	fc := clockwork.NewFakeClock()
	var calls atomic.Int32
	p := New[int](fc, Config{Name: "idle", Interval: time.Second, Immediate: true},
		func(ctx context.Context) (int, error) {
			calls.Add(1)
			return 0, nil
		},
		func(ctx context.Context, v int) bool { return false })

	p.Stop()
	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestPollerDoneBeforeStart(t *testing.T) {
	fc := clockwork.NewFakeClock()
	p := New[int](fc, Config{Name: "idle", Interval: time.Second},
		func(ctx context.Context) (int, error) { return 0, nil },
		func(ctx context.Context, v int) bool { return false })

	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("Done blocked before Start")
	}

	p.Start(context.Background())
	select {
	case <-p.Done():
		t.Fatal("Done closed while polling")
	default:
	}

	p.Stop()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Stop")
	}
}
