package countdown

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedRemaining(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	cases := []struct {
		name  string
		start *time.Time
		want  time.Duration
	}{
		{name: "no remote start", start: nil, want: 60 * time.Second},
		{name: "joined thirty seconds late", start: ago(30 * time.Second), want: 30 * time.Second},
		{name: "race already over", start: ago(90 * time.Second), want: 0},
		{name: "remote clock ahead", start: ago(-5 * time.Second), want: 60 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SeedRemaining(60*time.Second, tc.start, now))
		})
	}
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 0, Seconds(0))
	assert.Equal(t, 0, Seconds(-time.Second))
	assert.Equal(t, 30, Seconds(30*time.Second))
	assert.Equal(t, 30, Seconds(29*time.Second+time.Millisecond))
}

type recorder struct {
	mu      sync.Mutex
	ticks   []time.Duration
	expired atomic.Int32
}

func (r *recorder) tick(_ context.Context, rem time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, rem)
}

func (r *recorder) expire(context.Context) {
	r.expired.Add(1)
}

func (r *recorder) tickCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ticks)
}

func TestCountdownTicksThenExpiresOnce(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &recorder{}
	c := New(fc, time.Second, 3*time.Second, rec.tick, rec.expire)
	c.Start(context.Background())
	defer c.Stop()

	fc.Advance(time.Second)
	require.Eventually(t, func() bool { return rec.tickCount() == 1 }, time.Second, time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, 2*time.Second, rec.ticks[0])
	rec.mu.Unlock()

	fc.Advance(2 * time.Second)
	require.Eventually(t, func() bool { return rec.expired.Load() == 1 }, time.Second, time.Millisecond)
	assert.True(t, c.Expired())

	fc.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), rec.expired.Load())
}

func TestCountdownSeededAtZeroExpiresImmediately(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &recorder{}
	c := New(fc, time.Second, 0, rec.tick, rec.expire)
	c.Start(context.Background())
	c.Start(context.Background())

	require.Eventually(t, func() bool { return rec.expired.Load() == 1 }, time.Second, time.Millisecond)
	c.Stop()
	assert.Equal(t, 0, rec.tickCount())
	assert.Equal(t, int32(1), rec.expired.Load())
}

func TestCountdownStopPreventsCallbacks(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &recorder{}
	c := New(fc, time.Second, 10*time.Second, rec.tick, rec.expire)
	c.Start(context.Background())
	c.Stop()
	c.Stop()

	fc.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, rec.tickCount())
	assert.Equal(t, int32(0), rec.expired.Load())
	assert.False(t, c.Expired())
}

func TestCountdownStopBeforeStart(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &recorder{}
	c := New(fc, time.Second, time.Second, rec.tick, rec.expire)
	c.Stop()
	c.Start(context.Background())

	fc.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), rec.expired.Load())
}
