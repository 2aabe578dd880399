package room

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateAdmitsOneConcurrentCommit(t *testing.T) {
	var g Gate
	var won atomic.Int32
	var winner atomic.Int32

	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, score := range []int32{3, 9} {
		wg.Add(1)
		go func(score int32) {
			defer wg.Done()
			<-start
			if g.Acquire(OpScore) {
				won.Add(1)
				winner.Store(score)
			}
		}(score)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
	assert.Contains(t, []int32{3, 9}, winner.Load())
	assert.True(t, g.InFlight())
	assert.False(t, g.Committed())
}

func TestGateFailureReopens(t *testing.T) {
	var g Gate
	assert.True(t, g.Acquire(OpScore))
	assert.False(t, g.Acquire(OpScore))

	g.Resolve(errors.New("rpc down"))
	assert.False(t, g.Committed())
	assert.False(t, g.InFlight())

	assert.True(t, g.Acquire(OpScore), "manual retry after a failure")
	g.Resolve(nil)
	assert.True(t, g.Committed())
	assert.False(t, g.Acquire(OpScore))
	assert.False(t, g.Acquire(OpCancel))
}

func TestGateResolveWithoutAcquire(t *testing.T) {
	var g Gate
	g.Resolve(nil)
	assert.False(t, g.Committed())
}
