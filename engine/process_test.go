package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error)
	go func() {
		done <- Poll(time.Millisecond, func(ctx context.Context) bool {
			if calls.Add(1) >= 5 {
				cancel()
			}
			return false
		})(ctx)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("poll did not return")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(5))
}

func TestProcMgrRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int32
	var mgr ProcMgr
	for i := 0; i < 3; i++ {
		mgr.Add(func(ctx context.Context) error {
			started.Add(1)
			<-ctx.Done()
			return ctx.Err()
		})
	}

	go func() {
		for started.Load() < 3 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()
	mgr.Run(ctx)
	assert.Equal(t, int32(3), started.Load())
}
