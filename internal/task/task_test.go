package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arloliu/go-soak/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_StartAndStop(t *testing.T) {
	mgr := NewManager(context.Background(), logger.GetLogger())

	var iterations atomic.Int32
	require.NoError(t, mgr.Start("loop", func(ctx context.Context) bool {
		iterations.Add(1)
		time.Sleep(time.Millisecond)
		return true
	}))

	assert.Eventually(t, func() bool { return iterations.Load() > 3 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, mgr.TaskCount())

	mgr.Stop()
	mgr.Wait()
	assert.Equal(t, 0, mgr.TaskCount())

	err := mgr.Start("late", func(context.Context) bool { return false })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestManager_TaskReturnsFalse(t *testing.T) {
	mgr := NewManager(context.Background(), logger.GetLogger())
	defer mgr.Stop()

	var iterations atomic.Int32
	require.NoError(t, mgr.Start("once", func(context.Context) bool {
		iterations.Add(1)
		return false
	}))

	mgr.Wait()
	assert.Equal(t, int32(1), iterations.Load())
}

func TestManager_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mgr := NewManager(ctx, logger.GetLogger())

	require.NoError(t, mgr.Start("blocking", func(ctx context.Context) bool {
		<-ctx.Done()
		return false
	}))

	cancel()

	done := make(chan struct{})
	go func() {
		mgr.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not observe parent cancellation")
	}
}

func TestManager_PanicStopsTask(t *testing.T) {
	mgr := NewManager(context.Background(), logger.GetLogger())
	defer mgr.Stop()

	require.NoError(t, mgr.Start("panicky", func(context.Context) bool {
		panic("boom")
	}))

	mgr.Wait()
	assert.Equal(t, 0, mgr.TaskCount())
}

func TestManager_StartInterval(t *testing.T) {
	mgr := NewManager(context.Background(), logger.GetLogger())

	var ticks atomic.Int32
	require.NoError(t, mgr.StartInterval("tick", func(context.Context) bool {
		return ticks.Add(1) < 3
	}, 5*time.Millisecond))

	mgr.Wait()
	assert.Equal(t, int32(3), ticks.Load())

	assert.Error(t, mgr.StartInterval("bad", func(context.Context) bool { return true }, 0))
	mgr.Stop()
}
