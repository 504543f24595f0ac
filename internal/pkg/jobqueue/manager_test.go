package jobqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/cache"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/testutil"
)

func TestGetManager(t *testing.T) {
	_, client := testutil.NewRedis(t)
	cache.SetClient(client)

	// Reset the singleton for testing
	globalManager = nil
	managerOnce = sync.Once{}
	t.Setenv("JOBQUEUE_WORKERS", "2")

	manager1 := GetManager()
	manager2 := GetManager()

	assert.NotNil(t, manager1)
	assert.Same(t, manager1, manager2, "GetManager should return the same instance")
	assert.NotNil(t, manager1.GetQueue())
	assert.Equal(t, 2, manager1.GetQueue().workers)
	assert.False(t, manager1.IsRunning())

	globalManager = nil
	managerOnce = sync.Once{}
}

func TestManager_StopWithoutStart(t *testing.T) {
	_, client := testutil.NewRedis(t)
	manager := NewManager(NewQueueWithClient(client, 1))

	assert.False(t, manager.IsRunning())
	manager.Stop()
	assert.False(t, manager.IsRunning())
}

func TestManager_RunsPeriodicTasks(t *testing.T) {
	_, client := testutil.NewRedis(t)
	var runs atomic.Int32
	manager := NewManager(NewQueueWithClient(client, 1), PeriodicTask{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	manager.Start()
	assert.True(t, manager.IsRunning())
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	manager.Stop()
	assert.False(t, manager.IsRunning())

	// restart works with a fresh stop channel
	manager.Start()
	manager.Stop()
}

func TestManager_RunTaskOnce(t *testing.T) {
	_, client := testutil.NewRedis(t)
	manager := NewManager(NewQueueWithClient(client, 1))
	boom := errors.New("boom")
	manager.AddTask(PeriodicTask{Name: "flush", Interval: time.Hour, Run: func(ctx context.Context) error { return boom }})

	assert.ErrorIs(t, manager.RunTaskOnce(context.Background(), "flush"), boom)
	require.Error(t, manager.RunTaskOnce(context.Background(), "missing"))
}
