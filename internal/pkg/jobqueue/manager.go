package jobqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/env"
)

// PeriodicTask is background work the manager runs on a fixed interval
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Manager manages the global job queue and background tasks
type Manager struct {
	queue   *Queue
	tasks   []PeriodicTask
	stopCh  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := env.GetEnvInt("JOBQUEUE_WORKERS", 5)
		globalManager = NewManager(NewQueue(workerCount))
	})
	return globalManager
}

// NewManager creates a manager around queue
func NewManager(queue *Queue, tasks ...PeriodicTask) *Manager {
	return &Manager{
		queue:  queue,
		tasks:  tasks,
		stopCh: make(chan struct{}),
	}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// AddTask registers a periodic task. Tasks added while running start with
// the next Start.
func (m *Manager) AddTask(task PeriodicTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	for _, task := range m.tasks {
		if task.Interval <= 0 || task.Run == nil {
			log.Warnf("[JobQueue Manager] Skipping task %q without interval or func", task.Name)
			continue
		}
		m.wg.Add(1)
		go m.taskWorker(ctx, task, m.stopCh)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	// Signal workers to stop
	close(m.stopCh)
	m.cancel()
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

func (m *Manager) taskWorker(ctx context.Context, task PeriodicTask, stopCh chan struct{}) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started %s worker (interval: %s)", task.Name, task.Interval)

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			log.Infof("[JobQueue Manager] %s worker stopping", task.Name)
			return
		case <-ticker.C:
			if err := task.Run(ctx); err != nil {
				log.Errorf("[JobQueue Manager] %s error: %v", task.Name, err)
			}
		}
	}
}

// RunTaskOnce runs the named task immediately (admin use and tests)
func (m *Manager) RunTaskOnce(ctx context.Context, name string) error {
	m.mu.Lock()
	var found *PeriodicTask
	for i := range m.tasks {
		if m.tasks[i].Name == name {
			found = &m.tasks[i]
			break
		}
	}
	m.mu.Unlock()

	if found == nil {
		return fmt.Errorf("unknown task %q", name)
	}
	return found.Run(ctx)
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
