package core

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

type workerIDKeyType struct{}

var workerIDKey workerIDKeyType

// WorkerID returns the pool worker running ctx's task, or -1 off-pool.
func WorkerID(ctx context.Context) int {
	if v, ok := ctx.Value(workerIDKey).(int); ok {
		return v
	}
	return -1
}

// WorkerPool manages a fixed set of worker goroutines.
// Workers pull items from the TaskScheduler in FIFO order and execute them.
type WorkerPool struct {
	id        string
	workers   int
	scheduler *TaskScheduler
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	running   bool
	runningMu sync.RWMutex
}

// NewWorkerPool creates a pool; it does not start workers until Start.
// Panics if config.Workers is negative or above MaxWorkers.
func NewWorkerPool(config PoolConfig) *WorkerPool {
	workers := config.Workers
	if workers < 0 {
		panic("WorkerPool: workers must not be negative")
	}
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if workers > MaxWorkers {
		panic(fmt.Sprintf("WorkerPool: workers must not exceed %d", MaxWorkers))
	}
	if config.ID == "" {
		config.ID = fmt.Sprintf("pool-%d", workers)
	}
	return &WorkerPool{
		id:        config.ID,
		workers:   workers,
		scheduler: NewTaskScheduler(workers, config),
	}
}

// Start starts all worker goroutines
func (p *WorkerPool) Start(ctx context.Context) {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return // Already running
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i, p.ctx)
	}
}

// Post queues an item. It fails with ErrRunnerClosed after shutdown began
// and with ErrQueueFull when the bounded queue is at capacity.
func (p *WorkerPool) Post(item QueueItem) error {
	return p.scheduler.PostInternal(item)
}

// Stop discards queued items, then waits for running items to return.
func (p *WorkerPool) Stop() {
	// Always shutdown scheduler so queued items are discarded
	// even if pool was never started
	p.scheduler.Shutdown()

	p.runningMu.Lock()
	if !p.running {
		p.runningMu.Unlock()
		return
	}
	p.runningMu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.Join()

	p.runningMu.Lock()
	p.running = false
	p.runningMu.Unlock()
}

// StopGraceful stops accepting items and waits up to timeout for every
// accepted item to finish. On timeout the remaining queue is discarded, the
// workers are told to exit after their current item, and the error wraps
// ErrShutdownTimeout. It does not wait for those running items.
func (p *WorkerPool) StopGraceful(timeout time.Duration) error {
	p.runningMu.Lock()
	if !p.running {
		p.runningMu.Unlock()
		p.scheduler.Shutdown()
		return nil
	}
	p.runningMu.Unlock()

	p.scheduler.BeginShutdown()
	err := p.scheduler.Drain(timeout)

	if p.cancel != nil {
		p.cancel()
	}
	if err == nil {
		p.Join()
	}

	p.runningMu.Lock()
	p.running = false
	p.runningMu.Unlock()

	return err
}

// ID returns the ID of the pool
func (p *WorkerPool) ID() string {
	return p.id
}

// IsRunning returns whether the pool is running
func (p *WorkerPool) IsRunning() bool {
	p.runningMu.RLock()
	defer p.runningMu.RUnlock()
	return p.running
}

// workerLoop is the main loop for each worker
func (p *WorkerPool) workerLoop(id int, ctx context.Context) {
	defer p.wg.Done()
	stopCh := ctx.Done()
	workerCtx := context.WithValue(ctx, workerIDKey, id)

	for {
		item, ok := p.scheduler.GetWork(stopCh)
		if !ok {
			return
		}

		p.scheduler.OnTaskStart()

		// Execute item and capture panic
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.scheduler.GetPanicHandler().HandlePanic(workerCtx, p.id, id, r, debug.Stack())
					p.scheduler.GetMetrics().RecordTaskPanic(p.id, r)
				}
				p.scheduler.OnTaskEnd()
			}()
			item.Work(workerCtx)
		}()
	}
}

// Join waits for all worker goroutines to finish
func (p *WorkerPool) Join() {
	p.wg.Wait()
}

// WorkerCount returns the number of workers
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

func (p *WorkerPool) QueuedTaskCount() int {
	return p.scheduler.QueuedTaskCount()
}

func (p *WorkerPool) ActiveTaskCount() int {
	return p.scheduler.ActiveTaskCount()
}

// GetScheduler returns the pool's work source.
func (p *WorkerPool) GetScheduler() *TaskScheduler {
	return p.scheduler
}

// Stats returns current observability data for this pool.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		ID:      p.id,
		Workers: p.workers,
		Queued:  p.QueuedTaskCount(),
		Active:  p.ActiveTaskCount(),
		Running: p.IsRunning(),
	}
}
