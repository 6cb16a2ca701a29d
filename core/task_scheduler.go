package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// TaskScheduler is the work source behind a WorkerPool: a FIFO queue, a
// wake-up signal for idle workers and the accounting needed for a drained
// shutdown.
type TaskScheduler struct {
	id          string
	queue       TaskQueue
	signal      chan struct{}
	workerCount int

	metricActive int32 // Executing in Worker

	// Handlers and Metrics
	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler

	// Lifecycle. postMu orders PostInternal against BeginShutdown so an item
	// is either fully accepted (and counted in inflight) or rejected.
	postMu       sync.RWMutex
	shuttingDown atomic.Bool
	inflight     sync.WaitGroup
}

// NewTaskScheduler creates a scheduler for workerCount workers.
func NewTaskScheduler(workerCount int, config PoolConfig) *TaskScheduler {
	s := &TaskScheduler{
		id:                  config.ID,
		queue:               NewBoundedFIFOTaskQueue(config.QueueSize),
		signal:              make(chan struct{}, workerCount*2),
		workerCount:         workerCount,
		panicHandler:        config.PanicHandler,
		metrics:             config.Metrics,
		rejectedTaskHandler: config.RejectedTaskHandler,
	}

	// Use defaults if not provided
	if s.panicHandler == nil {
		s.panicHandler = &DefaultPanicHandler{}
	}
	if s.metrics == nil {
		s.metrics = &NilMetrics{}
	}
	if s.rejectedTaskHandler == nil {
		s.rejectedTaskHandler = &DefaultRejectedTaskHandler{}
	}

	return s
}

// PostInternal queues item for the next free worker.
func (s *TaskScheduler) PostInternal(item QueueItem) error {
	s.postMu.RLock()
	defer s.postMu.RUnlock()

	if s.shuttingDown.Load() {
		s.reject("shutting down")
		return ErrRunnerClosed
	}

	s.inflight.Add(1)
	if !s.queue.Push(item) {
		s.inflight.Done()
		s.reject("queue full")
		return ErrQueueFull
	}
	s.metrics.RecordQueueDepth(s.id, s.queue.Len())

	select {
	case s.signal <- struct{}{}:
	default:
		// Signal channel full, but task is already queued
		// This is not an error, just a optimization hint
	}
	return nil
}

func (s *TaskScheduler) reject(reason string) {
	s.rejectedTaskHandler.HandleRejectedTask(s.id, reason)
	s.metrics.RecordTaskRejected(s.id, reason)
}

// GetWork (Called by Worker)
func (s *TaskScheduler) GetWork(stopCh <-chan struct{}) (QueueItem, bool) {
	for {
		if item, ok := s.queue.Pop(); ok {
			s.metrics.RecordQueueDepth(s.id, s.queue.Len())
			return item, true
		}

		select {
		case <-s.signal:
			continue
		case <-stopCh:
			return QueueItem{}, false
		}
	}
}

// BeginShutdown stops accepting new items. Items already accepted stay queued.
func (s *TaskScheduler) BeginShutdown() {
	s.postMu.Lock()
	s.shuttingDown.Store(true)
	s.postMu.Unlock()
}

// Shutdown stops accepting items and discards everything still queued.
func (s *TaskScheduler) Shutdown() {
	s.BeginShutdown()
	s.discardQueued()
}

// Drain waits until every accepted item has finished or been discarded.
// On timeout the remaining queue is discarded and ErrShutdownTimeout is
// returned; items already running are left to finish on their own.
func (s *TaskScheduler) Drain(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		dropped := s.discardQueued()
		return errors.Wrapf(ErrShutdownTimeout, "after %v, %d queued tasks cancelled", timeout, dropped)
	}
}

func (s *TaskScheduler) discardQueued() int {
	dropped := s.queue.Clear()
	for _, item := range dropped {
		if item.Discard != nil {
			item.Discard()
		}
		s.inflight.Done()
	}
	s.metrics.RecordQueueDepth(s.id, 0)
	return len(dropped)
}

// IsShuttingDown reports whether BeginShutdown has been called.
func (s *TaskScheduler) IsShuttingDown() bool { return s.shuttingDown.Load() }

// Metrics
func (s *TaskScheduler) WorkerCount() int     { return s.workerCount }
func (s *TaskScheduler) QueuedTaskCount() int { return s.queue.Len() }
func (s *TaskScheduler) ActiveTaskCount() int { return int(atomic.LoadInt32(&s.metricActive)) }

func (s *TaskScheduler) OnTaskStart() {
	atomic.AddInt32(&s.metricActive, 1)
}

func (s *TaskScheduler) OnTaskEnd() {
	atomic.AddInt32(&s.metricActive, -1)
	s.inflight.Done()
}

// GetPanicHandler returns the panic handler for this scheduler
func (s *TaskScheduler) GetPanicHandler() PanicHandler {
	return s.panicHandler
}

// GetMetrics returns the metrics collector for this scheduler
func (s *TaskScheduler) GetMetrics() Metrics {
	return s.metrics
}
