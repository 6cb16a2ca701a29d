package core

import (
	"context"
	"fmt"
	"time"
)

// Run modes used as metric and history labels.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context the task was running with
	// - runnerName: The name of the runner or pool where the panic occurred
	// - workerID: The pool worker ID, -1 for tasks run inline by Run
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, runnerName string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, runnerName string, workerID int, panicInfo any, stackTrace []byte) {
	if workerID >= 0 {
		fmt.Printf("[Worker %d @ %s] Panic: %v\nStack trace:\n%s",
			workerID, runnerName, panicInfo, stackTrace)
	} else {
		fmt.Printf("[Runner %s] Panic: %v\nStack trace:\n%s",
			runnerName, panicInfo, stackTrace)
	}
}

// =============================================================================
// HookFailureHandler: Interface for isolating hook failures
// =============================================================================

// HookFailureHandler receives hook failures. It must not block for long:
// it runs on the goroutine executing the task.
type HookFailureHandler interface {
	HandleHookFailure(ctx context.Context, runnerName string, failure *HookFailure)
}

// LoggingHookFailureHandler reports hook failures as warnings.
type LoggingHookFailureHandler struct {
	Logger Logger
}

// HandleHookFailure logs the failure.
func (h *LoggingHookFailureHandler) HandleHookFailure(ctx context.Context, runnerName string, failure *HookFailure) {
	logger := h.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	logger.Warn("hook failed",
		F("runner", runnerName),
		F("hook", failure.Hook),
		F("task", failure.Task),
		F("error", failure.Err))
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (see observability/prometheus).
//
// Methods should be non-blocking and fast to avoid impacting task execution performance.
type Metrics interface {
	// RecordTaskDuration records how long a task took, hooks included.
	// mode is ModeSync or ModeAsync.
	RecordTaskDuration(runnerName string, mode string, duration time.Duration)

	// RecordTaskFailure records that Execute returned an error or panicked.
	RecordTaskFailure(runnerName string, mode string)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(runnerName string, panicInfo any)

	// RecordQueueDepth records the current pool queue depth.
	RecordQueueDepth(runnerName string, depth int)

	// RecordTaskRejected records that a submission was refused.
	RecordTaskRejected(runnerName string, reason string)

	// RecordHookFailure records a failed before/after hook.
	RecordHookFailure(runnerName string, hook string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(runnerName string, mode string, duration time.Duration) {}
func (m *NilMetrics) RecordTaskFailure(runnerName string, mode string)                        {}
func (m *NilMetrics) RecordTaskPanic(runnerName string, panicInfo any)                        {}
func (m *NilMetrics) RecordQueueDepth(runnerName string, depth int)                           {}
func (m *NilMetrics) RecordTaskRejected(runnerName string, reason string)                     {}
func (m *NilMetrics) RecordHookFailure(runnerName string, hook string)                        {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected tasks
// =============================================================================

// RejectedTaskHandler is called when a submission is refused, either because
// the pool is shutting down or because its bounded queue is full. The
// submitter still gets an error; the handler is for side reporting.
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	HandleRejectedTask(runnerName string, reason string)
}

// DefaultRejectedTaskHandler provides a basic handler that logs rejected tasks.
type DefaultRejectedTaskHandler struct{}

// HandleRejectedTask logs the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(runnerName string, reason string) {
	fmt.Printf("[Runner %s] Task rejected: %s\n", runnerName, reason)
}

// =============================================================================
// Configuration
// =============================================================================

const (
	// DefaultShutdownTimeout bounds how long Shutdown waits for accepted work.
	DefaultShutdownTimeout = 30 * time.Second

	// MaxWorkers is the largest worker count a pool accepts.
	MaxWorkers = 10000
)

// PoolConfig holds configuration options for WorkerPool.
// All handlers are optional; if not provided, default implementations will be used.
type PoolConfig struct {
	// ID names the pool in metrics and panic reports.
	ID string

	// Workers is the fixed number of worker goroutines. Zero means runtime.NumCPU().
	Workers int

	// QueueSize bounds the FIFO queue. Zero means unbounded.
	QueueSize int

	// PanicHandler is called when a work item panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics records queue depth and rejections. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a submission is refused. Defaults to DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler
}

// RunnerConfig holds configuration options for Runner.
type RunnerConfig struct {
	// Name labels the runner in logs, metrics and history. Defaults to "runner".
	Name string

	// Workers and QueueSize size the runner's pool; see PoolConfig.
	Workers   int
	QueueSize int

	// ShutdownTimeout bounds how long Shutdown waits for accepted async work.
	// Defaults to DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// HistorySize is the number of execution records kept for RecentTasks.
	HistorySize int

	Logger              Logger
	Metrics             Metrics
	PanicHandler        PanicHandler
	RejectedTaskHandler RejectedTaskHandler
	HookFailureHandler  HookFailureHandler
}

// DefaultRunnerConfig returns a config with default handlers.
func DefaultRunnerConfig() RunnerConfig {
	logger := NewNoOpLogger()
	return RunnerConfig{
		Name:                "runner",
		ShutdownTimeout:     DefaultShutdownTimeout,
		HistorySize:         defaultTaskHistoryCapacity,
		Logger:              logger,
		Metrics:             &NilMetrics{},
		PanicHandler:        &DefaultPanicHandler{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{},
		HookFailureHandler:  &LoggingHookFailureHandler{Logger: logger},
	}
}

// withDefaults fills every zero field from DefaultRunnerConfig.
func (c RunnerConfig) withDefaults() RunnerConfig {
	d := DefaultRunnerConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.HistorySize <= 0 {
		c.HistorySize = d.HistorySize
	}
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	if c.Metrics == nil {
		c.Metrics = d.Metrics
	}
	if c.PanicHandler == nil {
		c.PanicHandler = d.PanicHandler
	}
	if c.RejectedTaskHandler == nil {
		c.RejectedTaskHandler = d.RejectedTaskHandler
	}
	if c.HookFailureHandler == nil {
		c.HookFailureHandler = &LoggingHookFailureHandler{Logger: c.Logger}
	}
	return c
}

func (c RunnerConfig) poolConfig() PoolConfig {
	return PoolConfig{
		ID:                  c.Name + "-pool",
		Workers:             c.Workers,
		QueueSize:           c.QueueSize,
		PanicHandler:        c.PanicHandler,
		Metrics:             c.Metrics,
		RejectedTaskHandler: c.RejectedTaskHandler,
	}
}
