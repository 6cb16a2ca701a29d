package core

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// errNilTask is returned when Run or RunAsync is given a nil task.
var errNilTask = errors.New("task must not be nil")

// Runner executes Executables either inline (Run) or on its own worker
// pool (RunAsync). For every execution it calls BeforeExecute, Execute and
// AfterExecute in that order; AfterExecute runs even when Execute fails.
// A failed task is never retried.
//
// A Runner is created with NewRunner, shut down once with Shutdown and is
// not reusable afterwards. Run and RunAsync are safe for concurrent use.
//
// A task may call RunAsync on the runner executing it. Blocking on that
// nested handle from inside a worker can deadlock once every worker is
// waiting; callers that nest must keep Workers above their nesting depth.
type Runner struct {
	name   string
	config RunnerConfig
	pool   *WorkerPool

	logger             Logger
	metrics            Metrics
	panicHandler       PanicHandler
	hookFailureHandler HookFailureHandler

	closed       atomic.Bool
	shutdownOnce sync.Once

	running      atomic.Int32
	completed    atomic.Int64
	failed       atomic.Int64
	rejected     atomic.Int64
	hookFailures atomic.Int64

	history *executionHistory
}

// NewRunner creates a Runner and starts its worker pool.
// Zero fields of config take their values from DefaultRunnerConfig.
func NewRunner(config RunnerConfig) *Runner {
	cfg := config.withDefaults()
	pool := NewWorkerPool(cfg.poolConfig())

	r := &Runner{
		name:               cfg.Name,
		config:             cfg,
		pool:               pool,
		logger:             cfg.Logger,
		metrics:            cfg.Metrics,
		panicHandler:       cfg.PanicHandler,
		hookFailureHandler: cfg.HookFailureHandler,
		history:            newExecutionHistory(cfg.HistorySize),
	}

	pool.Start(context.Background())
	r.logger.Info("runner started",
		F("runner", r.name),
		F("workers", pool.WorkerCount()),
		F("queue_size", cfg.QueueSize))
	return r
}

// Name returns the runner name.
func (r *Runner) Name() string { return r.name }

// Config returns the effective configuration, defaults applied.
func (r *Runner) Config() RunnerConfig { return r.config }

// Pool returns the runner's worker pool.
func (r *Runner) Pool() *WorkerPool { return r.pool }

// IsClosed returns true once Shutdown has been called.
func (r *Runner) IsClosed() bool { return r.closed.Load() }

// Run executes task on the calling goroutine and returns Execute's result
// and error unchanged. It never touches the pool. A panic in Execute is
// returned as a *PanicError. After Shutdown it returns ErrRunnerClosed
// without calling the task.
func (r *Runner) Run(ctx context.Context, task Executable) (int, error) {
	if task == nil {
		return 0, errNilTask
	}
	if r.closed.Load() {
		r.rejectInline("shutting down")
		return 0, ErrRunnerClosed
	}
	return r.execute(ctx, GenerateTaskID(), task, ModeSync)
}

// RunAsync queues task for one pool worker and returns at once. Workers pick
// up submissions in FIFO order; completion order is unspecified.
//
// It fails with ErrRunnerClosed after Shutdown and with ErrQueueFull when
// the bounded queue is full; a rejected task is never executed. ctx is
// handed to the task when it runs; the runner never cancels a started task.
func (r *Runner) RunAsync(ctx context.Context, task Executable) (*Handle, error) {
	if task == nil {
		return nil, errNilTask
	}
	if r.closed.Load() {
		r.rejectInline("shutting down")
		return nil, ErrRunnerClosed
	}

	id := GenerateTaskID()
	h := newHandle(id, Describe(task))

	item := QueueItem{
		ID: id,
		Work: func(workerCtx context.Context) {
			if !h.start() {
				return // cancelled while queued
			}
			runCtx := context.WithValue(ctx, workerIDKey, WorkerID(workerCtx))
			rec := r.attempt(runCtx, id, task, ModeAsync)
			// Resolve the handle even if recording panics in a Metrics implementation.
			defer h.finish(rec.Result, rec.Err)
			r.record(rec)
		},
		Discard: func() {
			h.Cancel()
		},
	}

	// The scheduler is the authoritative gate: a Shutdown racing with this
	// call either sees the item queued (and drains it) or rejects it here.
	if err := r.pool.Post(item); err != nil {
		r.rejected.Add(1)
		return nil, err
	}
	return h, nil
}

// Shutdown stops accepting submissions and waits for accepted async work to
// finish, for at most RunnerConfig.ShutdownTimeout. If the grace period runs
// out, handles still queued are cancelled (Wait returns ErrCancelled), tasks
// already running are left to finish, and the returned error wraps
// ErrShutdownTimeout.
//
// Only the first call does anything; later calls return nil. Shutdown must
// not be called from a task running on this runner's pool: it would wait
// for itself until the grace period expires.
func (r *Runner) Shutdown() error {
	var err error
	r.shutdownOnce.Do(func() {
		r.closed.Store(true)
		r.logger.Info("runner shutting down",
			F("runner", r.name),
			F("queued", r.pool.QueuedTaskCount()),
			F("active", r.pool.ActiveTaskCount()),
			F("timeout", r.config.ShutdownTimeout))

		err = r.pool.StopGraceful(r.config.ShutdownTimeout)
		if err != nil {
			r.logger.Warn("runner shutdown incomplete", F("runner", r.name), F("error", err))
			return
		}
		r.logger.Info("runner stopped", F("runner", r.name))
	})
	return err
}

// Stats returns current observability data for this runner.
func (r *Runner) Stats() RunnerStats {
	stats := RunnerStats{
		Name:         r.name,
		Type:         "pooled",
		Pending:      r.pool.QueuedTaskCount(),
		Running:      int(r.running.Load()),
		Completed:    r.completed.Load(),
		Failed:       r.failed.Load(),
		Rejected:     r.rejected.Load(),
		HookFailures: r.hookFailures.Load(),
		Closed:       r.IsClosed(),
	}
	if last, ok := r.history.Last(); ok {
		stats.LastTaskName = last.Name
		stats.LastTaskAt = last.FinishedAt
	}
	return stats
}

// RecentTasks returns completed task execution records in newest-first order.
func (r *Runner) RecentTasks(limit int) []TaskExecutionRecord {
	return r.history.Recent(limit)
}

// rejectInline reports a refusal that happened before the pool was reached.
func (r *Runner) rejectInline(reason string) {
	r.rejected.Add(1)
	r.config.RejectedTaskHandler.HandleRejectedTask(r.name, reason)
	r.metrics.RecordTaskRejected(r.name, reason)
}

// execute runs one attempt and records it.
func (r *Runner) execute(ctx context.Context, id TaskID, task Executable, mode string) (int, error) {
	rec := r.attempt(ctx, id, task, mode)
	r.record(rec)
	return rec.Result, rec.Err
}

// attempt runs the before -> execute -> after sequence once.
func (r *Runner) attempt(ctx context.Context, id TaskID, task Executable, mode string) TaskExecutionRecord {
	name := Describe(task)
	hooks := HooksOf(task)
	runCtx := context.WithValue(ctx, runnerKey, r)

	r.running.Add(1)
	defer r.running.Add(-1)

	startedAt := time.Now()
	r.invokeHook(runCtx, "before", name, hooks.BeforeExecute)
	result, err, panicked := r.invokeTask(runCtx, name, task)
	r.invokeHook(runCtx, "after", name, hooks.AfterExecute)
	finishedAt := time.Now()

	return TaskExecutionRecord{
		TaskID:     id,
		Name:       name,
		RunnerName: r.name,
		Mode:       mode,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Duration:   finishedAt.Sub(startedAt),
		Result:     result,
		Err:        err,
		Panicked:   panicked,
	}
}

// record updates counters, metrics and history for a finished attempt.
func (r *Runner) record(rec TaskExecutionRecord) {
	if rec.Err != nil {
		r.failed.Add(1)
	} else {
		r.completed.Add(1)
	}
	r.history.Add(rec)

	r.metrics.RecordTaskDuration(r.name, rec.Mode, rec.Duration)
	if rec.Err != nil {
		r.metrics.RecordTaskFailure(r.name, rec.Mode)
	}
}

func (r *Runner) invokeTask(ctx context.Context, name string, task Executable) (result int, err error, panicked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			result, err, panicked = 0, newPanicError(name, rec), true
			r.panicHandler.HandlePanic(ctx, r.name, WorkerID(ctx), rec, debug.Stack())
			r.metrics.RecordTaskPanic(r.name, rec)
		}
	}()
	result, err = task.Execute(ctx)
	return result, err, false
}

// invokeHook runs one hook and isolates any failure from the task outcome.
func (r *Runner) invokeHook(ctx context.Context, hook, name string, fn func(context.Context) error) {
	err := func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = errors.Errorf("hook panicked: %v", rec)
			}
		}()
		return fn(ctx)
	}()
	if err == nil {
		return
	}

	r.hookFailures.Add(1)
	r.metrics.RecordHookFailure(r.name, hook)

	failure := &HookFailure{Hook: hook, Task: name, Err: err}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("hook failure handler panicked", F("runner", r.name), F("panic", rec))
		}
	}()
	r.hookFailureHandler.HandleHookFailure(ctx, r.name, failure)
}
