package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
)

// hookedTask records its own hook calls and execution in order.
type hookedTask struct {
	mu     sync.Mutex
	events []string
	result int
	err    error
}

func (t *hookedTask) record(ev string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
}

func (t *hookedTask) Events() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

func (t *hookedTask) BeforeExecute(ctx context.Context) error { t.record("before"); return nil }
func (t *hookedTask) AfterExecute(ctx context.Context) error  { t.record("after"); return nil }
func (t *hookedTask) Execute(ctx context.Context) (int, error) {
	t.record("execute")
	return t.result, t.err
}

func constTask(v int) Executable {
	return ExecutableFunc(func(ctx context.Context) (int, error) { return v, nil })
}

func waitHandle(t *testing.T, h *Handle) (int, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.Wait(ctx)
}

// =============================================================================
// Run
// =============================================================================

// TestRunner_Run_ReturnsResult verifies the synchronous path
// Given: A task returning 42
// When: Run is called
// Then: 42 is returned with no error
func TestRunner_Run_ReturnsResult(t *testing.T) {
	// Arrange
	r := newTestRunner(t, RunnerConfig{Workers: 2})

	// Act
	got, err := r.Run(context.Background(), constTask(42))

	// Assert
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Run() = %d, want 42", got)
	}
}

// TestRunner_Run_NoInstrumentationNoHooks verifies plain tasks get the no-op hooks
// Given: A task that implements only Executable
// When: Run is called
// Then: NopHooks is used, the result is Execute's and no hook failure is counted
func TestRunner_Run_NoInstrumentationNoHooks(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1})
	task := constTask(7)

	if _, ok := HooksOf(task).(NopHooks); !ok {
		t.Fatalf("HooksOf(plain task) = %T, want NopHooks", HooksOf(task))
	}

	got, err := r.Run(context.Background(), task)

	if err != nil || got != 7 {
		t.Fatalf("Run() = (%d, %v), want (7, nil)", got, err)
	}
	if s := r.Stats(); s.HookFailures != 0 {
		t.Errorf("HookFailures = %d, want 0", s.HookFailures)
	}
}

// TestRunner_Run_HookOrder verifies before -> execute -> after on the task's own hooks
// Given: A task implementing Hooks
// When: Run is called
// Then: Events are before, execute, after
func TestRunner_Run_HookOrder(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1})
	task := &hookedTask{result: 1}

	if _, err := r.Run(context.Background(), task); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"before", "execute", "after"}
	got := task.Events()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

// TestRunner_Run_InstrumentedFailure verifies error propagation with instrumentation
// Given: An instrumented task whose Execute fails with "boom"
// When: Run is called
// Then: The error is returned unchanged and both records were written in order
func TestRunner_Run_InstrumentedFailure(t *testing.T) {
	// Arrange
	r := newTestRunner(t, RunnerConfig{Workers: 1})
	logger := &recordingLogger{}
	boom := errors.New("boom")
	task := WithLogging(NamedTask("failing-query", func(ctx context.Context) (int, error) {
		return 0, boom
	}), logger)

	// Act
	_, err := r.Run(context.Background(), task)

	// Assert
	if err != boom {
		t.Fatalf("Run() error = %v, want boom verbatim", err)
	}
	want := []string{"before executing failing-query", "after executing failing-query"}
	if got := logger.Messages(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("records = %v, want %v", got, want)
	}
}

// TestRunner_Run_PanicBecomesError verifies a panicking Execute is surfaced as an error
// Given: A task that panics and has hooks
// When: Run is called
// Then: A *PanicError is returned, the after hook still ran, the panic handler saw it
func TestRunner_Run_PanicBecomesError(t *testing.T) {
	panics := NewTestPanicHandler()
	metrics := NewTestMetrics()
	r := newTestRunner(t, RunnerConfig{Workers: 1, PanicHandler: panics, Metrics: metrics})

	var after atomic.Bool
	task := Instrument(NamedTask("explode", func(ctx context.Context) (int, error) {
		panic("kaboom")
	}), instrumentationFuncs{after: func() { after.Store(true) }})

	_, err := r.Run(context.Background(), task)

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Run() error = %v, want *PanicError", err)
	}
	if pe.Value != "kaboom" {
		t.Errorf("PanicError.Value = %v, want kaboom", pe.Value)
	}
	if !after.Load() {
		t.Error("after hook did not run after panic")
	}
	if panics.CallCount() != 1 {
		t.Errorf("panic handler calls = %d, want 1", panics.CallCount())
	}
	if calls := panics.GetCalls(); calls[0].WorkerID != -1 {
		t.Errorf("WorkerID = %d, want -1 for inline run", calls[0].WorkerID)
	}
	if metrics.Panics() != 1 || metrics.Failures(ModeSync) != 1 {
		t.Errorf("metrics panics=%d failures=%d, want 1/1", metrics.Panics(), metrics.Failures(ModeSync))
	}
}

// instrumentationFuncs is a closure-based Instrumentation for tests.
type instrumentationFuncs struct {
	before func()
	after  func()
	err    error
}

func (f instrumentationFuncs) Before(ctx context.Context, desc string) error {
	if f.before != nil {
		f.before()
	}
	return f.err
}

func (f instrumentationFuncs) After(ctx context.Context, desc string) error {
	if f.after != nil {
		f.after()
	}
	return f.err
}

// TestRunner_HookFailureIsolated verifies hook failures never replace the result
// Given: An instrumentation whose hooks return an error, and one whose hook panics
// When: The task is run
// Then: The task's result is returned and each failure reaches the HookFailureHandler
func TestRunner_HookFailureIsolated(t *testing.T) {
	hooks := &TestHookFailureHandler{}
	metrics := NewTestMetrics()
	r := newTestRunner(t, RunnerConfig{Workers: 1, HookFailureHandler: hooks, Metrics: metrics})

	sinkErr := errors.New("sink unavailable")
	failing := Instrument(constTask(5), instrumentationFuncs{err: sinkErr})

	got, err := r.Run(context.Background(), failing)
	if err != nil || got != 5 {
		t.Fatalf("Run() = (%d, %v), want (5, nil)", got, err)
	}

	failures := hooks.Failures()
	if len(failures) != 2 {
		t.Fatalf("hook failures = %d, want 2", len(failures))
	}
	if failures[0].Hook != "before" || failures[1].Hook != "after" {
		t.Errorf("hooks = %s,%s want before,after", failures[0].Hook, failures[1].Hook)
	}
	if !errors.Is(failures[0], sinkErr) {
		t.Errorf("failure does not wrap sink error: %v", failures[0])
	}

	panicking := Instrument(constTask(6), instrumentationFuncs{before: func() { panic("log sink") }})
	got, err = r.Run(context.Background(), panicking)
	if err != nil || got != 6 {
		t.Fatalf("Run() = (%d, %v), want (6, nil)", got, err)
	}
	if n := len(hooks.Failures()); n != 3 {
		t.Errorf("hook failures = %d, want 3", n)
	}
	if n := len(metrics.HookFailures()); n != 3 {
		t.Errorf("hook failure metrics = %d, want 3", n)
	}
}

// TestRunner_GetCurrentRunner verifies the runner is reachable from the task context
// Given: A task that inspects its context
// When: It runs via Run and RunAsync
// Then: GetCurrentRunner returns the runner, and WorkerID is set only for async
func TestRunner_GetCurrentRunner(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1})

	var seen atomic.Pointer[Runner]
	var worker atomic.Int32
	task := ExecutableFunc(func(ctx context.Context) (int, error) {
		seen.Store(GetCurrentRunner(ctx))
		worker.Store(int32(WorkerID(ctx)))
		return 0, nil
	})

	if _, err := r.Run(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	if seen.Load() != r {
		t.Error("GetCurrentRunner inside Run did not return the runner")
	}
	if worker.Load() != -1 {
		t.Errorf("WorkerID inside Run = %d, want -1", worker.Load())
	}

	h, err := r.RunAsync(context.Background(), task)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := waitHandle(t, h); err != nil {
		t.Fatal(err)
	}
	if seen.Load() != r {
		t.Error("GetCurrentRunner inside RunAsync did not return the runner")
	}
	if worker.Load() != 0 {
		t.Errorf("WorkerID inside RunAsync = %d, want 0", worker.Load())
	}
}

// =============================================================================
// RunAsync
// =============================================================================

// TestRunner_RunAsync_Result verifies the async path returns the same result
// Given: A task returning 42
// When: RunAsync is called and the handle awaited
// Then: 42 is returned, the handle is Completed and matches Run's result
func TestRunner_RunAsync_Result(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 2})
	task := constTask(42)

	h, err := r.RunAsync(context.Background(), task)
	if err != nil {
		t.Fatalf("RunAsync() error = %v", err)
	}
	async, err := waitHandle(t, h)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	inline, err := r.Run(context.Background(), task)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if async != 42 || inline != async {
		t.Errorf("async = %d, inline = %d, want both 42", async, inline)
	}
	if h.State() != HandleCompleted {
		t.Errorf("State() = %v, want completed", h.State())
	}
	if res, err, ok := h.Result(); !ok || err != nil || res != 42 {
		t.Errorf("Result() = (%d, %v, %v), want (42, nil, true)", res, err, ok)
	}
}

// TestRunner_RunAsync_Failure verifies the handle carries the original error
// Given: An async task failing with "boom" and its own hooks
// When: The handle is awaited
// Then: Wait returns boom, the state is Failed and both hooks ran
func TestRunner_RunAsync_Failure(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1})
	boom := errors.New("boom")
	task := &hookedTask{err: boom}

	h, err := r.RunAsync(context.Background(), task)
	if err != nil {
		t.Fatal(err)
	}
	_, err = waitHandle(t, h)

	if !errors.Is(err, boom) {
		t.Fatalf("Wait() error = %v, want boom", err)
	}
	if h.State() != HandleFailed {
		t.Errorf("State() = %v, want failed", h.State())
	}
	if got := task.Events(); fmt.Sprint(got) != "[before execute after]" {
		t.Errorf("events = %v", got)
	}
}

// TestRunner_RunAsync_FIFODispatch verifies single-worker dispatch order
// Given: A runner with 1 worker and 20 async submissions
// When: All handles are awaited
// Then: Tasks started in submission order
func TestRunner_RunAsync_FIFODispatch(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1})

	var mu sync.Mutex
	var order []int
	handles := make([]*Handle, 0, 20)
	for i := range 20 {
		h, err := r.RunAsync(context.Background(), ExecutableFunc(func(ctx context.Context) (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}))
		if err != nil {
			t.Fatal(err)
		}
		handles = append(handles, h)
	}

	for i, h := range handles {
		got, err := waitHandle(t, h)
		if err != nil || got != i {
			t.Fatalf("handle %d = (%d, %v)", i, got, err)
		}
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

// TestRunner_RunAsync_Concurrent verifies concurrent submission safety
// Given: 8 goroutines each submitting 50 tasks
// When: All handles are awaited
// Then: Every task ran exactly once
func TestRunner_RunAsync_Concurrent(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 4})
	var executed atomic.Int32

	var wg sync.WaitGroup
	errCh := make(chan error, 8*50)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h, err := r.RunAsync(context.Background(), ExecutableFunc(func(ctx context.Context) (int, error) {
					executed.Add(1)
					return 1, nil
				}))
				if err != nil {
					errCh <- err
					continue
				}
				if _, err := h.Wait(context.Background()); err != nil {
					errCh <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("unexpected error: %v", err)
	}
	if got := executed.Load(); got != 400 {
		t.Errorf("executed = %d, want 400", got)
	}
}

// TestRunner_RunAsync_QueueFull verifies bounded queue rejection
// Given: 1 worker blocked and a queue bounded to 1 item already holding one
// When: Another task is submitted
// Then: RunAsync fails with ErrQueueFull and the task never runs
func TestRunner_RunAsync_QueueFull(t *testing.T) {
	rejected := &TestRejectedTaskHandler{}
	r := newTestRunner(t, RunnerConfig{Workers: 1, QueueSize: 1, RejectedTaskHandler: rejected})

	release := make(chan struct{})
	started := make(chan struct{})
	blocker, err := r.RunAsync(context.Background(), ExecutableFunc(func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	<-started

	queued, err := r.RunAsync(context.Background(), constTask(1))
	if err != nil {
		t.Fatalf("second submission error = %v", err)
	}

	var ran atomic.Bool
	_, err = r.RunAsync(context.Background(), ExecutableFunc(func(ctx context.Context) (int, error) {
		ran.Store(true)
		return 0, nil
	}))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("third submission error = %v, want ErrQueueFull", err)
	}
	if !IsRejected(err) {
		t.Error("IsRejected(ErrQueueFull) = false")
	}

	close(release)
	waitHandle(t, blocker)
	waitHandle(t, queued)

	if ran.Load() {
		t.Error("rejected task executed")
	}
	if rejected.Count() != 1 {
		t.Errorf("rejections = %d, want 1", rejected.Count())
	}
}

// =============================================================================
// Handle
// =============================================================================

// TestHandle_CancelBeforeStart verifies a queued task can be cancelled
// Given: 1 busy worker and a second task queued behind it
// When: The queued handle is cancelled
// Then: Cancel returns true, Wait returns ErrCancelled and the task never runs
func TestHandle_CancelBeforeStart(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	blocker, _ := r.RunAsync(context.Background(), ExecutableFunc(func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	}))
	<-started

	var ran atomic.Bool
	queued, err := r.RunAsync(context.Background(), ExecutableFunc(func(ctx context.Context) (int, error) {
		ran.Store(true)
		return 0, nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	if queued.IsDone() {
		t.Fatal("queued handle reported done before it ran")
	}

	if !queued.Cancel() {
		t.Fatal("Cancel() = false for a queued task")
	}
	if queued.Cancel() {
		t.Error("second Cancel() = true, want false")
	}

	close(release)
	waitHandle(t, blocker)

	if _, err := waitHandle(t, queued); !errors.Is(err, ErrCancelled) {
		t.Errorf("Wait() error = %v, want ErrCancelled", err)
	}
	if queued.State() != HandleCancelled {
		t.Errorf("State() = %v, want cancelled", queued.State())
	}

	// Give the worker a chance to pop the cancelled item
	r.Shutdown()
	if ran.Load() {
		t.Error("cancelled task executed")
	}
}

// TestHandle_CancelAfterFinish verifies Cancel is a no-op once complete
func TestHandle_CancelAfterFinish(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1})
	h, _ := r.RunAsync(context.Background(), constTask(3))
	waitHandle(t, h)

	if h.Cancel() {
		t.Error("Cancel() after completion = true")
	}
	if got, _ := waitHandle(t, h); got != 3 {
		t.Errorf("result = %d, want 3", got)
	}
}

// TestHandle_WaitContextTimeout verifies the wait is bounded by ctx, not the task
func TestHandle_WaitContextTimeout(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1})
	release := make(chan struct{})
	h, _ := r.RunAsync(context.Background(), ExecutableFunc(func(ctx context.Context) (int, error) {
		<-release
		return 9, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := h.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}

	close(release)
	if got, err := waitHandle(t, h); err != nil || got != 9 {
		t.Errorf("Wait() = (%d, %v), want (9, nil)", got, err)
	}
}

// =============================================================================
// Shutdown
// =============================================================================

// TestRunner_Shutdown_DrainsAccepted verifies accepted work completes
// Given: 10 slow async tasks on 2 workers
// When: Shutdown is called
// Then: All 10 complete and Shutdown returns nil
func TestRunner_Shutdown_DrainsAccepted(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 2})
	var executed atomic.Int32

	handles := make([]*Handle, 0, 10)
	for range 10 {
		h, err := r.RunAsync(context.Background(), ExecutableFunc(func(ctx context.Context) (int, error) {
			time.Sleep(10 * time.Millisecond)
			executed.Add(1)
			return 1, nil
		}))
		if err != nil {
			t.Fatal(err)
		}
		handles = append(handles, h)
	}

	if err := r.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if got := executed.Load(); got != 10 {
		t.Errorf("executed = %d, want 10", got)
	}
	for _, h := range handles {
		if h.State() != HandleCompleted {
			t.Errorf("handle state = %v, want completed", h.State())
		}
	}
	if r.Pool().IsRunning() {
		t.Error("pool still running after Shutdown")
	}

	// Second call is a no-op
	if err := r.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

// TestRunner_SubmitAfterShutdown verifies closed runners reject everything
// Given: A shut down runner
// When: Run and RunAsync are called
// Then: Both fail with ErrRunnerClosed and the task never executes
func TestRunner_SubmitAfterShutdown(t *testing.T) {
	metrics := NewTestMetrics()
	r := newTestRunner(t, RunnerConfig{Workers: 1, Metrics: metrics})
	r.Shutdown()

	var ran atomic.Bool
	task := ExecutableFunc(func(ctx context.Context) (int, error) {
		ran.Store(true)
		return 1, nil
	})

	if _, err := r.Run(context.Background(), task); !errors.Is(err, ErrRunnerClosed) {
		t.Errorf("Run() error = %v, want ErrRunnerClosed", err)
	}
	h, err := r.RunAsync(context.Background(), task)
	if !errors.Is(err, ErrRunnerClosed) {
		t.Errorf("RunAsync() error = %v, want ErrRunnerClosed", err)
	}
	if h != nil {
		t.Error("RunAsync() returned a handle after shutdown")
	}

	time.Sleep(10 * time.Millisecond)
	if ran.Load() {
		t.Error("task executed after shutdown")
	}
	if !r.IsClosed() {
		t.Error("IsClosed() = false after Shutdown")
	}
	if got := r.Stats().Rejected; got != 2 {
		t.Errorf("Rejected = %d, want 2", got)
	}
	if got := len(metrics.Rejections()); got != 2 {
		t.Errorf("rejection metrics = %d, want 2", got)
	}
}

// TestRunner_Shutdown_TimeoutCancelsQueued verifies the grace period
// Given: 1 worker blocked past the grace period and 3 tasks queued behind it
// When: Shutdown is called with a 50ms grace period
// Then: Shutdown wraps ErrShutdownTimeout and the queued handles are cancelled
func TestRunner_Shutdown_TimeoutCancelsQueued(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1, ShutdownTimeout: 50 * time.Millisecond})

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	blocker, _ := r.RunAsync(context.Background(), ExecutableFunc(func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	}))
	<-started

	queued := make([]*Handle, 0, 3)
	for range 3 {
		h, err := r.RunAsync(context.Background(), constTask(1))
		if err != nil {
			t.Fatal(err)
		}
		queued = append(queued, h)
	}

	err := r.Shutdown()
	if !errors.Is(err, ErrShutdownTimeout) {
		t.Fatalf("Shutdown() error = %v, want ErrShutdownTimeout", err)
	}

	for i, h := range queued {
		if h.State() != HandleCancelled {
			t.Errorf("queued[%d] state = %v, want cancelled", i, h.State())
		}
	}
	if blocker.State() != HandleRunning {
		t.Errorf("blocker state = %v, want running", blocker.State())
	}
}

// =============================================================================
// Observability
// =============================================================================

// TestRunner_StatsAndHistory verifies counters and execution records
// Given: One successful sync run and one failing async run
// When: Stats and RecentTasks are read
// Then: Counters and newest-first records reflect both executions
func TestRunner_StatsAndHistory(t *testing.T) {
	metrics := NewTestMetrics()
	r := newTestRunner(t, RunnerConfig{Name: "stats", Workers: 1, Metrics: metrics})

	if _, err := r.Run(context.Background(), NamedTask("ok", func(ctx context.Context) (int, error) {
		return 1, nil
	})); err != nil {
		t.Fatal(err)
	}
	h, _ := r.RunAsync(context.Background(), NamedTask("bad", func(ctx context.Context) (int, error) {
		return 0, errors.New("bad")
	}))
	waitHandle(t, h)

	stats := r.Stats()
	if stats.Name != "stats" || stats.Completed != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.LastTaskName != "bad" {
		t.Errorf("LastTaskName = %q, want bad", stats.LastTaskName)
	}

	recent := r.RecentTasks(0)
	if len(recent) != 2 {
		t.Fatalf("RecentTasks = %d, want 2", len(recent))
	}
	if recent[0].Name != "bad" || recent[0].Mode != ModeAsync || recent[0].Err == nil {
		t.Errorf("recent[0] = %+v", recent[0])
	}
	if recent[1].Name != "ok" || recent[1].Mode != ModeSync || recent[1].Result != 1 {
		t.Errorf("recent[1] = %+v", recent[1])
	}
	if metrics.Durations(ModeSync) != 1 || metrics.Durations(ModeAsync) != 1 {
		t.Error("duration metrics not recorded for both modes")
	}
}

// TestRunner_NilTask verifies nil tasks are refused without side effects
func TestRunner_NilTask(t *testing.T) {
	r := newTestRunner(t, RunnerConfig{Workers: 1})

	if _, err := r.Run(context.Background(), nil); err == nil {
		t.Error("Run(nil) error = nil")
	}
	if _, err := r.RunAsync(context.Background(), nil); err == nil {
		t.Error("RunAsync(nil) error = nil")
	}
}

// panickingMetrics fails while recording a duration, after the task has run.
type panickingMetrics struct {
	*TestMetrics
}

func (m panickingMetrics) RecordTaskDuration(runnerName string, mode string, duration time.Duration) {
	panic("duration sink unavailable")
}

// TestRunner_RunAsync_MetricsPanicResolvesHandle verifies a broken Metrics
// cannot strand a waiter
// Given: A Metrics whose RecordTaskDuration panics
// When: An async task returning 7 runs
// Then: Wait returns 7, the handle is completed and the pool keeps serving
func TestRunner_RunAsync_MetricsPanicResolvesHandle(t *testing.T) {
	panics := NewTestPanicHandler()
	r := newTestRunner(t, RunnerConfig{
		Workers:      1,
		Metrics:      panickingMetrics{NewTestMetrics()},
		PanicHandler: panics,
	})

	h, err := r.RunAsync(context.Background(), constTask(7))
	if err != nil {
		t.Fatal(err)
	}

	result, err := waitHandle(t, h)
	if err != nil || result != 7 {
		t.Fatalf("Wait() = (%d, %v), want (7, nil)", result, err)
	}
	if h.State() != HandleCompleted {
		t.Errorf("state = %v, want completed", h.State())
	}
	if got := r.Stats().Completed; got != 1 {
		t.Errorf("Completed = %d, want 1", got)
	}

	// The worker survived the recording panic
	h2, err := r.RunAsync(context.Background(), constTask(8))
	if err != nil {
		t.Fatal(err)
	}
	if result, _ := waitHandle(t, h2); result != 8 {
		t.Errorf("second Wait() = %d, want 8", result)
	}
}

// TestRunner_SubmitRacingShutdown verifies submissions racing Shutdown
// Given: 8 goroutines each submitting 50 tasks while Shutdown runs
// When: Shutdown returns
// Then: Every submission was either rejected with ErrRunnerClosed or accepted
// and completed, and the executed count equals the accepted count
func TestRunner_SubmitRacingShutdown(t *testing.T) {
	for iter := range 50 {
		r := newTestRunner(t, RunnerConfig{Workers: 4})
		var executed atomic.Int32
		task := ExecutableFunc(func(ctx context.Context) (int, error) {
			executed.Add(1)
			return 1, nil
		})

		var (
			mu       sync.Mutex
			accepted []*Handle
			wg       sync.WaitGroup
		)
		start := make(chan struct{})
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for range 50 {
					h, err := r.RunAsync(context.Background(), task)
					if err != nil {
						if !errors.Is(err, ErrRunnerClosed) {
							t.Errorf("iter %d: RunAsync() error = %v, want ErrRunnerClosed", iter, err)
						}
						continue
					}
					mu.Lock()
					accepted = append(accepted, h)
					mu.Unlock()
				}
			}()
		}

		close(start)
		if err := r.Shutdown(); err != nil {
			t.Fatalf("iter %d: Shutdown() error = %v", iter, err)
		}
		wg.Wait()

		for _, h := range accepted {
			if h.State() != HandleCompleted {
				t.Fatalf("iter %d: accepted handle state = %v, want completed", iter, h.State())
			}
		}
		if got := int(executed.Load()); got != len(accepted) {
			t.Fatalf("iter %d: executed = %d, accepted = %d", iter, got, len(accepted))
		}
	}
}
