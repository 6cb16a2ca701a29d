// Package execrunner runs integer-producing tasks either on the caller's
// goroutine or on a fixed pool of workers, with before/after hooks around
// every execution.
//
// # Quick Start
//
// Create a runner and shut it down when done:
//
//	runner := execrunner.NewRunner(execrunner.RunnerConfig{Workers: 4})
//	defer runner.Shutdown()
//
// Run executes inline and returns the task's result and error unchanged:
//
//	n, err := runner.Run(ctx, execrunner.ExecutableFunc(func(ctx context.Context) (int, error) {
//		return 42, nil
//	}))
//
// RunAsync queues the task and returns a Handle to await:
//
//	h, err := runner.RunAsync(ctx, task)
//	if err != nil {
//		return err // ErrRunnerClosed or ErrQueueFull
//	}
//	n, err := h.Wait(ctx)
//
// # Key Concepts
//
// Executable: the unit of work. Whatever Execute returns is what the caller
// sees; failures are never retried.
//
// Hooks: a task implementing BeforeExecute/AfterExecute gets them called
// around Execute, in that order, on success and on failure. A failing hook
// is reported to the HookFailureHandler and never changes the task outcome.
//
// Instrumentation: hook behavior composed onto any task with Instrument.
// WithLogging writes one record before and one after each execution.
//
// Config: a per-scope caching flag with a guarded setter. The switch fires
// only on an actual transition. There is no global default; create one with
// NewDefaultConfig and pass it where it is needed.
//
// # Shutdown
//
// Shutdown stops accepting work, lets accepted tasks finish within
// RunnerConfig.ShutdownTimeout and cancels whatever is still queued after
// that. Later submissions fail with ErrRunnerClosed.
package execrunner
