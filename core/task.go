package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Executable is the unit of work: a single integer-producing operation.
// Whatever error Execute returns is handed back to the caller unchanged.
type Executable interface {
	Execute(ctx context.Context) (int, error)
}

// ExecutableFunc adapts a plain function to Executable.
type ExecutableFunc func(ctx context.Context) (int, error)

func (f ExecutableFunc) Execute(ctx context.Context) (int, error) {
	return f(ctx)
}

// =============================================================================
// Hooks: per-task lifecycle callbacks
// =============================================================================

// Hooks is implemented by tasks that want callbacks around Execute.
// Tasks that do not implement it get NopHooks.
//
// A returned error (or a panic) is a HookFailure. It is reported to the
// runner's HookFailureHandler and never replaces the task's own outcome.
type Hooks interface {
	BeforeExecute(ctx context.Context) error
	AfterExecute(ctx context.Context) error
}

// NopHooks is the default: both hooks do nothing.
type NopHooks struct{}

func (NopHooks) BeforeExecute(ctx context.Context) error { return nil }
func (NopHooks) AfterExecute(ctx context.Context) error  { return nil }

// HooksOf returns the hooks the runner will call for task.
func HooksOf(task Executable) Hooks {
	if h, ok := task.(Hooks); ok {
		return h
	}
	return NopHooks{}
}

// =============================================================================
// Instrumentation: before/after behavior composed onto any task
// =============================================================================

// Instrumentation supplies hook behavior for a task it does not own.
// desc is the textual description of the task (see Describe).
type Instrumentation interface {
	Before(ctx context.Context, desc string) error
	After(ctx context.Context, desc string) error
}

// Instrumented pairs a task with an Instrumentation. Execute goes to the
// inner task untouched; the hooks go to the instrumentation, or to the inner
// task's own hooks when no instrumentation is set.
type Instrumented struct {
	task  Executable
	instr Instrumentation
}

var (
	_ Executable = (*Instrumented)(nil)
	_ Hooks      = (*Instrumented)(nil)
)

// Instrument wraps task with instr. A nil instr keeps the task's own hooks.
func Instrument(task Executable, instr Instrumentation) *Instrumented {
	return &Instrumented{task: task, instr: instr}
}

// Unwrap returns the inner task.
func (t *Instrumented) Unwrap() Executable { return t.task }

func (t *Instrumented) Execute(ctx context.Context) (int, error) {
	return t.task.Execute(ctx)
}

func (t *Instrumented) BeforeExecute(ctx context.Context) error {
	if t.instr == nil {
		return HooksOf(t.task).BeforeExecute(ctx)
	}
	return t.instr.Before(ctx, Describe(t.task))
}

func (t *Instrumented) AfterExecute(ctx context.Context) error {
	if t.instr == nil {
		return HooksOf(t.task).AfterExecute(ctx)
	}
	return t.instr.After(ctx, Describe(t.task))
}

func (t *Instrumented) String() string { return Describe(t.task) }

// LoggingInstrumentation writes one record before and one after each execution.
type LoggingInstrumentation struct {
	Logger Logger
}

// NewLoggingInstrumentation returns an instrumentation logging through logger.
// A nil logger falls back to DefaultLogger.
func NewLoggingInstrumentation(logger Logger) *LoggingInstrumentation {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &LoggingInstrumentation{Logger: logger}
}

func (l *LoggingInstrumentation) Before(ctx context.Context, desc string) error {
	l.Logger.Info("before executing "+desc, F("task", desc), F("hook", "before"))
	return nil
}

func (l *LoggingInstrumentation) After(ctx context.Context, desc string) error {
	l.Logger.Info("after executing "+desc, F("task", desc), F("hook", "after"))
	return nil
}

// WithLogging is shorthand for Instrument(task, NewLoggingInstrumentation(logger)).
func WithLogging(task Executable, logger Logger) *Instrumented {
	return Instrument(task, NewLoggingInstrumentation(logger))
}

// =============================================================================
// Naming
// =============================================================================

type namedTask struct {
	name string
	fn   ExecutableFunc
}

func (t *namedTask) Execute(ctx context.Context) (int, error) { return t.fn(ctx) }
func (t *namedTask) String() string                           { return t.name }

// NamedTask gives fn a description used in hook records and history.
func NamedTask(name string, fn func(ctx context.Context) (int, error)) Executable {
	return &namedTask{name: name, fn: fn}
}

// Describe returns the textual description of a task: its String() when it
// has one, otherwise its Go type.
func Describe(task Executable) string {
	if task == nil {
		return "anonymous"
	}
	if s, ok := task.(fmt.Stringer); ok {
		if name := s.String(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("%T", task)
}

// =============================================================================
// TaskID
// =============================================================================

// TaskID identifies a single submission.
type TaskID uuid.UUID

// GenerateTaskID returns a new random TaskID.
func GenerateTaskID() TaskID {
	return TaskID(uuid.New())
}

func (id TaskID) String() string {
	return uuid.UUID(id).String()
}

func (id TaskID) IsZero() bool {
	return id == TaskID(uuid.Nil)
}

// =============================================================================
// Context Helper
// =============================================================================
type runnerKeyType struct{}

var runnerKey runnerKeyType

// GetCurrentRunner returns the Runner executing the task that owns ctx, or nil.
func GetCurrentRunner(ctx context.Context) *Runner {
	if v := ctx.Value(runnerKey); v != nil {
		return v.(*Runner)
	}
	return nil
}
