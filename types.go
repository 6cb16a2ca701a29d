package execrunner

import "github.com/Swind/go-exec-runner/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the execrunner package for most use cases.

// Executable is the unit of work
type Executable = core.Executable

// ExecutableFunc adapts a function to Executable
type ExecutableFunc = core.ExecutableFunc

// Hooks are the before/after callbacks a task may implement
type Hooks = core.Hooks

// Instrumentation supplies hooks for a task it does not own
type Instrumentation = core.Instrumentation

// Instrumented pairs a task with an Instrumentation
type Instrumented = core.Instrumented

// Runner executes tasks inline or on its worker pool
type Runner = core.Runner

// RunnerConfig configures a Runner
type RunnerConfig = core.RunnerConfig

// Handle is the awaitable result of RunAsync
type Handle = core.Handle

// HandleState is the lifecycle state of a Handle
type HandleState = core.HandleState

// Config holds a scope's caching flag
type Config = core.Config

// CacheSwitch receives caching transitions
type CacheSwitch = core.CacheSwitch

// CacheSwitchFuncs adapts two closures to CacheSwitch
type CacheSwitchFuncs = core.CacheSwitchFuncs

// Logger is the logging interface used throughout
type Logger = core.Logger

// Handle states
const (
	HandlePending   = core.HandlePending
	HandleRunning   = core.HandleRunning
	HandleCompleted = core.HandleCompleted
	HandleFailed    = core.HandleFailed
	HandleCancelled = core.HandleCancelled
)

// Errors
var (
	ErrRunnerClosed    = core.ErrRunnerClosed
	ErrQueueFull       = core.ErrQueueFull
	ErrCancelled       = core.ErrCancelled
	ErrShutdownTimeout = core.ErrShutdownTimeout
)

// Constructors and helpers
var (
	NewRunner           = core.NewRunner
	DefaultRunnerConfig = core.DefaultRunnerConfig
	NewConfig           = core.NewConfig
	NewDefaultConfig    = core.NewDefaultConfig
	WithCaching         = core.WithCaching
	WithCacheSwitch     = core.WithCacheSwitch
	WithConfigLogger    = core.WithConfigLogger
	Instrument          = core.Instrument
	WithLogging         = core.WithLogging
	NamedTask           = core.NamedTask
	Describe            = core.Describe
	IsRejected          = core.IsRejected
	GetCurrentRunner    = core.GetCurrentRunner
)
