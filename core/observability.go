package core

import "time"

// TaskExecutionRecord describes one finished execution.
type TaskExecutionRecord struct {
	TaskID     TaskID
	Name       string
	RunnerName string
	Mode       string // ModeSync or ModeAsync
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Result     int
	Err        error
	Panicked   bool
}

// RunnerStats represents runtime observability state for a runner.
type RunnerStats struct {
	Name         string
	Type         string
	Pending      int
	Running      int
	Completed    int64
	Failed       int64
	Rejected     int64
	HookFailures int64
	Closed       bool
	LastTaskName string
	LastTaskAt   time.Time
}

// PoolStats represents runtime observability state for a worker pool.
type PoolStats struct {
	ID      string
	Workers int
	Queued  int
	Active  int
	Running bool
}
