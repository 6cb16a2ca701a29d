package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Swind/go-exec-runner/core"
	promexp "github.com/Swind/go-exec-runner/observability/prometheus"
	"github.com/Swind/go-exec-runner/observability/zerologger"
	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

var errDemoFailure = errors.New("demo task failed")

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run a batch of demo tasks",

		Flags: append(settingsFlags(),
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Value:   5,
				Usage:   "Number of tasks; task i returns i",
			},
			&cli.BoolFlag{
				Name:  "async",
				Usage: "Submit with RunAsync instead of Run",
			},
			&cli.IntFlag{
				Name:  "fail-at",
				Value: -1,
				Usage: "Index of a task that returns an error",
			},
			&cli.BoolFlag{
				Name:  "dump-metrics",
				Usage: "Print the Prometheus text exposition after the run",
			},
		),

		Action: RunAction,
	}
}

// taskOutcome is one task's result as printed by the run command.
type taskOutcome struct {
	name   string
	result int
	err    error
}

func RunAction(c *cli.Context) error {
	// 1. Resolve settings
	s, err := loadSettings(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Invalid settings: %v", err), 2)
	}
	count := c.Int("count")
	if count < 0 {
		return cli.Exit("count must be non-negative", 2)
	}

	// 2. Wire logging, metrics and the runner
	logger := zerologger.New(c.App.ErrWriter, s.LogFormat, s.Level())

	reg := prom.NewRegistry()
	exporter, err := promexp.NewMetricsExporter(s.MetricsNamespace, reg, promexp.ExporterOptions{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to register metrics: %v", err), 1)
	}
	poller, err := promexp.NewSnapshotPoller(reg, time.Second)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to register snapshot gauges: %v", err), 1)
	}

	runner := core.NewRunner(s.RunnerConfig(logger, exporter))
	scope := newCacheScope(s.Name, logger)
	scope.SetCachingEnabled(s.Caching)

	poller.AddRunner(runner.Name(), runner)
	poller.AddPool(runner.Pool().ID(), runner.Pool())
	poller.AddConfig(scope.Name(), scope)
	poller.Start(c.Context)

	// 3. Run
	tasks := demoTasks(count, c.Int("fail-at"), logger)
	var outcomes []taskOutcome
	if c.Bool("async") {
		outcomes, err = runAsync(c.Context, runner, tasks)
	} else {
		outcomes, err = runSync(c.Context, runner, tasks)
	}

	shutdownErr := runner.Shutdown()
	poller.Stop()
	poller.CollectOnce()

	// 4. Report
	w := c.App.Writer
	for _, o := range outcomes {
		if o.err != nil {
			fmt.Fprintf(w, "%-10s error: %v\n", o.name, o.err)
			continue
		}
		fmt.Fprintf(w, "%-10s result: %d\n", o.name, o.result)
	}
	stats := runner.Stats()
	fmt.Fprintf(w, "completed=%d failed=%d rejected=%d hook_failures=%d caching=%s\n",
		stats.Completed, stats.Failed, stats.Rejected, stats.HookFailures, scope.State())

	if c.Bool("dump-metrics") {
		if err := dumpMetrics(w, reg); err != nil {
			return cli.Exit(fmt.Sprintf("Failed to dump metrics: %v", err), 1)
		}
	}

	if shutdownErr != nil {
		return cli.Exit(fmt.Sprintf("Shutdown incomplete: %v", shutdownErr), 1)
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("%d of %d tasks failed, first: %v", stats.Failed, count, err), 1)
	}
	return nil
}

// demoTasks builds count logged tasks; task i returns i, except failAt.
func demoTasks(count, failAt int, logger core.Logger) []core.Executable {
	tasks := make([]core.Executable, count)
	for i := range count {
		name := fmt.Sprintf("task-%d", i)
		tasks[i] = core.WithLogging(core.NamedTask(name, func(ctx context.Context) (int, error) {
			if i == failAt {
				return i, errors.Wrapf(errDemoFailure, "%s", name)
			}
			return i, nil
		}), logger)
	}
	return tasks
}

func runSync(ctx context.Context, runner *core.Runner, tasks []core.Executable) ([]taskOutcome, error) {
	outcomes := make([]taskOutcome, len(tasks))
	var first error
	for i, task := range tasks {
		result, err := runner.Run(ctx, task)
		outcomes[i] = taskOutcome{name: core.Describe(task), result: result, err: err}
		if err != nil && first == nil {
			first = err
		}
	}
	return outcomes, first
}

// runAsync submits every task, then waits on all handles. The returned error
// is the first task failure, if any; every outcome is filled either way.
func runAsync(ctx context.Context, runner *core.Runner, tasks []core.Executable) ([]taskOutcome, error) {
	outcomes := make([]taskOutcome, len(tasks))
	var g errgroup.Group

	for i, task := range tasks {
		outcomes[i].name = core.Describe(task)
		h, err := runner.RunAsync(ctx, task)
		if err != nil {
			outcomes[i].err = err
			g.Go(func() error { return err })
			continue
		}
		g.Go(func() error {
			result, err := h.Wait(ctx)
			outcomes[i].result, outcomes[i].err = result, err
			return err
		})
	}

	return outcomes, g.Wait()
}

// newCacheScope creates the runner's config scope; transitions are logged.
func newCacheScope(name string, logger core.Logger) *core.Config {
	return core.NewConfig(name,
		core.WithConfigLogger(logger),
		core.WithCacheSwitch(core.CacheSwitchFuncs{
			Enable:  func() { logger.Info("caching enabled", core.F("scope", name)) },
			Disable: func() { logger.Info("caching disabled", core.F("scope", name)) },
		}),
	)
}

func dumpMetrics(w io.Writer, reg *prom.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gather")
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrapf(err, "encode %s", mf.GetName())
		}
	}
	return nil
}
