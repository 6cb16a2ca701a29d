// Command execrunner drives a core.Runner from the command line: it runs a
// batch of demo tasks synchronously or on the pool and reports results,
// runner statistics and, optionally, the Prometheus metrics they produced.
package main

import (
	"fmt"
	"os"

	"github.com/Swind/go-exec-runner/internal/settings"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "execrunner",
		Usage: "run tasks through a pooled runner",
		Commands: []*cli.Command{
			RunCommand(),
			ConfigCommand(),
		},
	}
}

// settingsFlags are shared by every command that resolves settings.
func settingsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a config file (yaml, json or toml)",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Runner name used in logs and metric labels",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Number of pool workers",
		},
		&cli.IntFlag{
			Name:  "queue-size",
			Usage: "Pool queue bound, 0 for unbounded",
		},
		&cli.DurationFlag{
			Name:  "shutdown-timeout",
			Usage: "Grace period for draining accepted tasks",
		},
		&cli.BoolFlag{
			Name:  "caching",
			Usage: "Enable caching on the runner's config scope",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "json or console",
		},
	}
}

// loadSettings resolves settings, letting explicitly set flags win.
func loadSettings(c *cli.Context) (*settings.Settings, error) {
	overrides := map[string]any{}
	if c.IsSet("name") {
		overrides[settings.KeyName] = c.String("name")
	}
	if c.IsSet("workers") {
		overrides[settings.KeyWorkers] = c.Int("workers")
	}
	if c.IsSet("queue-size") {
		overrides[settings.KeyQueueSize] = c.Int("queue-size")
	}
	if c.IsSet("shutdown-timeout") {
		overrides[settings.KeyShutdownTimeout] = c.Duration("shutdown-timeout")
	}
	if c.IsSet("caching") {
		overrides[settings.KeyCaching] = c.Bool("caching")
	}
	if c.IsSet("log-level") {
		overrides[settings.KeyLogLevel] = c.String("log-level")
	}
	if c.IsSet("log-format") {
		overrides[settings.KeyLogFormat] = c.String("log-format")
	}

	return settings.Load(settings.Options{
		ConfigFile: c.String("config"),
		Overrides:  overrides,
	})
}
