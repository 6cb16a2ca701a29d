package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:   "config",
		Usage:  "Print the resolved settings",
		Flags:  settingsFlags(),
		Action: ConfigAction,
	}
}

func ConfigAction(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Invalid settings: %v", err), 2)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "name:              %s\n", s.Name)
	fmt.Fprintf(w, "workers:           %d\n", s.Workers)
	fmt.Fprintf(w, "queue_size:        %d\n", s.QueueSize)
	fmt.Fprintf(w, "shutdown_timeout:  %s\n", s.ShutdownTimeout)
	fmt.Fprintf(w, "history_size:      %d\n", s.HistorySize)
	fmt.Fprintf(w, "caching:           %t\n", s.Caching)
	fmt.Fprintf(w, "log_level:         %s\n", s.LogLevel)
	fmt.Fprintf(w, "log_format:        %s\n", s.LogFormat)
	fmt.Fprintf(w, "metrics_namespace: %s\n", s.MetricsNamespace)
	return nil
}
