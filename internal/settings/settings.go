// Package settings loads process settings for the execrunner CLI from
// defaults, an optional config file, EXECRUNNER_* environment variables and
// explicit overrides, in increasing order of precedence.
package settings

import (
	"runtime"
	"strings"
	"time"

	"github.com/Swind/go-exec-runner/core"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable, e.g. EXECRUNNER_WORKERS.
	EnvPrefix = "EXECRUNNER"

	KeyName             = "name"
	KeyWorkers          = "workers"
	KeyQueueSize        = "queue_size"
	KeyShutdownTimeout  = "shutdown_timeout"
	KeyHistorySize      = "history_size"
	KeyCaching          = "caching"
	KeyLogLevel         = "log_level"
	KeyLogFormat        = "log_format"
	KeyMetricsNamespace = "metrics_namespace"
)

// Settings holds the resolved configuration.
type Settings struct {
	Name             string        `mapstructure:"name"`
	Workers          int           `mapstructure:"workers"`
	QueueSize        int           `mapstructure:"queue_size"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	HistorySize      int           `mapstructure:"history_size"`
	Caching          bool          `mapstructure:"caching"`
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"`
	MetricsNamespace string        `mapstructure:"metrics_namespace"`
}

// Options controls Load.
type Options struct {
	// ConfigFile is read when set; its extension picks the format.
	ConfigFile string
	// Overrides win over every other source, keyed by the Key* constants.
	Overrides map[string]any
}

// Load resolves settings and validates them.
func Load(opts Options) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", opts.ConfigFile)
		}
	}

	for key, value := range opts.Overrides {
		v.Set(key, value)
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyName, "execrunner")
	v.SetDefault(KeyWorkers, runtime.NumCPU())
	v.SetDefault(KeyQueueSize, 0)
	v.SetDefault(KeyShutdownTimeout, core.DefaultShutdownTimeout)
	v.SetDefault(KeyHistorySize, 100)
	v.SetDefault(KeyCaching, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyMetricsNamespace, "execrunner")
}

// Validate checks every field's range.
func (s *Settings) Validate() error {
	if s.Workers <= 0 {
		return errors.New("workers must be greater than 0")
	}
	if s.Workers > core.MaxWorkers {
		return errors.Errorf("workers must not exceed %d, got %d", core.MaxWorkers, s.Workers)
	}
	if s.QueueSize < 0 {
		return errors.New("queue_size must be non-negative")
	}
	if s.ShutdownTimeout < time.Second {
		return errors.New("shutdown_timeout must be at least 1 second")
	}
	if s.HistorySize < 0 {
		return errors.New("history_size must be non-negative")
	}
	if _, err := core.ParseLogLevel(s.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	switch s.LogFormat {
	case "json", "console":
	default:
		return errors.Errorf("log_format must be json or console, got %q", s.LogFormat)
	}
	return nil
}

// Level returns the parsed log level. Validate has already accepted it.
func (s *Settings) Level() core.LogLevel {
	level, _ := core.ParseLogLevel(s.LogLevel)
	return level
}

// RunnerConfig builds the runner configuration these settings describe.
func (s *Settings) RunnerConfig(logger core.Logger, metrics core.Metrics) core.RunnerConfig {
	cfg := core.DefaultRunnerConfig()
	cfg.Name = s.Name
	cfg.Workers = s.Workers
	cfg.QueueSize = s.QueueSize
	cfg.ShutdownTimeout = s.ShutdownTimeout
	cfg.HistorySize = s.HistorySize
	if logger != nil {
		cfg.Logger = logger
		cfg.HookFailureHandler = &core.LoggingHookFailureHandler{Logger: logger}
	}
	if metrics != nil {
		cfg.Metrics = metrics
	}
	return cfg
}
