package core

// CachingState is the state of a Config's caching flag.
type CachingState int

const (
	CachingOff CachingState = iota
	CachingOn
)

func (s CachingState) String() string {
	if s == CachingOn {
		return "caching-on"
	}
	return "caching-off"
}

// CacheSwitch is the hook point of the subsystem that owns the cache. The
// Config calls exactly one of its methods per actual transition.
type CacheSwitch interface {
	EnableCaching()
	DisableCaching()
}

// CacheSwitchFuncs adapts two closures to CacheSwitch. Nil fields are skipped.
type CacheSwitchFuncs struct {
	Enable  func()
	Disable func()
}

func (f CacheSwitchFuncs) EnableCaching() {
	if f.Enable != nil {
		f.Enable()
	}
}

func (f CacheSwitchFuncs) DisableCaching() {
	if f.Disable != nil {
		f.Disable()
	}
}

// Config holds the caching flag for one configuration scope.
//
// SetCachingEnabled is a guarded setter: it is a no-op when the value does
// not change, and fires the CacheSwitch only on an actual transition.
// Config is meant for a single owner and is not safe for concurrent
// writers; an owner sharing it must serialize writes itself.
type Config struct {
	name    string
	caching bool
	sw      CacheSwitch
	logger  Logger
}

// ConfigOption configures a Config at construction.
type ConfigOption func(c *Config)

// WithCaching sets the initial flag without firing the switch.
func WithCaching(enabled bool) ConfigOption {
	return func(c *Config) {
		c.caching = enabled
	}
}

// WithCacheSwitch installs the transition actions.
func WithCacheSwitch(sw CacheSwitch) ConfigOption {
	return func(c *Config) {
		c.sw = sw
	}
}

// WithConfigLogger sets the logger for diagnostic read/transition records.
func WithConfigLogger(logger Logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// NewConfig creates the Config for the named scope. Caching starts off
// unless WithCaching says otherwise.
func NewConfig(name string, opts ...ConfigOption) *Config {
	c := &Config{name: name}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = NewNoOpLogger()
	}
	if c.sw == nil {
		c.sw = CacheSwitchFuncs{}
	}
	return c
}

// NewDefaultConfig creates a default-scope Config with caching off. The
// caller owns it and decides how widely to share it.
func NewDefaultConfig(opts ...ConfigOption) *Config {
	return NewConfig("", append([]ConfigOption{WithCaching(false)}, opts...)...)
}

// Name returns the scope name; empty for the default scope.
func (c *Config) Name() string { return c.name }

// IsDefault reports whether c is the default scope.
func (c *Config) IsDefault() bool { return c.name == "" }

// CachingEnabled reads the flag. The debug record it emits is diagnostic only.
func (c *Config) CachingEnabled() bool {
	c.logger.Debug("reading caching flag", F("scope", c.name), F("caching", c.caching))
	return c.caching
}

// State returns the flag as a CachingState.
func (c *Config) State() CachingState {
	if c.caching {
		return CachingOn
	}
	return CachingOff
}

// SetCachingEnabled stores enabled. Setting the current value does nothing;
// otherwise the matching CacheSwitch action runs first and the value is
// stored after it returns.
func (c *Config) SetCachingEnabled(enabled bool) {
	if enabled == c.caching {
		return
	}
	c.logger.Debug("switching caching", F("scope", c.name), F("from", c.caching), F("to", enabled))
	if enabled {
		c.sw.EnableCaching()
	} else {
		c.sw.DisableCaching()
	}
	c.caching = enabled
}
