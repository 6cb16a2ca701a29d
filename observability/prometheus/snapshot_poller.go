package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-exec-runner/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// RunnerSnapshotProvider provides current runner stats snapshots.
type RunnerSnapshotProvider interface {
	Stats() core.RunnerStats
}

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// ConfigSnapshotProvider reports a configuration scope's caching flag.
// *core.Config satisfies it.
type ConfigSnapshotProvider interface {
	CachingEnabled() bool
}

// SnapshotPoller periodically exports runner, pool and config snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	mu      sync.RWMutex
	runners map[string]RunnerSnapshotProvider
	pools   map[string]PoolSnapshotProvider
	configs map[string]ConfigSnapshotProvider

	runnerPending      *prom.GaugeVec
	runnerRunning      *prom.GaugeVec
	runnerCompleted    *prom.GaugeVec
	runnerFailed       *prom.GaugeVec
	runnerRejected     *prom.GaugeVec
	runnerHookFailures *prom.GaugeVec
	runnerClosed       *prom.GaugeVec

	poolQueued  *prom.GaugeVec
	poolActive  *prom.GaugeVec
	poolWorkers *prom.GaugeVec
	poolRunning *prom.GaugeVec

	configCaching *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: DefaultNamespace,
			Name:      name,
			Help:      help,
		}, labels)
	}

	p := &SnapshotPoller{
		interval: interval,
		runners:  make(map[string]RunnerSnapshotProvider),
		pools:    make(map[string]PoolSnapshotProvider),
		configs:  make(map[string]ConfigSnapshotProvider),

		runnerPending:      gauge("runner_pending", "Number of queued tasks per runner.", "runner", "type"),
		runnerRunning:      gauge("runner_running", "Number of running tasks per runner.", "runner", "type"),
		runnerCompleted:    gauge("runner_completed", "Runner completed task count snapshot.", "runner", "type"),
		runnerFailed:       gauge("runner_failed", "Runner failed task count snapshot.", "runner", "type"),
		runnerRejected:     gauge("runner_rejected", "Runner rejected submission count snapshot.", "runner", "type"),
		runnerHookFailures: gauge("runner_hook_failures", "Runner hook failure count snapshot.", "runner", "type"),
		runnerClosed:       gauge("runner_closed", "Runner closed state (1=closed, 0=open).", "runner", "type"),

		poolQueued:  gauge("pool_queued", "Queued tasks per pool.", "pool"),
		poolActive:  gauge("pool_active", "Active tasks per pool.", "pool"),
		poolWorkers: gauge("pool_workers", "Worker count per pool.", "pool"),
		poolRunning: gauge("pool_running", "Pool running state (1=running, 0=stopped).", "pool"),

		configCaching: gauge("config_caching_enabled", "Caching flag per configuration scope (1=on, 0=off).", "scope"),
	}

	for _, g := range []**prom.GaugeVec{
		&p.runnerPending, &p.runnerRunning, &p.runnerCompleted, &p.runnerFailed,
		&p.runnerRejected, &p.runnerHookFailures, &p.runnerClosed,
		&p.poolQueued, &p.poolActive, &p.poolWorkers, &p.poolRunning,
		&p.configCaching,
	} {
		registered, err := registerCollector(reg, *g)
		if err != nil {
			return nil, err
		}
		*g = registered
	}

	return p, nil
}

// AddRunner adds or replaces a runner snapshot provider by name.
func (p *SnapshotPoller) AddRunner(name string, provider RunnerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.mu.Lock()
	p.runners[normalizeLabel(name, "runner")] = provider
	p.mu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.mu.Lock()
	p.pools[normalizeLabel(name, "pool")] = provider
	p.mu.Unlock()
}

// AddConfig adds or replaces a config scope provider. An empty scope is
// exported as "default".
func (p *SnapshotPoller) AddConfig(scope string, provider ConfigSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.mu.Lock()
	p.configs[normalizeLabel(scope, "default")] = provider
	p.mu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

// CollectOnce takes one snapshot of every provider synchronously.
func (p *SnapshotPoller) CollectOnce() {
	if p == nil {
		return
	}
	p.collectOnce()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for name, provider := range p.runners {
		stats := provider.Stats()
		typeLabel := normalizeLabel(stats.Type, "unknown")
		p.runnerPending.WithLabelValues(name, typeLabel).Set(float64(stats.Pending))
		p.runnerRunning.WithLabelValues(name, typeLabel).Set(float64(stats.Running))
		p.runnerCompleted.WithLabelValues(name, typeLabel).Set(float64(stats.Completed))
		p.runnerFailed.WithLabelValues(name, typeLabel).Set(float64(stats.Failed))
		p.runnerRejected.WithLabelValues(name, typeLabel).Set(float64(stats.Rejected))
		p.runnerHookFailures.WithLabelValues(name, typeLabel).Set(float64(stats.HookFailures))
		p.runnerClosed.WithLabelValues(name, typeLabel).Set(boolGauge(stats.Closed))
	}

	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
	}

	for scope, provider := range p.configs {
		p.configCaching.WithLabelValues(scope).Set(boolGauge(provider.CachingEnabled()))
	}
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
