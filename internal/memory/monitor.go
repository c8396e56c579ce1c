package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"vidmerge/internal/logging"
	"vidmerge/internal/metrics"
)

var log = logging.Named("memory")

// MonitorConfig holds the backpressure thresholds.
type MonitorConfig struct {
	// LimitBytes is the reference limit (0 = use GOMEMLIMIT)
	LimitBytes int64

	// CriticalWaterMark is the usage ratio at which new merges are refused
	CriticalWaterMark float64

	// HighWaterMark is the usage ratio below which merges resume
	HighWaterMark float64

	// CheckInterval is how often heap usage is sampled
	CheckInterval time.Duration
}

// DefaultMonitorConfig returns the default thresholds.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CriticalWaterMark: 0.9,
		HighWaterMark:     0.75,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage and reports when the process is under
// memory pressure. The paused state has hysteresis: it is entered at the
// critical mark and left below the high mark.
type Monitor struct {
	config MonitorConfig
	limit  int64
	alloc  func() uint64

	mu      sync.RWMutex
	current uint64
	paused  bool

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a monitor. Without a limit it never reports pressure.
func NewMonitor(config MonitorConfig) *Monitor {
	defaults := DefaultMonitorConfig()
	if config.CriticalWaterMark <= 0 || config.CriticalWaterMark > 1 {
		config.CriticalWaterMark = defaults.CriticalWaterMark
	}
	if config.HighWaterMark <= 0 || config.HighWaterMark > config.CriticalWaterMark {
		config.HighWaterMark = config.CriticalWaterMark
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = defaults.CheckInterval
	}

	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
		}
	}

	if limit == 0 {
		log.Debug("No memory limit configured, merge backpressure disabled")
	} else {
		log.Info("Merge backpressure at %.0f%% of %s", config.CriticalWaterMark*100, formatBytes(limit))
	}

	return &Monitor{
		config: config,
		limit:  limit,
		alloc:  heapAlloc,
		stop:   make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// Start begins sampling in the background.
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.loop()
}

// Stop ends sampling. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	m.check()
	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) check() {
	if m.limit == 0 {
		return
	}

	current := m.alloc()
	usage := float64(current) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = current
	switch {
	case !m.paused && usage >= m.config.CriticalWaterMark:
		m.paused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryPressureEvents.Inc()
		log.Warn("Memory critical (%.1f%% of limit), refusing new merges", usage*100)
		go runtime.GC()
	case m.paused && usage < m.config.HighWaterMark:
		m.paused = false
		metrics.MemoryPaused.Set(0)
		log.Info("Memory recovered (%.1f%% of limit), accepting merges", usage*100)
	}
}

// IsPaused reports whether new merges should be refused.
func (m *Monitor) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Usage returns the last sampled heap usage as a fraction of the limit.
// Returns 0 if no limit is configured
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
