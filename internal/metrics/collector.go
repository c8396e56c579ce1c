package metrics

import (
	"time"

	"vidmerge/internal/logging"
)

// SessionProvider reports mux capacity. *remux.Muxer implements it.
type SessionProvider interface {
	Active() int
	Available() error
}

// Collector periodically samples mux sessions into gauges.
type Collector struct {
	provider SessionProvider
	max      int
	interval time.Duration
	stopChan chan struct{}
}

// NewCollector creates a new metrics collector. maxSessions is exported
// as a constant gauge.
func NewCollector(provider SessionProvider, maxSessions int, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		max:      maxSessions,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}

	active := c.provider.Active()
	MuxSessionsActive.Set(float64(active))
	MuxSessionsMax.Set(float64(c.max))

	if err := c.provider.Available(); err != nil {
		MuxAvailable.Set(0)
	} else {
		MuxAvailable.Set(1)
	}

	logging.Debug("Metrics collected: mux sessions=%d/%d", active, c.max)
}
