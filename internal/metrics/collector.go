package metrics

import (
	"context"
	"time"

	"autogallery/internal/logging"
)

// CacheStats is a point-in-time view of the cache tree.
type CacheStats struct {
	Artifacts int64
	Bytes     int64
}

// StatsProvider is implemented by anything that can measure the cache.
type StatsProvider interface {
	CacheStats(ctx context.Context) (CacheStats, error)
}

// FailureCounter reports the size of the thumbnail failure ledger.
type FailureCounter interface {
	FailureCount(ctx context.Context) (int64, error)
}

// Collector periodically refreshes gauges that are too expensive to update
// inline.
type Collector struct {
	stats    StatsProvider
	failures FailureCounter
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
}

// NewCollector creates a collector. failures may be nil.
func NewCollector(stats StatsProvider, failures FailureCounter, interval time.Duration) *Collector {
	return &Collector{
		stats:    stats,
		failures: failures,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the collection loop.
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop ends the loop and waits for an in-flight collection to finish.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.done
}

func (c *Collector) collectLoop() {
	defer close(c.done)
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
	ctx, cancel := context.WithTimeout(context.Background(), c.interval)
	defer cancel()

	if c.stats != nil {
		stats, err := c.stats.CacheStats(ctx)
		if err != nil {
			logging.Warn("metrics: cache stats failed: %v", err)
		} else {
			CacheArtifacts.Set(float64(stats.Artifacts))
			CacheSizeBytes.Set(float64(stats.Bytes))
		}
	}

	if c.failures != nil {
		n, err := c.failures.FailureCount(ctx)
		if err != nil {
			logging.Warn("metrics: failure count failed: %v", err)
		} else {
			DBFailuresRecorded.Set(float64(n))
		}
	}

	logging.Debug("metrics: collection done")
}
