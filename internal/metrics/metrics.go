// Package metrics collects process-local counters for the validation
// pipeline and the marketplace importer.
package metrics

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Well-known counter names.
const (
	RowsValidated = "rows_validated"
	RowsFailed    = "rows_failed"
	RowsFixed     = "rows_fixed"
	CacheHits     = "cache_hits"
	CacheMisses   = "cache_misses"
	APICalls      = "api_calls"
	APIRetries    = "api_retries"
	ImportsOK     = "imports_ok"
	ImportsFailed = "imports_failed"
)

// Collector holds named monotonically increasing counters.
type Collector struct {
	mu        sync.RWMutex
	counters  map[string]int64
	startTime time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		counters:  make(map[string]int64),
		startTime: time.Now(),
	}
}

// Inc increments a counter by 1.
func (c *Collector) Inc(name string) { c.Add(name, 1) }

// Add adds n to a counter.
func (c *Collector) Add(name string, n int64) {
	c.mu.Lock()
	c.counters[name] += n
	c.mu.Unlock()
}

// Value returns the current value of a counter.
func (c *Collector) Value(name string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[name]
}

// Snapshot is a point-in-time view of all counters.
type Snapshot struct {
	Uptime   time.Duration    `json:"uptime"`
	Counters map[string]int64 `json:"counters"`
}

// Snapshot copies the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.counters))
	for k, v := range c.counters {
		out[k] = v
	}
	return Snapshot{Uptime: time.Since(c.startTime), Counters: out}
}

// Names returns the counter names in sorted order.
func (c *Collector) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.counters))
	for k := range c.counters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON exports the snapshot.
func (c *Collector) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}
