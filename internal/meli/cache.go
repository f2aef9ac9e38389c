package meli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/drapala/validahub-new-sub001/internal/canonical"
	"github.com/drapala/validahub-new-sub001/internal/logger"
	"github.com/drapala/validahub-new-sub001/internal/metrics"
)

// Cache is the file-backed rule-set cache: one JSON artifact per category id.
// Freshness is the file's age against the TTL, not a stored expiry, so
// touching a file revalidates it and sweeping is just an mtime scan.
type Cache struct {
	dir     string
	ttl     time.Duration
	log     *logger.Logger
	metrics *metrics.Collector
}

// NewCache creates the cache directory if needed.
func NewCache(dir string, ttlHours float64, collector *metrics.Collector) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours * float64(time.Hour)),
		log:     logger.Default().WithPrefix("cache"),
		metrics: collector,
	}, nil
}

// Get returns the cached rule set for a category, or (nil, false) on a miss.
// A stale or undecodable entry is a miss, never an error: cache trouble must
// not fail an import.
func (c *Cache) Get(categoryID string) (*canonical.RuleSet, bool) {
	path := c.entryPath(categoryID)

	info, err := os.Stat(path)
	if err != nil {
		c.metrics.Inc(metrics.CacheMisses)
		return nil, false
	}
	if time.Since(info.ModTime()) > c.ttl {
		c.metrics.Inc(metrics.CacheMisses)
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.log.Warn("unreadable cache entry %s: %v", categoryID, err)
		c.metrics.Inc(metrics.CacheMisses)
		return nil, false
	}
	var set canonical.RuleSet
	if err := json.Unmarshal(data, &set); err != nil {
		c.log.Warn("corrupt cache entry %s: %v", categoryID, err)
		c.metrics.Inc(metrics.CacheMisses)
		return nil, false
	}

	c.metrics.Inc(metrics.CacheHits)
	return &set, true
}

// Put persists a rule set. The write goes to a temp file first and is moved
// into place with a rename, so concurrent writers of the same category end
// up last-write-wins without torn reads.
func (c *Cache) Put(categoryID string, set *canonical.RuleSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal rule set: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, categoryID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.entryPath(categoryID))
}

// Invalidate removes one entry. A missing entry is not an error.
func (c *Cache) Invalidate(categoryID string) error {
	err := os.Remove(c.entryPath(categoryID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Sweep removes every stale entry and returns how many were dropped.
func (c *Cache) Sweep() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > c.ttl {
			if os.Remove(filepath.Join(c.dir, entry.Name())) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (c *Cache) entryPath(categoryID string) string {
	return filepath.Join(c.dir, categoryID+".json")
}
