package dashboard

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RenderCache memoizes rendered chart HTML.
type RenderCache interface {
	GetOrRender(key string, render func() (string, error)) (string, error)
}

const defaultChartCacheEntries = 512

// ChartCache keeps rendered charts for a fixed TTL. Concurrent misses on one
// key share a single render. Once full, expired entries are swept and then the
// entry nearest expiry is dropped.
type ChartCache struct {
	ttl   time.Duration
	limit int
	now   func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	charts map[string]renderedChart
}

type renderedChart struct {
	html    string
	expires time.Time
}

// NewChartCache builds a cache. ttl <= 0 turns every lookup into a render.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{
		ttl:    ttl,
		limit:  defaultChartCacheEntries,
		now:    time.Now,
		charts: map[string]renderedChart{},
	}
}

// GetOrRender serves key from the cache or calls render. Failed renders are
// not stored.
func (c *ChartCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if c == nil || c.ttl <= 0 {
		return render()
	}
	if html, ok := c.lookup(key); ok {
		return html, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if html, ok := c.lookup(key); ok {
			return html, nil
		}
		html, err := render()
		if err != nil {
			return "", err
		}
		c.store(key, html)
		return html, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Len reports how many charts are stored, including expired ones not yet swept.
func (c *ChartCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.charts)
}

func (c *ChartCache) lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chart, ok := c.charts[key]
	if !ok {
		return "", false
	}
	if !c.now().Before(chart.expires) {
		delete(c.charts, key)
		return "", false
	}
	return chart.html, true
}

func (c *ChartCache) store(key, html string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, ok := c.charts[key]; !ok && len(c.charts) >= c.limit {
		c.makeRoom(now)
	}
	c.charts[key] = renderedChart{html: html, expires: now.Add(c.ttl)}
}

func (c *ChartCache) makeRoom(now time.Time) {
	victim, soonest := "", time.Time{}
	for key, chart := range c.charts {
		switch {
		case !now.Before(chart.expires):
			delete(c.charts, key)
		case victim == "" || chart.expires.Before(soonest):
			victim, soonest = key, chart.expires
		}
	}
	if len(c.charts) >= c.limit {
		delete(c.charts, victim)
	}
}

// configHash fingerprints the data a chart is drawn from.
func configHash(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "unhashable"
	}
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:8])
}
