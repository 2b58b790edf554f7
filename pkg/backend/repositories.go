package backend

import (
	"context"
	"sync"
	"time"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/pkg/session"
)

const defaultProductsTTL = 2 * time.Minute

// CachedInsightSource wraps an InsightSource and caches the product list per
// browser session. Analyses are always fetched live.
type CachedInsightSource struct {
	dashboard.InsightSource

	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]productsEntry
}

type productsEntry struct {
	products []dashboard.ProductSummary
	expires  time.Time
}

// NewCachedInsightSource wraps source. A non-positive ttl uses two minutes.
func NewCachedInsightSource(source dashboard.InsightSource, ttl time.Duration) *CachedInsightSource {
	if ttl <= 0 {
		ttl = defaultProductsTTL
	}
	return &CachedInsightSource{
		InsightSource: source,
		ttl:           ttl,
		now:           time.Now,
		entries:       map[string]productsEntry{},
	}
}

// Products returns the cached list for the request's session, fetching it on
// a miss. Requests without a session bypass the cache.
func (c *CachedInsightSource) Products(ctx context.Context) ([]dashboard.ProductSummary, error) {
	id, ok := session.IDFromContext(ctx)
	if !ok {
		return c.InsightSource.Products(ctx)
	}
	c.mu.Lock()
	entry, hit := c.entries[id]
	c.mu.Unlock()
	if hit && c.now().Before(entry.expires) {
		return append([]dashboard.ProductSummary(nil), entry.products...), nil
	}

	products, err := c.InsightSource.Products(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[id] = productsEntry{
		products: append([]dashboard.ProductSummary(nil), products...),
		expires:  c.now().Add(c.ttl),
	}
	c.mu.Unlock()
	return products, nil
}

// Forget drops the cached list of a session, e.g. on logout.
func (c *CachedInsightSource) Forget(sessionID string) {
	c.mu.Lock()
	delete(c.entries, sessionID)
	c.mu.Unlock()
}
