package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/pkg/session"
)

type countingSource struct {
	dashboard.InsightSource
	calls int
}

func (c *countingSource) Products(ctx context.Context) ([]dashboard.ProductSummary, error) {
	c.calls++
	return c.InsightSource.Products(ctx)
}

func TestCachedInsightSourceCachesPerSession(t *testing.T) {
	inner := &countingSource{InsightSource: NewMockClient(DemoData(time.Now()))}
	cached := NewCachedInsightSource(inner, time.Minute)
	now := time.Now()
	cached.now = func() time.Time { return now }

	a := session.ContextWithID(context.Background(), "a")
	b := session.ContextWithID(context.Background(), "b")

	_, err := cached.Products(a)
	require.NoError(t, err)
	_, err = cached.Products(a)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)

	_, err = cached.Products(b)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	now = now.Add(2 * time.Minute)
	_, err = cached.Products(a)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)

	cached.Forget("b")
	_, err = cached.Products(b)
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls)
}

func TestCachedInsightSourceBypassesWithoutSession(t *testing.T) {
	inner := &countingSource{InsightSource: NewMockClient(DemoData(time.Now()))}
	cached := NewCachedInsightSource(inner, 0)

	_, _ = cached.Products(context.Background())
	_, _ = cached.Products(context.Background())
	assert.Equal(t, 2, inner.calls)
}
