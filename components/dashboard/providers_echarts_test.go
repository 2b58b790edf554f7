package dashboard

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChartRendererDrawsEveryKind(t *testing.T) {
	t.Parallel()
	cases := map[ChartKind]ChartSpec{
		ChartBar: {
			Title:  "Competitor prices",
			Series: "Price",
			Labels: []string{"You", "Rival"},
			Values: []float64{225000, 240000},
		},
		ChartLine: {
			Title:  "Revenue",
			Series: "Revenue",
			Labels: []string{"05-01", "05-02"},
			Values: []float64{500000, 700000},
		},
		ChartPie: {
			Title:  "Price breakdown",
			Series: "Price",
			Labels: []string{"Buy price", "Net profit"},
			Values: []float64{150000, 60000},
		},
		ChartScatter: {
			Title:  "Slow movers",
			Series: "Items",
			Points: []ChartPoint{{Name: "A", X: 0.5, Y: 4}, {Name: "B", X: 1.2, Y: 9}},
		},
		ChartGauge: {
			Title:  "Breakeven progress",
			Series: "Progress",
			Values: []float64{50},
		},
	}
	for kind, spec := range cases {
		renderer := NewChartRenderer(kind, WithChartCache(nil))
		view, err := renderer.Render(ViewerContext{Locale: "en"}, "card:101", spec)
		require.NoError(t, err, kind)
		assert.Equal(t, kind, view.Kind)
		assert.Contains(t, strings.ToLower(view.HTML), "echarts", kind)
		assert.Contains(t, view.HTML, spec.Title, kind)
	}
}

func TestChartRendererUnknownKind(t *testing.T) {
	t.Parallel()
	renderer := NewChartRenderer("bubble", WithChartCache(nil))
	_, err := renderer.Render(ViewerContext{}, "card", ChartSpec{Values: []float64{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestChartRendererRequiresData(t *testing.T) {
	t.Parallel()
	_, err := NewChartRenderer(ChartBar, WithChartCache(nil)).Render(ViewerContext{}, "card", ChartSpec{Title: "Empty"})
	require.ErrorIs(t, err, errEmptySeries)

	// Scatter charts read points, not values.
	_, err = NewChartRenderer(ChartScatter, WithChartCache(nil)).Render(ViewerContext{}, "card", ChartSpec{Values: []float64{1}})
	require.ErrorIs(t, err, errEmptySeries)
}

func TestChartRendererUsesCache(t *testing.T) {
	t.Parallel()
	cache := &countingCache{}
	renderer := NewChartRenderer(ChartBar, WithChartCache(cache))
	spec := ChartSpec{Title: "Cached", Series: "S", Values: []float64{1, 2}}

	_, err := renderer.Render(ViewerContext{}, "restock:101", spec)
	require.NoError(t, err)
	_, err = renderer.Render(ViewerContext{}, "restock:101", spec)
	require.NoError(t, err)

	assert.Equal(t, int32(1), cache.calls)
}

func TestChartRendererThemeResolution(t *testing.T) {
	t.Parallel()
	renderer := NewChartRenderer(ChartBar, WithChartCache(nil), WithChartThemeResolver(func(viewer ViewerContext) string {
		if viewer.Locale == "fa" {
			return string(types.ThemeWalden)
		}
		return ""
	}))
	spec := ChartSpec{Series: "S", Values: []float64{5, 6}}

	view, err := renderer.Render(ViewerContext{Locale: "fa"}, "card", spec)
	require.NoError(t, err)
	assert.Equal(t, string(types.ThemeWalden), view.Theme)

	view, err = renderer.Render(ViewerContext{Locale: "en"}, "card", spec)
	require.NoError(t, err)
	assert.Equal(t, string(types.ThemeWesteros), view.Theme)
}

func TestChartRendererAssetsHost(t *testing.T) {
	t.Parallel()
	renderer := NewChartRenderer(ChartBar, WithChartCache(nil), WithChartAssetsHost("https://cdn.example.com/echarts/"))
	view, err := renderer.Render(ViewerContext{}, "card", ChartSpec{Series: "S", Values: []float64{1}})
	require.NoError(t, err)
	assert.Contains(t, view.HTML, "https://cdn.example.com/echarts/")
}

func TestServiceAttachesInsightCharts(t *testing.T) {
	service := NewService(Options{
		Insights:  newFakeSource(),
		Providers: NewRegistry(WithChartOptions(WithChartCache(NewChartCache(time.Minute)))),
	})
	viewer := ViewerContext{SessionID: "charts"}
	_, err := service.LoadInsights(context.Background(), viewer, "101")
	require.NoError(t, err)

	layout, err := service.ConfigureLayout(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, layout.Cards, len(InsightKinds))

	charted := 0
	for _, card := range layout.Cards {
		data, ok := card.Metadata["data"].(WidgetData)
		require.True(t, ok, "card metadata should include widget data")
		if markup, _ := data["chart_html"].(string); markup != "" {
			charted++
		}
	}
	assert.Greater(t, charted, 0)
}

type countingCache struct {
	calls int32
	value string
}

func (c *countingCache) GetOrRender(_ string, render func() (string, error)) (string, error) {
	if c.value != "" {
		return c.value, nil
	}
	html, err := render()
	if err != nil {
		return "", err
	}
	atomic.AddInt32(&c.calls, 1)
	c.value = html
	return html, nil
}

func BenchmarkInsightChartCached(b *testing.B) {
	renderer := NewChartRenderer(ChartLine, WithChartCache(NewChartCache(5*time.Minute)))
	spec := ChartSpec{
		Title:  "Revenue",
		Series: "Revenue",
		Labels: []string{"01", "02", "03", "04", "05"},
		Values: []float64{10, 20, 30, 40, 50},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := renderer.Render(ViewerContext{}, "revenue_forecast:101", spec); err != nil {
			b.Fatal(err)
		}
	}
}
