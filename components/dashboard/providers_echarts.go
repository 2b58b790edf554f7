package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "320px"

var errEmptySeries = errors.New("dashboard: chart has no data")

var sharedChartCache = NewChartCache(5 * time.Minute)

// ChartKind names the go-echarts chart drawn under a card.
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartLine    ChartKind = "line"
	ChartPie     ChartKind = "pie"
	ChartScatter ChartKind = "scatter"
	ChartGauge   ChartKind = "gauge"
)

// ChartSpec is the data a card hands to the renderer. Bar, line and pie charts
// read Labels and Values; scatter charts read Points; gauges read Values[0] as
// a percentage.
type ChartSpec struct {
	Title    string       `json:"title"`
	Subtitle string       `json:"subtitle,omitempty"`
	Series   string       `json:"series"`
	Labels   []string     `json:"labels,omitempty"`
	Values   []float64    `json:"values,omitempty"`
	Points   []ChartPoint `json:"points,omitempty"`
}

// ChartPoint is one named x/y pair of a scatter chart.
type ChartPoint struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Add appends a labelled value.
func (s *ChartSpec) Add(label string, value float64) {
	s.Labels = append(s.Labels, label)
	s.Values = append(s.Values, value)
}

func (s ChartSpec) empty(kind ChartKind) bool {
	if kind == ChartScatter {
		return len(s.Points) == 0
	}
	return len(s.Values) == 0
}

// ThemeResolver selects a chart theme per viewer, e.g. a dark theme for fa locales.
type ThemeResolver func(ViewerContext) string

// ChartRenderer turns a card's ChartSpec into go-echarts HTML.
type ChartRenderer struct {
	kind          ChartKind
	cache         RenderCache
	theme         string
	themeResolver ThemeResolver
	assetsHost    string
}

// ChartOption customizes a ChartRenderer.
type ChartOption func(*ChartRenderer)

// WithChartCache injects a render cache. nil disables caching.
func WithChartCache(cache RenderCache) ChartOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets a static theme (defaults to Westeros).
func WithChartTheme(theme string) ChartOption {
	return func(r *ChartRenderer) {
		r.theme = theme
	}
}

// WithChartThemeResolver resolves themes per viewer.
func WithChartThemeResolver(resolver ThemeResolver) ChartOption {
	return func(r *ChartRenderer) {
		r.themeResolver = resolver
	}
}

// WithChartAssetsHost points the ECharts script tags at host. An empty host
// selects the public go-echarts CDN.
func WithChartAssetsHost(host string) ChartOption {
	return func(r *ChartRenderer) {
		r.assetsHost = ChartAssetsHost(host)
	}
}

// NewChartRenderer builds a renderer for kind.
func NewChartRenderer(kind ChartKind, opts ...ChartOption) *ChartRenderer {
	r := &ChartRenderer{
		kind:  kind,
		cache: sharedChartCache,
		theme: types.ThemeWesteros,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Kind returns the chart kind drawn by r.
func (r *ChartRenderer) Kind() ChartKind {
	return r.kind
}

// ChartView is a rendered chart.
type ChartView struct {
	HTML  string
	Kind  ChartKind
	Theme string
}

// Render draws spec for viewer. key identifies the card and product so
// repeated renders of the same data are served from the cache.
func (r *ChartRenderer) Render(viewer ViewerContext, key string, spec ChartSpec) (ChartView, error) {
	if spec.empty(r.kind) {
		return ChartView{}, errEmptySeries
	}
	theme := r.resolveTheme(viewer)
	draw := func() (string, error) { return r.draw(spec, theme) }

	var (
		html string
		err  error
	)
	if r.cache != nil {
		html, err = r.cache.GetOrRender(fmt.Sprintf("%s:%s:%s:%s", key, r.kind, theme, configHash(spec)), draw)
	} else {
		html, err = draw()
	}
	if err != nil {
		return ChartView{}, err
	}
	return ChartView{HTML: html, Kind: r.kind, Theme: theme}, nil
}

func (r *ChartRenderer) draw(spec ChartSpec, theme string) (string, error) {
	global := r.globalOptions(spec, theme)
	switch r.kind {
	case ChartBar:
		bar := charts.NewBar()
		bar.SetGlobalOptions(global...)
		bar.SetXAxis(spec.Labels)
		data := make([]opts.BarData, len(spec.Values))
		for i, v := range spec.Values {
			data[i] = opts.BarData{Name: labelAt(spec.Labels, i), Value: v}
		}
		bar.AddSeries(spec.Series, data)
		return renderChart(bar)
	case ChartLine:
		line := charts.NewLine()
		line.SetGlobalOptions(global...)
		line.SetXAxis(spec.Labels)
		data := make([]opts.LineData, len(spec.Values))
		for i, v := range spec.Values {
			data[i] = opts.LineData{Name: labelAt(spec.Labels, i), Value: v}
		}
		line.AddSeries(spec.Series, data)
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	case ChartPie:
		pie := charts.NewPie()
		pie.SetGlobalOptions(global...)
		data := make([]opts.PieData, len(spec.Values))
		for i, v := range spec.Values {
			data[i] = opts.PieData{Name: labelAt(spec.Labels, i), Value: v}
		}
		pie.AddSeries(spec.Series, data)
		return renderChart(pie)
	case ChartScatter:
		scatter := charts.NewScatter()
		scatter.SetGlobalOptions(global...)
		data := make([]opts.ScatterData, len(spec.Points))
		for i, p := range spec.Points {
			data[i] = opts.ScatterData{Name: p.Name, Value: []float64{p.X, p.Y}}
		}
		scatter.AddSeries(spec.Series, data)
		return renderChart(scatter)
	case ChartGauge:
		gauge := charts.NewGauge()
		gauge.SetGlobalOptions(global...)
		gauge.AddSeries(spec.Series, []opts.GaugeData{{Name: spec.Series, Value: spec.Values[0]}})
		return renderChart(gauge)
	default:
		return "", fmt.Errorf("dashboard: unsupported chart kind %q", r.kind)
	}
}

func labelAt(labels []string, i int) string {
	if i < len(labels) && labels[i] != "" {
		return labels[i]
	}
	return fmt.Sprintf("Item %d", i+1)
}

func renderChart(chart interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *ChartRenderer) globalOptions(spec ChartSpec, theme string) []charts.GlobalOpts {
	init := opts.Initialization{
		Theme:  theme,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if r.assetsHost != "" {
		init.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: spec.Title, Subtitle: spec.Subtitle}),
		charts.WithInitializationOpts(init),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(r.kind != ChartGauge)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func (r *ChartRenderer) resolveTheme(viewer ViewerContext) string {
	if r.themeResolver != nil {
		if theme := r.themeResolver(viewer); theme != "" {
			return theme
		}
	}
	if r.theme != "" {
		return r.theme
	}
	return types.ThemeWesteros
}
