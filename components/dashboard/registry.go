package dashboard

import (
	"errors"
	"fmt"
	"sync"
)

var errMissingCode = errors.New("dashboard: card code is required")

// RegistryOption customizes the cards a registry starts with.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	chartOpts []ChartOption
	noCharts  bool
	extras    []func(*Registry) error
}

// WithChartOptions passes options to every chart renderer the registry builds.
func WithChartOptions(opts ...ChartOption) RegistryOption {
	return func(c *registryConfig) {
		c.chartOpts = append(c.chartOpts, opts...)
	}
}

// WithoutCharts registers cards that render stat rows only.
func WithoutCharts() RegistryOption {
	return func(c *registryConfig) {
		c.noCharts = true
	}
}

// WithExtraCards runs register after the insight cards are in place, so it
// can append cards of its own.
func WithExtraCards(register func(*Registry) error) RegistryOption {
	return func(c *registryConfig) {
		c.extras = append(c.extras, register)
	}
}

// card pairs a definition with the provider that fills it.
type card struct {
	def      WidgetDefinition
	provider Provider
}

// Registry keeps cards in registration order. It implements ProviderRegistry.
type Registry struct {
	mu    sync.RWMutex
	cards []card
	index map[string]int
}

// NewRegistry builds a registry holding the nine insight cards.
func NewRegistry(opts ...RegistryOption) *Registry {
	var cfg registryConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	reg := &Registry{index: map[string]int{}}
	for _, def := range DefaultWidgetDefinitions() {
		var chart *ChartRenderer
		if def.Chart != "" && !cfg.noCharts {
			chart = NewChartRenderer(def.Chart, cfg.chartOpts...)
		}
		provider, err := NewInsightProvider(def.Kind, chart)
		if err != nil {
			continue
		}
		_ = reg.RegisterDefinition(def)
		_ = reg.RegisterProvider(def.Code, provider)
	}
	for _, register := range cfg.extras {
		// A failing register keeps whatever cards it added before failing.
		_ = register(reg)
	}
	return reg
}

// RegisterDefinition adds def, or replaces the definition stored under its code
// while keeping its position.
func (r *Registry) RegisterDefinition(def WidgetDefinition) error {
	if def.Code == "" {
		return errMissingCode
	}
	def.normalizeLocalizedFields()
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[def.Code]; ok {
		r.cards[i].def = def
		return nil
	}
	r.index[def.Code] = len(r.cards)
	r.cards = append(r.cards, card{def: def})
	return nil
}

// RegisterProvider attaches provider to an already registered card.
func (r *Registry) RegisterProvider(code string, provider Provider) error {
	if code == "" {
		return errMissingCode
	}
	if provider == nil {
		return fmt.Errorf("dashboard: nil provider for %s", code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[code]
	if !ok {
		return fmt.Errorf("dashboard: card %s is not registered", code)
	}
	r.cards[i].provider = provider
	return nil
}

func (r *Registry) Definition(code string) (WidgetDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.index[code]; ok {
		return r.cards[i].def, true
	}
	return WidgetDefinition{}, false
}

func (r *Registry) Provider(code string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.index[code]; ok && r.cards[i].provider != nil {
		return r.cards[i].provider, true
	}
	return nil, false
}

// Definitions returns the cards in registration order.
func (r *Registry) Definitions() []WidgetDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]WidgetDefinition, len(r.cards))
	for i, c := range r.cards {
		defs[i] = c.def
	}
	return defs
}
