package dashboard

import "context"

// Provider turns a loaded insight set into the data a card template renders.
type Provider interface {
	Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error)
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc func(ctx context.Context, meta WidgetContext) (WidgetData, error)

// Fetch calls f.
func (f ProviderFunc) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	return f(ctx, meta)
}

// WidgetContext contains what a provider needs to render one card.
type WidgetContext struct {
	Instance   WidgetInstance
	Definition WidgetDefinition
	Viewer     ViewerContext
	Set        *InsightSet
	Product    *ProductSummary
}

// WidgetData is an opaque payload passed to templates.
type WidgetData map[string]any
