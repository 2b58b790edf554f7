package dashboard

import (
	"context"
	"time"
)

// InsightSource fetches the backend data the dashboard renders. pkg/backend
// provides the HTTP implementation.
type InsightSource interface {
	Products(ctx context.Context) ([]ProductSummary, error)
	ProfitMargin(ctx context.Context, sku string) (ProfitMargin, error)
	SlowMovers(ctx context.Context, sku string) (SlowMovers, error)
	Breakeven(ctx context.Context, sku string) (Breakeven, error)
	GoldenTimes(ctx context.Context, sku string) (GoldenTimes, error)
	RevenueForecast(ctx context.Context, sku string) (RevenueForecast, error)
	DiscountCompetition(ctx context.Context, sku string) (DiscountCompetition, error)
	RestockTime(ctx context.Context, sku string) (RestockTime, error)
	SpeedCompare(ctx context.Context, sku string) (SpeedCompare, error)
	CommentAnalysis(ctx context.Context, sku string) (CommentAnalysis, error)
}

// SettingsRepository reads and partially updates seller settings.
type SettingsRepository interface {
	Settings(ctx context.Context) (SellerSettings, error)
	UpdateSettings(ctx context.Context, patch SettingsPatch) (SellerSettings, error)
}

// ProfileRepository loads the seller profile.
type ProfileRepository interface {
	Profile(ctx context.Context) (SellerProfile, error)
}

// CardAnalyzer requests a short brief for a single card.
type CardAnalyzer interface {
	CardAnalysis(ctx context.Context, req CardAnalysisRequest) (CardAnalysis, error)
}

// PreferenceStore returns card overrides per viewer.
type PreferenceStore interface {
	LayoutOverrides(ctx context.Context, viewer ViewerContext) (LayoutOverrides, error)
	SaveLayoutOverrides(ctx context.Context, viewer ViewerContext, overrides LayoutOverrides) error
}

// ProviderRegistry stores card definitions and their providers.
type ProviderRegistry interface {
	RegisterDefinition(def WidgetDefinition) error
	RegisterProvider(code string, provider Provider) error
	Definition(code string) (WidgetDefinition, bool)
	Provider(code string) (Provider, bool)
	Definitions() []WidgetDefinition
}

// RefreshHook notifies transports (SSE/WebSocket) about insight state changes.
type RefreshHook interface {
	WidgetUpdated(ctx context.Context, event WidgetEvent) error
}

// WidgetDefinition describes an insight card.
type WidgetDefinition struct {
	Code                 string
	Kind                 InsightKind
	Name                 string
	NameLocalized        map[string]string
	Description          string
	DescriptionLocalized map[string]string
	Category             string
	Chart                ChartKind
	Schema               map[string]any
}

// WidgetInstance is a card placed on a viewer's insight page.
type WidgetInstance struct {
	ID            string         `json:"id"`
	DefinitionID  string         `json:"definition"`
	Name          string         `json:"name"`
	Configuration map[string]any `json:"configuration,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// LayoutOverrides captures per-viewer card order and visibility.
type LayoutOverrides struct {
	Locale        string          `json:"locale,omitempty"`
	CardOrder     []string        `json:"card_order,omitempty"`
	HiddenWidgets map[string]bool `json:"hidden_widgets,omitempty"`
}

// ViewerContext identifies the browser session the dashboard renders for.
type ViewerContext struct {
	SessionID string
	SellerID  string
	Locale    string
}

// Key returns the identity used for per-viewer state.
func (v ViewerContext) Key() string {
	if v.SessionID != "" {
		return v.SessionID
	}
	return v.SellerID
}

// Layout is the resolved insight page for a viewer.
type Layout struct {
	Snapshot Snapshot         `json:"snapshot"`
	Cards    []WidgetInstance `json:"cards"`
}

// WidgetEvent describes an insight state change transports may push to browsers.
type WidgetEvent struct {
	Viewer     string        `json:"viewer"`
	SKU        string        `json:"sku,omitempty"`
	Status     InsightStatus `json:"status"`
	Reason     string        `json:"reason"`
	Error      string        `json:"error,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
