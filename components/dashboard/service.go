package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-predify/pkg/activity"
)

var (
	errMissingSource   = errors.New("dashboard: insight source not configured")
	errMissingSettings = errors.New("dashboard: settings repository not configured")
	errMissingProfile  = errors.New("dashboard: profile repository not configured")
	errMissingAnalyzer = errors.New("dashboard: card analyzer not configured")
	errMissingViewer   = errors.New("dashboard: viewer session is required")
	errEmptyPatch      = errors.New("dashboard: settings update has no fields")
)

// Options configures the dashboard Service. Every collaborator is provided via
// interface so the backend client, stores and hooks can be swapped.
type Options struct {
	Insights        InsightSource
	Settings        SettingsRepository
	Profiles        ProfileRepository
	Analyzer        CardAnalyzer
	PreferenceStore PreferenceStore
	Providers       ProviderRegistry
	ConfigValidator ConfigValidator
	RefreshHook     RefreshHook
	Telemetry       Telemetry
	Selector        *Selector
	ActivityHooks   activity.Hooks
	ActivityConfig  activity.Config
	// LoadTimeout bounds one nine-way insight load. Zero means no bound.
	LoadTimeout time.Duration
}

// Service orchestrates the seller insight page on top of the analytics backend.
type Service struct {
	opts     Options
	activity *activity.Emitter
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.Providers == nil {
		opts.Providers = NewRegistry()
	}
	if opts.ConfigValidator == nil {
		opts.ConfigValidator = NewJSONSchemaValidator()
	}
	if opts.PreferenceStore == nil {
		opts.PreferenceStore = NewInMemoryPreferenceStore()
	}
	if opts.Selector == nil {
		opts.Selector = NewSelector()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Service{
		opts:     opts,
		activity: activity.NewEmitter(opts.ActivityHooks, opts.ActivityConfig),
	}
}

// Products returns the seller's product list. The first entry is the default selection.
func (s *Service) Products(ctx context.Context) ([]ProductSummary, error) {
	if s.opts.Insights == nil {
		return nil, errMissingSource
	}
	products, err := s.opts.Insights.Products(ctx)
	if err != nil {
		s.recordTelemetry(ctx, "dashboard.products.error", map[string]any{"error": err.Error()})
		return nil, err
	}
	return products, nil
}

// DefaultSKU picks the product selected when none was requested.
func DefaultSKU(products []ProductSummary) string {
	if len(products) == 0 {
		return ""
	}
	return products[0].ProductID
}

// LoadInsights selects sku for the viewer and fetches its nine insights.
// Starting a load cancels the viewer's previous in-flight load. A load that
// was superseded never updates the viewer's snapshot and returns ErrSuperseded.
func (s *Service) LoadInsights(ctx context.Context, viewer ViewerContext, sku string) (Snapshot, error) {
	key := viewer.Key()
	if key == "" {
		return Snapshot{}, errMissingViewer
	}
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Snapshot{}, errMissingSKU
	}
	if s.opts.Insights == nil {
		return Snapshot{}, errMissingSource
	}

	loadCtx, ticket, release := s.opts.Selector.Begin(ctx, key, sku)
	defer release()
	s.notify(ctx, WidgetEvent{Viewer: key, SKU: sku, Status: StatusLoading, Reason: "select"})

	if s.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(loadCtx, s.opts.LoadTimeout)
		defer cancel()
	}

	started := time.Now()
	set, loadErr := LoadInsightSet(loadCtx, s.opts.Insights, sku)

	var committed *InsightSet
	if loadErr == nil {
		committed = &set
	}
	snap, err := s.opts.Selector.Commit(ticket, committed, loadErr)
	if errors.Is(err, ErrSuperseded) {
		s.recordTelemetry(ctx, "dashboard.insights.superseded", map[string]any{
			"viewer": key,
			"sku":    sku,
		})
		return Snapshot{}, ErrSuperseded
	}

	payload := map[string]any{
		"viewer":      key,
		"sku":         sku,
		"status":      string(snap.Status),
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if loadErr != nil {
		payload["error"] = loadErr.Error()
		s.recordTelemetry(ctx, "dashboard.insights.error", payload)
		s.notify(ctx, WidgetEvent{Viewer: key, SKU: sku, Status: StatusError, Reason: "load", Error: loadErr.Error()})
		return snap, loadErr
	}
	s.recordTelemetry(ctx, "dashboard.insights.load", payload)
	s.notify(ctx, WidgetEvent{Viewer: key, SKU: sku, Status: StatusReady, Reason: "load"})
	s.emitActivity(ctx, viewer, "seller.product.select", "product", sku, map[string]any{"sku": sku})
	return snap, nil
}

// Snapshot returns what the viewer currently sees.
func (s *Service) Snapshot(viewer ViewerContext) Snapshot {
	return s.opts.Selector.Snapshot(viewer.Key())
}

// ForgetViewer drops the viewer's insight state, cancelling any in-flight load.
func (s *Service) ForgetViewer(viewer ViewerContext) {
	s.opts.Selector.Forget(viewer.Key())
}

// ConfigureLayout turns the viewer's ready snapshot into rendered cards,
// honouring the viewer's order and hidden overrides. Cards whose provider
// fails are skipped.
func (s *Service) ConfigureLayout(ctx context.Context, viewer ViewerContext) (Layout, error) {
	snap := s.Snapshot(viewer)
	layout := Layout{Snapshot: snap}
	if snap.Status != StatusReady || snap.Set == nil {
		return layout, nil
	}
	overrides, err := s.opts.PreferenceStore.LayoutOverrides(ctx, viewer)
	if err != nil {
		return Layout{}, err
	}
	if viewer.Locale == "" {
		viewer.Locale = overrides.Locale
	}
	cards := make([]WidgetInstance, 0, len(InsightKinds))
	for _, def := range s.opts.Providers.Definitions() {
		cards = append(cards, WidgetInstance{
			ID:           def.Code,
			DefinitionID: def.Code,
			Name:         def.NameForLocale(viewer.Locale),
		})
	}
	cards = applyHiddenFilter(applyOrderOverride(cards, overrides.CardOrder), overrides.HiddenWidgets)
	layout.Cards = s.attachProviderData(ctx, viewer, snap.Set, cards)
	s.recordTelemetry(ctx, "dashboard.layout.resolve", map[string]any{
		"viewer": viewer.Key(),
		"sku":    snap.SKU,
		"cards":  len(layout.Cards),
	})
	return layout, nil
}

func (s *Service) attachProviderData(ctx context.Context, viewer ViewerContext, set *InsightSet, cards []WidgetInstance) []WidgetInstance {
	product := s.selectedProduct(ctx, set.SKU)
	out := make([]WidgetInstance, 0, len(cards))
	for _, card := range cards {
		provider, ok := s.opts.Providers.Provider(card.DefinitionID)
		if !ok || provider == nil {
			continue
		}
		def, _ := s.opts.Providers.Definition(card.DefinitionID)
		data, err := provider.Fetch(ctx, WidgetContext{
			Instance:   card,
			Definition: def,
			Viewer:     viewer,
			Set:        set,
			Product:    product,
		})
		if err != nil {
			s.recordTelemetry(ctx, "dashboard.widget.provider_error", map[string]any{
				"definition_id": card.DefinitionID,
				"error":         err.Error(),
			})
			continue
		}
		card.Metadata = map[string]any{"data": data}
		out = append(out, card)
	}
	return out
}

// selectedProduct looks up the selector entry for sku. The product list is
// optional context for cards, so lookup failures are ignored.
func (s *Service) selectedProduct(ctx context.Context, sku string) *ProductSummary {
	products, err := s.opts.Insights.Products(ctx)
	if err != nil {
		return nil
	}
	for _, p := range products {
		if p.ProductID == sku {
			return &p
		}
	}
	return nil
}

// Settings loads the seller's thresholds.
func (s *Service) Settings(ctx context.Context) (SellerSettings, error) {
	if s.opts.Settings == nil {
		return SellerSettings{}, errMissingSettings
	}
	return s.opts.Settings.Settings(ctx)
}

// SaveSettings validates a partial update and forwards it to the backend.
func (s *Service) SaveSettings(ctx context.Context, viewer ViewerContext, patch SettingsPatch) (SellerSettings, error) {
	if s.opts.Settings == nil {
		return SellerSettings{}, errMissingSettings
	}
	if patch.Empty() {
		return SellerSettings{}, errEmptyPatch
	}
	if err := s.validateSettings(patch); err != nil {
		return SellerSettings{}, err
	}
	saved, err := s.opts.Settings.UpdateSettings(ctx, patch)
	if err != nil {
		return SellerSettings{}, err
	}
	s.recordTelemetry(ctx, "dashboard.settings.save", map[string]any{"viewer": viewer.Key()})
	s.emitActivity(ctx, viewer, "seller.settings.update", "seller_settings", viewer.SellerID, map[string]any{
		"extra_cost_pct":        saved.ExtraCostPct,
		"slow_mover_min_speed":  saved.SlowMoverMinSpeed,
		"slow_mover_min_margin": saved.SlowMoverMinMargin,
		"lead_time_days":        saved.LeadTimeDays,
	})
	return saved, nil
}

func (s *Service) validateSettings(patch SettingsPatch) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("dashboard: encode settings: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("dashboard: normalize settings: %w", err)
	}
	if err := s.opts.ConfigValidator.Validate(SettingsDefinition(), payload); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// Profile loads the seller profile.
func (s *Service) Profile(ctx context.Context) (SellerProfile, error) {
	if s.opts.Profiles == nil {
		return SellerProfile{}, errMissingProfile
	}
	return s.opts.Profiles.Profile(ctx)
}

// CardAnalysis asks the backend for a brief about one card of the selected product.
func (s *Service) CardAnalysis(ctx context.Context, viewer ViewerContext, req CardAnalysisRequest) (CardAnalysis, error) {
	if s.opts.Analyzer == nil {
		return CardAnalysis{}, errMissingAnalyzer
	}
	if strings.TrimSpace(req.CardID) == "" {
		return CardAnalysis{}, &ValidationError{Err: errors.New("card_id is required")}
	}
	out, err := s.opts.Analyzer.CardAnalysis(ctx, req)
	if err != nil {
		return CardAnalysis{}, err
	}
	s.recordTelemetry(ctx, "dashboard.card.analysis", map[string]any{
		"viewer":     viewer.Key(),
		"card_id":    req.CardID,
		"product_id": req.ProductID,
	})
	return out, nil
}

// SavePreferences persists per-viewer card overrides.
func (s *Service) SavePreferences(ctx context.Context, viewer ViewerContext, overrides LayoutOverrides) error {
	if viewer.Key() == "" {
		return errMissingViewer
	}
	normalizeOverrides(&overrides)
	return s.opts.PreferenceStore.SaveLayoutOverrides(ctx, viewer, overrides)
}

// Definitions exposes the registered cards.
func (s *Service) Definitions() []WidgetDefinition {
	return s.opts.Providers.Definitions()
}

func (s *Service) notify(ctx context.Context, event WidgetEvent) {
	event.OccurredAt = time.Now().UTC()
	if err := s.opts.RefreshHook.WidgetUpdated(ctx, event); err != nil {
		s.recordTelemetry(ctx, "dashboard.refresh.error", map[string]any{"error": err.Error()})
	}
}

func (s *Service) emitActivity(ctx context.Context, viewer ViewerContext, verb, objectType, objectID string, meta map[string]any) {
	if !s.activity.Enabled() {
		return
	}
	actor, _ := ActorFrom(ctx)
	actor = actor.orViewer(viewer)
	if actor.RequestID != "" {
		meta = withMeta(meta, "request_id", actor.RequestID)
	}
	err := s.activity.Emit(ctx, activity.Event{
		Verb:       verb,
		ActorID:    actor.SessionID,
		UserID:     actor.SellerID,
		TenantID:   actor.TenantID,
		ObjectType: objectType,
		ObjectID:   objectID,
		Metadata:   meta,
	})
	if err != nil {
		s.recordTelemetry(ctx, "dashboard.activity.error", map[string]any{"verb": verb, "error": err.Error()})
	}
}

func withMeta(meta map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	out[key] = value
	return out
}

func (s *Service) recordTelemetry(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

// ValidationError marks input rejected before reaching the backend.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "dashboard: invalid input: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type noopRefreshHook struct{}

func (noopRefreshHook) WidgetUpdated(context.Context, WidgetEvent) error {
	return nil
}
