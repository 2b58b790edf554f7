package dashboard

import (
	"context"
	"errors"
	"io"
	"strings"
)

const (
	TemplateInsights = "insights"
	TemplateSettings = "settings"
	TemplateProfile  = "profile"
	TemplateLogin    = "login"
	TemplateLesson   = "lesson"
)

const recentActivityLimit = 10

// PageService is the part of Service the controller renders from.
type PageService interface {
	Products(ctx context.Context) ([]ProductSummary, error)
	LoadInsights(ctx context.Context, viewer ViewerContext, sku string) (Snapshot, error)
	ConfigureLayout(ctx context.Context, viewer ViewerContext) (Layout, error)
	Settings(ctx context.Context) (SellerSettings, error)
	Profile(ctx context.Context) (SellerProfile, error)
}

// ControllerOptions wires the controller.
type ControllerOptions struct {
	// Service is read for every page. LoadInsights may return ErrSuperseded
	// once a newer selection took over; the page then shows that newer state.
	Service  PageService
	Renderer Renderer
	Feed     ActivityFeed
	// Escalate reports errors that must not be rendered as an in-page data
	// error, such as an expired session. They are returned to the transport.
	Escalate func(error) bool
}

// Controller renders the seller pages.
type Controller struct {
	opts ControllerOptions
}

// NewController wires the service into a controller.
func NewController(opts ControllerOptions) *Controller {
	if opts.Escalate == nil {
		opts.Escalate = func(error) bool { return false }
	}
	return &Controller{opts: opts}
}

// InsightsPayload selects sku, waits for its insights and returns the page
// data. An empty or unknown sku selects the first product. Backend failures
// become an in-page error, and a load overtaken by a newer selection returns
// the newer selection's state.
func (c *Controller) InsightsPayload(ctx context.Context, viewer ViewerContext, sku string) (map[string]any, error) {
	payload := map[string]any{"locale": viewer.Locale}
	products, err := c.opts.Service.Products(ctx)
	if err != nil {
		if c.opts.Escalate(err) {
			return nil, err
		}
		payload["status"] = string(StatusError)
		payload["error"] = err.Error()
		payload["products"] = []ProductSummary{}
		return payload, nil
	}
	payload["products"] = products

	sku = strings.TrimSpace(sku)
	if !hasProduct(products, sku) {
		sku = DefaultSKU(products)
	}
	payload["selected"] = sku
	if sku == "" {
		payload["status"] = string(StatusIdle)
		return payload, nil
	}

	snap, err := c.opts.Service.LoadInsights(ctx, viewer, sku)
	if err != nil && !errors.Is(err, ErrSuperseded) && c.opts.Escalate(err) {
		return nil, err
	}
	layout, err := c.opts.Service.ConfigureLayout(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if layout.Snapshot.SKU == "" {
		layout.Snapshot = snap
	}
	if newer := layout.Snapshot.SKU; newer != "" && newer != sku && hasProduct(products, newer) {
		payload["selected"] = newer
	}
	payload["status"] = string(layout.Snapshot.Status)
	payload["error"] = layout.Snapshot.Error
	payload["cards"] = layout.Cards
	if layout.Snapshot.Set != nil {
		payload["product_title"] = productTitle(layout.Snapshot.Set, products)
	}
	return payload, nil
}

// RenderInsights writes the insights page.
func (c *Controller) RenderInsights(ctx context.Context, viewer ViewerContext, sku string, out io.Writer) error {
	payload, err := c.InsightsPayload(ctx, viewer, sku)
	if err != nil {
		return err
	}
	return c.render(TemplateInsights, payload, out)
}

// RenderSettings writes the settings form. notice and formErr are optional banners.
func (c *Controller) RenderSettings(ctx context.Context, viewer ViewerContext, notice, formErr string, out io.Writer) error {
	payload := map[string]any{"locale": viewer.Locale, "notice": notice, "error": formErr}
	settings, err := c.opts.Service.Settings(ctx)
	if err != nil {
		if c.opts.Escalate(err) {
			return err
		}
		payload["error"] = err.Error()
	} else {
		payload["settings"] = settings
	}
	return c.render(TemplateSettings, payload, out)
}

// RenderProfile writes the profile page with the viewer's recent activity.
func (c *Controller) RenderProfile(ctx context.Context, viewer ViewerContext, out io.Writer) error {
	payload := map[string]any{"locale": viewer.Locale}
	profile, err := c.opts.Service.Profile(ctx)
	if err != nil {
		if c.opts.Escalate(err) {
			return err
		}
		payload["error"] = err.Error()
	} else {
		payload["profile"] = profile
		payload["revenue"] = FormatMoney(profile.Metrics.MonthlyRevenue)
	}
	if c.opts.Feed != nil {
		if items, err := c.opts.Feed.Recent(ctx, viewer, recentActivityLimit); err == nil {
			payload["activity"] = items
		}
	}
	return c.render(TemplateProfile, payload, out)
}

// RenderLogin writes the login form.
func (c *Controller) RenderLogin(notice, formErr string, out io.Writer) error {
	return c.render(TemplateLogin, map[string]any{"notice": notice, "error": formErr}, out)
}

// LessonView is one entry of the lessons page.
type LessonView struct {
	Title    string
	Slug     string
	Markdown string
}

// RenderLesson writes a micro-lesson with links to the other topics.
func (c *Controller) RenderLesson(viewer ViewerContext, lesson LessonView, topics []LessonView, out io.Writer) error {
	return c.render(TemplateLesson, map[string]any{
		"locale": viewer.Locale,
		"lesson": lesson,
		"topics": topics,
	}, out)
}

func (c *Controller) render(name string, payload map[string]any, out io.Writer) error {
	if c.opts.Renderer == nil {
		return errMissingRenderer
	}
	_, err := c.opts.Renderer.Render(name, payload, out)
	return err
}

var errMissingRenderer = errors.New("dashboard: renderer not configured")

func productTitle(set *InsightSet, products []ProductSummary) string {
	if set.ProfitMargin.Title != "" {
		return set.ProfitMargin.Title
	}
	for _, p := range products {
		if p.ProductID == set.SKU {
			return p.Title
		}
	}
	return set.SKU
}

func hasProduct(products []ProductSummary, sku string) bool {
	if sku == "" {
		return false
	}
	for _, p := range products {
		if p.ProductID == sku {
			return true
		}
	}
	return false
}
