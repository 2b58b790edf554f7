package httpapi

import (
	"context"
	"errors"
	"strings"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/components/dashboard/commands"
	"github.com/goliatone/go-predify/components/dashboard/queries"
	"github.com/goliatone/go-predify/pkg/activity"
	"github.com/goliatone/go-predify/pkg/assistant"
	"github.com/goliatone/go-predify/pkg/backend"
	"github.com/goliatone/go-predify/pkg/session"
)

// Actions bundles the commands and queries both transports dispatch to.
type Actions struct {
	Login           gocommand.Commander[commands.LoginInput]
	Logout          gocommand.Commander[commands.LogoutInput]
	SelectProduct   gocommand.Commander[commands.SelectProductInput]
	SaveSettings    gocommand.Commander[commands.SaveSettingsInput]
	SavePreferences gocommand.Commander[commands.SaveCardPreferencesInput]
	SendChat        gocommand.Commander[commands.SendChatInput]

	Snapshot     gocommand.Querier[dashboard.ViewerContext, dashboard.Snapshot]
	Layout       gocommand.Querier[dashboard.ViewerContext, dashboard.Layout]
	Products     gocommand.Querier[struct{}, []dashboard.ProductSummary]
	Settings     gocommand.Querier[struct{}, dashboard.SellerSettings]
	Profile      gocommand.Querier[struct{}, dashboard.SellerProfile]
	CardAnalysis gocommand.Querier[queries.CardAnalysisInput, dashboard.CardAnalysis]
	ChatHistory  gocommand.Querier[string, []assistant.Message]
	Lesson       gocommand.Querier[string, queries.Lesson]

	// Authenticated reports whether the request context carries a token pair.
	Authenticated func(ctx context.Context) bool
	// Locale is used when Accept-Language names no supported language.
	Locale string
}

// Deps are the collaborators NewActions wires into commands and queries.
type Deps struct {
	Service   *dashboard.Service
	Auth      backend.Authenticator
	Sessions  *session.Manager
	Assistant *assistant.Assistant
	Products  interface{ Forget(sessionID string) }
	Activity  *activity.Emitter
	Telemetry commands.Telemetry
	Locale    string
}

// NewActions builds the default command and query set.
func NewActions(deps Deps) (Actions, error) {
	if deps.Service == nil || deps.Auth == nil || deps.Sessions == nil {
		return Actions{}, errors.New("httpapi: service, auth and sessions are required")
	}
	if deps.Assistant == nil {
		deps.Assistant = assistant.New(assistant.Options{})
	}
	logout := commands.LogoutDeps{
		Tokens:   deps.Sessions.Store(),
		Chat:     deps.Assistant,
		Viewers:  deps.Service,
		Activity: deps.Activity,
	}
	if deps.Products != nil {
		logout.Products = deps.Products
	}
	return Actions{
		Login:           commands.NewLoginCommand(deps.Auth, deps.Sessions.Store(), deps.Activity, deps.Telemetry),
		Logout:          commands.NewLogoutCommand(logout, deps.Telemetry),
		SelectProduct:   commands.NewSelectProductCommand(deps.Service, deps.Telemetry),
		SaveSettings:    commands.NewSaveSettingsCommand(deps.Service, deps.Telemetry),
		SavePreferences: commands.NewSaveCardPreferencesCommand(deps.Service, deps.Telemetry),
		SendChat:        commands.NewSendChatCommand(deps.Assistant, deps.Activity, deps.Telemetry),
		Snapshot:        queries.NewInsightsQuery(deps.Service),
		Layout:          queries.NewLayoutQuery(deps.Service),
		Products:        queries.NewProductsQuery(deps.Service),
		Settings:        queries.NewSettingsQuery(deps.Service),
		Profile:         queries.NewProfileQuery(deps.Service),
		CardAnalysis:    queries.NewCardAnalysisQuery(deps.Service),
		ChatHistory:     queries.NewChatHistoryQuery(deps.Assistant),
		Lesson:          queries.NewLessonQuery(deps.Assistant),
		Authenticated:   deps.Sessions.Authenticated,
		Locale:          deps.Locale,
	}, nil
}

// LessonPage resolves topic and returns the views the lessons page renders.
func (a Actions) LessonPage(ctx context.Context, topic string) (dashboard.LessonView, []dashboard.LessonView, error) {
	lesson, err := a.Lesson.Query(ctx, topic)
	if err != nil {
		return dashboard.LessonView{}, nil, err
	}
	topics := make([]dashboard.LessonView, 0, len(assistant.Topics()))
	for _, t := range assistant.Topics() {
		topics = append(topics, dashboard.LessonView{Title: string(t), Slug: t.Slug()})
	}
	current := dashboard.LessonView{Title: string(lesson.Topic), Slug: lesson.Slug, Markdown: lesson.Markdown}
	return current, topics, nil
}

// ChatReply sends text and returns the updated transcript.
func (a Actions) ChatReply(ctx context.Context, sessionID, text string) ([]assistant.Message, error) {
	if err := a.SendChat.Execute(ctx, commands.SendChatInput{SessionID: sessionID, Text: text}); err != nil {
		return nil, err
	}
	return a.ChatHistory.Query(ctx, sessionID)
}

// SelectAndSnapshot loads sku for the viewer and returns the resulting state.
// A superseded load still returns the viewer's newest snapshot.
func (a Actions) SelectAndSnapshot(ctx context.Context, viewer dashboard.ViewerContext, sku string) (dashboard.Snapshot, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		products, err := a.Products.Query(ctx, struct{}{})
		if err != nil {
			return dashboard.Snapshot{}, err
		}
		sku = dashboard.DefaultSKU(products)
		if sku == "" {
			return dashboard.Snapshot{Status: dashboard.StatusIdle}, nil
		}
	}
	err := a.SelectProduct.Execute(ctx, commands.SelectProductInput{Viewer: viewer, SKU: sku})
	snap, qerr := a.Snapshot.Query(ctx, viewer)
	if qerr != nil {
		return dashboard.Snapshot{}, qerr
	}
	if err != nil && RequiresLogin(err) {
		return snap, err
	}
	if errors.Is(err, dashboard.ErrSuperseded) {
		return snap, err
	}
	return snap, nil
}

// Pages is the controller's view of the actions: products, settings and
// profile come from the queries, and insights are selected through
// SelectAndSnapshot.
func (a Actions) Pages() dashboard.PageService {
	return actionPages{actions: a}
}

type actionPages struct {
	actions Actions
}

func (p actionPages) Products(ctx context.Context) ([]dashboard.ProductSummary, error) {
	return p.actions.Products.Query(ctx, struct{}{})
}

func (p actionPages) LoadInsights(ctx context.Context, viewer dashboard.ViewerContext, sku string) (dashboard.Snapshot, error) {
	return p.actions.SelectAndSnapshot(ctx, viewer, sku)
}

func (p actionPages) ConfigureLayout(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Layout, error) {
	return p.actions.Layout.Query(ctx, viewer)
}

func (p actionPages) Settings(ctx context.Context) (dashboard.SellerSettings, error) {
	return p.actions.Settings.Query(ctx, struct{}{})
}

func (p actionPages) Profile(ctx context.Context) (dashboard.SellerProfile, error) {
	return p.actions.Profile.Query(ctx, struct{}{})
}

// Viewer builds the viewer of a request, falling back to the configured locale.
func (a Actions) Viewer(sessionID, acceptLanguage string) dashboard.ViewerContext {
	fallback := a.Locale
	if fallback == "" {
		fallback = "en"
	}
	return dashboard.ViewerContext{SessionID: sessionID, Locale: normalizeLocale(acceptLanguage, fallback)}
}

// ViewerFor builds the viewer of a request with English as the fallback.
func ViewerFor(sessionID, acceptLanguage string) dashboard.ViewerContext {
	return Actions{}.Viewer(sessionID, acceptLanguage)
}

func normalizeLocale(header, fallback string) string {
	for _, token := range strings.Split(header, ",") {
		token = strings.TrimSpace(token)
		if idx := strings.IndexAny(token, ";-_"); idx >= 0 {
			token = token[:idx]
		}
		switch strings.ToLower(token) {
		case "fa":
			return "fa"
		case "en":
			return "en"
		}
	}
	return fallback
}
