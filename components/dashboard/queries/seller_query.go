package queries

import (
	"context"
	"errors"
	"strings"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/pkg/assistant"
)

var errMissingService = errors.New("queries: service is required")

type productService interface {
	Products(ctx context.Context) ([]dashboard.ProductSummary, error)
}

// ProductsQuery lists the seller's products.
type ProductsQuery struct {
	service productService
}

// NewProductsQuery builds the query.
func NewProductsQuery(service productService) *ProductsQuery {
	return &ProductsQuery{service: service}
}

var _ gocommand.Querier[struct{}, []dashboard.ProductSummary] = (*ProductsQuery)(nil)

// Query returns the product list.
func (q *ProductsQuery) Query(ctx context.Context, _ struct{}) ([]dashboard.ProductSummary, error) {
	if q.service == nil {
		return nil, errMissingService
	}
	return q.service.Products(ctx)
}

type settingsService interface {
	Settings(ctx context.Context) (dashboard.SellerSettings, error)
}

// SettingsQuery loads the seller's settings.
type SettingsQuery struct {
	service settingsService
}

// NewSettingsQuery builds the query.
func NewSettingsQuery(service settingsService) *SettingsQuery {
	return &SettingsQuery{service: service}
}

var _ gocommand.Querier[struct{}, dashboard.SellerSettings] = (*SettingsQuery)(nil)

// Query returns the settings.
func (q *SettingsQuery) Query(ctx context.Context, _ struct{}) (dashboard.SellerSettings, error) {
	if q.service == nil {
		return dashboard.SellerSettings{}, errMissingService
	}
	return q.service.Settings(ctx)
}

type profileService interface {
	Profile(ctx context.Context) (dashboard.SellerProfile, error)
}

// ProfileQuery loads the seller's profile.
type ProfileQuery struct {
	service profileService
}

// NewProfileQuery builds the query.
func NewProfileQuery(service profileService) *ProfileQuery {
	return &ProfileQuery{service: service}
}

var _ gocommand.Querier[struct{}, dashboard.SellerProfile] = (*ProfileQuery)(nil)

// Query returns the profile.
func (q *ProfileQuery) Query(ctx context.Context, _ struct{}) (dashboard.SellerProfile, error) {
	if q.service == nil {
		return dashboard.SellerProfile{}, errMissingService
	}
	return q.service.Profile(ctx)
}

// CardAnalysisInput asks for the brief of one card on behalf of a viewer.
type CardAnalysisInput struct {
	Viewer  dashboard.ViewerContext
	Request dashboard.CardAnalysisRequest
}

type cardAnalysisService interface {
	CardAnalysis(ctx context.Context, viewer dashboard.ViewerContext, req dashboard.CardAnalysisRequest) (dashboard.CardAnalysis, error)
}

// CardAnalysisQuery requests a card brief from the backend.
type CardAnalysisQuery struct {
	service cardAnalysisService
}

// NewCardAnalysisQuery builds the query.
func NewCardAnalysisQuery(service cardAnalysisService) *CardAnalysisQuery {
	return &CardAnalysisQuery{service: service}
}

var _ gocommand.Querier[CardAnalysisInput, dashboard.CardAnalysis] = (*CardAnalysisQuery)(nil)

// Query returns the analysis.
func (q *CardAnalysisQuery) Query(ctx context.Context, input CardAnalysisInput) (dashboard.CardAnalysis, error) {
	if q.service == nil {
		return dashboard.CardAnalysis{}, errMissingService
	}
	return q.service.CardAnalysis(ctx, input.Viewer, input.Request)
}

type historyService interface {
	History(sessionID string) []assistant.Message
}

// ChatHistoryQuery returns a session's chat transcript.
type ChatHistoryQuery struct {
	service historyService
}

// NewChatHistoryQuery builds the query.
func NewChatHistoryQuery(service historyService) *ChatHistoryQuery {
	return &ChatHistoryQuery{service: service}
}

var _ gocommand.Querier[string, []assistant.Message] = (*ChatHistoryQuery)(nil)

// Query returns the transcript, oldest first.
func (q *ChatHistoryQuery) Query(_ context.Context, sessionID string) ([]assistant.Message, error) {
	if q.service == nil {
		return nil, errMissingService
	}
	return q.service.History(sessionID), nil
}

// Lesson is a generated micro-lesson.
type Lesson struct {
	Topic    assistant.Topic `json:"topic"`
	Slug     string          `json:"slug"`
	Markdown string          `json:"markdown"`
}

type lessonService interface {
	MicroLesson(ctx context.Context, topic assistant.Topic) string
}

// LessonQuery generates the micro-lesson for a topic name or slug.
type LessonQuery struct {
	service lessonService
}

// NewLessonQuery builds the query.
func NewLessonQuery(service lessonService) *LessonQuery {
	return &LessonQuery{service: service}
}

var _ gocommand.Querier[string, Lesson] = (*LessonQuery)(nil)

// Query resolves the topic and returns its lesson. Unknown topics fail with
// assistant.ErrUnknownTopic.
func (q *LessonQuery) Query(ctx context.Context, topic string) (Lesson, error) {
	if q.service == nil {
		return Lesson{}, errMissingService
	}
	parsed, err := assistant.ParseTopic(strings.TrimSpace(topic))
	if err != nil {
		return Lesson{}, err
	}
	return Lesson{
		Topic:    parsed,
		Slug:     parsed.Slug(),
		Markdown: q.service.MicroLesson(ctx, parsed),
	}, nil
}
