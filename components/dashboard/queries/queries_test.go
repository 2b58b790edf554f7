package queries

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
	"github.com/goliatone/go-predify/pkg/assistant"
)

type stubLayoutService struct {
	calls int
}

func (s *stubLayoutService) ConfigureLayout(context.Context, dashboard.ViewerContext) (dashboard.Layout, error) {
	s.calls++
	return dashboard.Layout{Snapshot: dashboard.Snapshot{Status: dashboard.StatusReady}}, nil
}

type stubSeller struct {
	err error
}

func (s stubSeller) Products(context.Context) ([]dashboard.ProductSummary, error) {
	return []dashboard.ProductSummary{{ProductID: "DK-1"}}, s.err
}

func (s stubSeller) Settings(context.Context) (dashboard.SellerSettings, error) {
	return dashboard.SellerSettings{LeadTimeDays: 7}, s.err
}

func (s stubSeller) Profile(context.Context) (dashboard.SellerProfile, error) {
	return dashboard.SellerProfile{ShopTitle: "Shop"}, s.err
}

func (s stubSeller) CardAnalysis(_ context.Context, _ dashboard.ViewerContext, req dashboard.CardAnalysisRequest) (dashboard.CardAnalysis, error) {
	return dashboard.CardAnalysis{Analysis: "brief for " + req.CardID}, s.err
}

func (s stubSeller) Snapshot(viewer dashboard.ViewerContext) dashboard.Snapshot {
	return dashboard.Snapshot{Status: dashboard.StatusLoading, SKU: viewer.SessionID}
}

func TestLayoutQuery(t *testing.T) {
	service := &stubLayoutService{}
	query := NewLayoutQuery(service)
	layout, err := query.Query(context.Background(), dashboard.ViewerContext{})
	require.NoError(t, err)
	assert.Equal(t, 1, service.calls)
	assert.Equal(t, dashboard.StatusReady, layout.Snapshot.Status)
}

func TestInsightsQuery(t *testing.T) {
	snap, err := NewInsightsQuery(stubSeller{}).Query(context.Background(), dashboard.ViewerContext{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, dashboard.StatusLoading, snap.Status)
	assert.Equal(t, "s1", snap.SKU)
}

func TestSellerQueries(t *testing.T) {
	ctx := context.Background()
	products, err := NewProductsQuery(stubSeller{}).Query(ctx, struct{}{})
	require.NoError(t, err)
	assert.Len(t, products, 1)

	settings, err := NewSettingsQuery(stubSeller{}).Query(ctx, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, 7.0, settings.LeadTimeDays)

	profile, err := NewProfileQuery(stubSeller{}).Query(ctx, struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "Shop", profile.ShopTitle)

	analysis, err := NewCardAnalysisQuery(stubSeller{}).Query(ctx, CardAnalysisInput{Request: dashboard.CardAnalysisRequest{CardID: "breakeven"}})
	require.NoError(t, err)
	assert.Equal(t, "brief for breakeven", analysis.Analysis)

	boom := errors.New("boom")
	_, err = NewProfileQuery(stubSeller{err: boom}).Query(ctx, struct{}{})
	assert.ErrorIs(t, err, boom)

	_, err = NewSettingsQuery(nil).Query(ctx, struct{}{})
	assert.ErrorIs(t, err, errMissingService)
}

func TestChatHistoryQuery(t *testing.T) {
	bot := assistant.New(assistant.Options{Generator: assistant.GeneratorFunc(func(context.Context, assistant.Request) (string, error) {
		return "reply", nil
	})})
	_, err := bot.Chat(context.Background(), "s1", "hello")
	require.NoError(t, err)

	history, err := NewChatHistoryQuery(bot).Query(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "reply", history[1].Text)
}

func TestLessonQuery(t *testing.T) {
	bot := assistant.New(assistant.Options{})
	lesson, err := NewLessonQuery(bot).Query(context.Background(), "optimal-pricing")
	require.NoError(t, err)
	assert.Equal(t, assistant.TopicOptimalPricing, lesson.Topic)
	assert.Equal(t, "optimal-pricing", lesson.Slug)
	assert.Equal(t, assistant.LessonFallback, lesson.Markdown)

	_, err = NewLessonQuery(bot).Query(context.Background(), "crypto")
	assert.ErrorIs(t, err, assistant.ErrUnknownTopic)
}
