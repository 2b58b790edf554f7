package backend

import (
	"context"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
)

func getInsight[T any](ctx context.Context, c *HTTPClient, kind dashboard.InsightKind, sku string) (T, error) {
	var out T
	err := c.get(ctx, insightPath(kind, sku), &out)
	return out, err
}

// ProfitMargin implements dashboard.InsightSource.
func (c *HTTPClient) ProfitMargin(ctx context.Context, sku string) (dashboard.ProfitMargin, error) {
	return getInsight[dashboard.ProfitMargin](ctx, c, dashboard.InsightProfitMargin, sku)
}

// SlowMovers implements dashboard.InsightSource.
func (c *HTTPClient) SlowMovers(ctx context.Context, sku string) (dashboard.SlowMovers, error) {
	return getInsight[dashboard.SlowMovers](ctx, c, dashboard.InsightSlowMovers, sku)
}

// Breakeven implements dashboard.InsightSource.
func (c *HTTPClient) Breakeven(ctx context.Context, sku string) (dashboard.Breakeven, error) {
	return getInsight[dashboard.Breakeven](ctx, c, dashboard.InsightBreakeven, sku)
}

// GoldenTimes implements dashboard.InsightSource.
func (c *HTTPClient) GoldenTimes(ctx context.Context, sku string) (dashboard.GoldenTimes, error) {
	return getInsight[dashboard.GoldenTimes](ctx, c, dashboard.InsightGoldenTimes, sku)
}

// RevenueForecast implements dashboard.InsightSource.
func (c *HTTPClient) RevenueForecast(ctx context.Context, sku string) (dashboard.RevenueForecast, error) {
	return getInsight[dashboard.RevenueForecast](ctx, c, dashboard.InsightRevenueForecast, sku)
}

// DiscountCompetition implements dashboard.InsightSource.
func (c *HTTPClient) DiscountCompetition(ctx context.Context, sku string) (dashboard.DiscountCompetition, error) {
	return getInsight[dashboard.DiscountCompetition](ctx, c, dashboard.InsightDiscountCompetition, sku)
}

// RestockTime implements dashboard.InsightSource.
func (c *HTTPClient) RestockTime(ctx context.Context, sku string) (dashboard.RestockTime, error) {
	return getInsight[dashboard.RestockTime](ctx, c, dashboard.InsightRestockTime, sku)
}

// SpeedCompare implements dashboard.InsightSource.
func (c *HTTPClient) SpeedCompare(ctx context.Context, sku string) (dashboard.SpeedCompare, error) {
	return getInsight[dashboard.SpeedCompare](ctx, c, dashboard.InsightSpeedCompare, sku)
}

// CommentAnalysis implements dashboard.InsightSource.
func (c *HTTPClient) CommentAnalysis(ctx context.Context, sku string) (dashboard.CommentAnalysis, error) {
	return getInsight[dashboard.CommentAnalysis](ctx, c, dashboard.InsightCommentAnalysis, sku)
}
