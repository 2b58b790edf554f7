package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
)

// MockData seeds deterministic backend responses for demo mode and tests.
type MockData struct {
	Products []dashboard.ProductSummary
	Sets     map[string]dashboard.InsightSet
	Settings dashboard.SellerSettings
	Profile  dashboard.SellerProfile
}

// MockClient implements Client using in-memory fixtures. Errors and delays can
// be injected per insight kind.
type MockClient struct {
	mu     sync.RWMutex
	data   MockData
	errs   map[dashboard.InsightKind]error
	delays map[dashboard.InsightKind]time.Duration
	now    func() time.Time
}

var _ Client = (*MockClient)(nil)

// NewMockClient builds a mock backend from the provided fixtures.
func NewMockClient(data MockData) *MockClient {
	if data.Sets == nil {
		data.Sets = map[string]dashboard.InsightSet{}
	}
	return &MockClient{
		data:   data,
		errs:   map[dashboard.InsightKind]error{},
		delays: map[dashboard.InsightKind]time.Duration{},
		now:    time.Now,
	}
}

// FailKind makes every fetch of kind return err. A nil err clears it.
func (c *MockClient) FailKind(kind dashboard.InsightKind, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, kind)
		return
	}
	c.errs[kind] = err
}

// DelayKind slows fetches of kind, honouring context cancellation.
func (c *MockClient) DelayKind(kind dashboard.InsightKind, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays[kind] = d
}

// Login issues a short-lived demo token pair for any non-blank seller token.
func (c *MockClient) Login(_ context.Context, sellerToken string) (LoginResult, error) {
	sellerToken = strings.TrimSpace(sellerToken)
	if sellerToken == "" {
		return LoginResult{}, ErrBlankSellerToken
	}
	now := c.now()
	access, err := demoToken(now.Add(time.Hour), "access")
	if err != nil {
		return LoginResult{}, err
	}
	refresh, err := demoToken(now.Add(24*time.Hour), "refresh")
	if err != nil {
		return LoginResult{}, err
	}
	c.mu.RLock()
	shop := c.data.Profile.ShopTitle
	c.mu.RUnlock()
	return LoginResult{
		Access:  access,
		Refresh: refresh,
		Seller:  SellerPreview{ID: 1, Username: "demo", ShopTitle: shop},
		IsFake:  true,
	}, nil
}

func demoToken(exp time.Time, kind string) (string, error) {
	claims := jwt.MapClaims{"exp": exp.Unix(), "token_type": kind}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("predify-demo"))
	if err != nil {
		return "", fmt.Errorf("backend: sign demo token: %w", err)
	}
	return token, nil
}

// Profile returns the fixture profile.
func (c *MockClient) Profile(context.Context) (dashboard.SellerProfile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Profile, nil
}

// Products returns the fixture product list.
func (c *MockClient) Products(context.Context) ([]dashboard.ProductSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.ProductSummary(nil), c.data.Products...), nil
}

// Settings returns the stored settings.
func (c *MockClient) Settings(context.Context) (dashboard.SellerSettings, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Settings, nil
}

// UpdateSettings applies patch to the stored settings.
func (c *MockClient) UpdateSettings(_ context.Context, patch dashboard.SettingsPatch) (dashboard.SellerSettings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Settings = patch.Apply(c.data.Settings)
	return c.data.Settings, nil
}

// CardAnalysis returns a canned brief naming the card and product.
func (c *MockClient) CardAnalysis(_ context.Context, req dashboard.CardAnalysisRequest) (dashboard.CardAnalysis, error) {
	return dashboard.CardAnalysis{
		Analysis: fmt.Sprintf("Demo analysis for %s on product %s: the numbers look stable, keep monitoring weekly.", req.CardID, req.ProductID),
	}, nil
}

func (c *MockClient) set(ctx context.Context, kind dashboard.InsightKind, sku string) (dashboard.InsightSet, error) {
	c.mu.RLock()
	delay := c.delays[kind]
	err := c.errs[kind]
	set, ok := c.data.Sets[sku]
	c.mu.RUnlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return dashboard.InsightSet{}, ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return dashboard.InsightSet{}, err
	}
	if !ok {
		return dashboard.InsightSet{}, &RemoteError{Status: 404, Body: `{"detail":"Not found."}`}
	}
	return set, nil
}

// ProfitMargin implements dashboard.InsightSource.
func (c *MockClient) ProfitMargin(ctx context.Context, sku string) (dashboard.ProfitMargin, error) {
	set, err := c.set(ctx, dashboard.InsightProfitMargin, sku)
	return set.ProfitMargin, err
}

// SlowMovers implements dashboard.InsightSource.
func (c *MockClient) SlowMovers(ctx context.Context, sku string) (dashboard.SlowMovers, error) {
	set, err := c.set(ctx, dashboard.InsightSlowMovers, sku)
	return set.SlowMovers, err
}

// Breakeven implements dashboard.InsightSource.
func (c *MockClient) Breakeven(ctx context.Context, sku string) (dashboard.Breakeven, error) {
	set, err := c.set(ctx, dashboard.InsightBreakeven, sku)
	return set.Breakeven, err
}

// GoldenTimes implements dashboard.InsightSource.
func (c *MockClient) GoldenTimes(ctx context.Context, sku string) (dashboard.GoldenTimes, error) {
	set, err := c.set(ctx, dashboard.InsightGoldenTimes, sku)
	return set.GoldenTimes, err
}

// RevenueForecast implements dashboard.InsightSource.
func (c *MockClient) RevenueForecast(ctx context.Context, sku string) (dashboard.RevenueForecast, error) {
	set, err := c.set(ctx, dashboard.InsightRevenueForecast, sku)
	return set.RevenueForecast, err
}

// DiscountCompetition implements dashboard.InsightSource.
func (c *MockClient) DiscountCompetition(ctx context.Context, sku string) (dashboard.DiscountCompetition, error) {
	set, err := c.set(ctx, dashboard.InsightDiscountCompetition, sku)
	return set.DiscountCompetition, err
}

// RestockTime implements dashboard.InsightSource.
func (c *MockClient) RestockTime(ctx context.Context, sku string) (dashboard.RestockTime, error) {
	set, err := c.set(ctx, dashboard.InsightRestockTime, sku)
	return set.RestockTime, err
}

// SpeedCompare implements dashboard.InsightSource.
func (c *MockClient) SpeedCompare(ctx context.Context, sku string) (dashboard.SpeedCompare, error) {
	set, err := c.set(ctx, dashboard.InsightSpeedCompare, sku)
	return set.SpeedCompare, err
}

// CommentAnalysis implements dashboard.InsightSource.
func (c *MockClient) CommentAnalysis(ctx context.Context, sku string) (dashboard.CommentAnalysis, error) {
	set, err := c.set(ctx, dashboard.InsightCommentAnalysis, sku)
	return set.CommentAnalysis, err
}
