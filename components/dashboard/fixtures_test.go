package dashboard

import (
	"context"
	"sync"
)

func f64(v float64) *float64 { return &v }

// fakeSource serves canned insights. A gate for a sku blocks its fetches until
// the gate is closed or the request context ends.
type fakeSource struct {
	mu       sync.Mutex
	products []ProductSummary
	gates    map[string]chan struct{}
	fail     map[InsightKind]error
	calls    map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		products: []ProductSummary{
			{ProductID: "101", Title: "Ceramic Mug"},
			{ProductID: "202", Title: "Steel Bottle"},
		},
		gates: map[string]chan struct{}{},
		fail:  map[InsightKind]error{},
		calls: map[string]int{},
	}
}

func (f *fakeSource) gate(sku string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[sku] = ch
	return ch
}

func (f *fakeSource) wait(ctx context.Context, kind InsightKind, sku string) error {
	f.mu.Lock()
	f.calls[sku]++
	gate := f.gates[sku]
	err := f.fail[kind]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeSource) Products(context.Context) ([]ProductSummary, error) {
	return append([]ProductSummary(nil), f.products...), nil
}

func (f *fakeSource) ProfitMargin(ctx context.Context, sku string) (ProfitMargin, error) {
	if err := f.wait(ctx, InsightProfitMargin, sku); err != nil {
		return ProfitMargin{}, err
	}
	return ProfitMargin{SKU: sku, ProductID: sku, Title: "Product " + sku, Price: 250000, CommissionPct: 12, BuyPrice: 150000, OtherCosts: 10000, NetProfit: 60000, MarginPct: 24}, nil
}

func (f *fakeSource) SlowMovers(ctx context.Context, sku string) (SlowMovers, error) {
	if err := f.wait(ctx, InsightSlowMovers, sku); err != nil {
		return SlowMovers{}, err
	}
	return SlowMovers{
		Thresholds: SlowMoverThresholds{MinWeeklySales: 2, MinMarginPct: 10, MinDaysActive: 30},
		Items:      []SlowMoverItem{{ProductID: sku, Title: "Product " + sku, WeeklySales: 0.5, MarginPct: 4, Stock: 40, Recommendation: "discount"}},
	}, nil
}

func (f *fakeSource) Breakeven(ctx context.Context, sku string) (Breakeven, error) {
	if err := f.wait(ctx, InsightBreakeven, sku); err != nil {
		return Breakeven{}, err
	}
	return Breakeven{SKU: sku, Price: 250000, FixedCosts: 5000000, VariableCost: 190000, BreakevenUnits: 84, CurrentSoldUnits: 42, ProgressPct: 50}, nil
}

func (f *fakeSource) GoldenTimes(ctx context.Context, sku string) (GoldenTimes, error) {
	if err := f.wait(ctx, InsightGoldenTimes, sku); err != nil {
		return GoldenTimes{}, err
	}
	return GoldenTimes{SuggestedHours: []string{"20:00", "21:00"}, BestDays: []BestDay{{Weekday: "Friday", Quantity: 12}}}, nil
}

func (f *fakeSource) RevenueForecast(ctx context.Context, sku string) (RevenueForecast, error) {
	if err := f.wait(ctx, InsightRevenueForecast, sku); err != nil {
		return RevenueForecast{}, err
	}
	return RevenueForecast{CurrentMonth: "2025-05", SoFarRevenue: 1000000, ForecastRevenue: 2400000, LastMonthRevenue: 2000000, Trend: "up", Confidence: 0.8,
		Timeline: []RevenuePoint{{Date: "2025-05-01", Revenue: 500000}, {Date: "2025-05-02", Revenue: 500000}}}, nil
}

func (f *fakeSource) DiscountCompetition(ctx context.Context, sku string) (DiscountCompetition, error) {
	if err := f.wait(ctx, InsightDiscountCompetition, sku); err != nil {
		return DiscountCompetition{}, err
	}
	return DiscountCompetition{YourPrice: 250000, YourDiscountPct: 10, EffectivePrice: 225000, Competitors: []Competitor{{Name: "Rival", Price: 240000}}, AdvantagePct: f64(6.25), Position: "cheapest"}, nil
}

func (f *fakeSource) RestockTime(ctx context.Context, sku string) (RestockTime, error) {
	if err := f.wait(ctx, InsightRestockTime, sku); err != nil {
		return RestockTime{}, err
	}
	return RestockTime{CurrentStock: 40, DailySalesAvg: 2, DaysToStockout: 20, SupplierLeadTimeDays: f64(7), RecommendedOrderQty: 30, RiskLevel: "low"}, nil
}

func (f *fakeSource) SpeedCompare(ctx context.Context, sku string) (SpeedCompare, error) {
	if err := f.wait(ctx, InsightSpeedCompare, sku); err != nil {
		return SpeedCompare{}, err
	}
	return SpeedCompare{OldProductTitle: "Old", NewProductTitle: "New", OldSpeed: f64(1.5), NewSpeed: f64(3), SpeedChangePct: f64(100), Conclusion: "New model sells twice as fast."}, nil
}

func (f *fakeSource) CommentAnalysis(ctx context.Context, sku string) (CommentAnalysis, error) {
	if err := f.wait(ctx, InsightCommentAnalysis, sku); err != nil {
		return CommentAnalysis{}, err
	}
	return CommentAnalysis{TotalReviews: 12, AvgRating: f64(4.2), SentimentScore: f64(0.6), SummaryEN: "Customers like it.", TopIssuesEN: []string{"packaging"}}, nil
}

type stubSettings struct {
	current SellerSettings
	patches []SettingsPatch
	err     error
}

func (s *stubSettings) Settings(context.Context) (SellerSettings, error) {
	return s.current, s.err
}

func (s *stubSettings) UpdateSettings(_ context.Context, patch SettingsPatch) (SellerSettings, error) {
	if s.err != nil {
		return SellerSettings{}, s.err
	}
	s.patches = append(s.patches, patch)
	s.current = patch.Apply(s.current)
	return s.current, nil
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTelemetry) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}
