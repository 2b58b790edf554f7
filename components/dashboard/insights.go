package dashboard

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ettle/strcase"
)

// InsightKind names one of the nine per-product analyses served by the backend.
type InsightKind string

const (
	InsightProfitMargin        InsightKind = "profit_margin"
	InsightSlowMovers          InsightKind = "slow_movers"
	InsightBreakeven           InsightKind = "breakeven"
	InsightGoldenTimes         InsightKind = "golden_times"
	InsightRevenueForecast     InsightKind = "revenue_forecast"
	InsightDiscountCompetition InsightKind = "discount_competition"
	InsightRestockTime         InsightKind = "restock_time"
	InsightSpeedCompare        InsightKind = "speed_compare"
	InsightCommentAnalysis     InsightKind = "comment_analysis"
)

// InsightKinds lists every kind in dashboard order.
var InsightKinds = []InsightKind{
	InsightProfitMargin,
	InsightSlowMovers,
	InsightBreakeven,
	InsightGoldenTimes,
	InsightRevenueForecast,
	InsightDiscountCompetition,
	InsightRestockTime,
	InsightSpeedCompare,
	InsightCommentAnalysis,
}

// Slug is the path segment used by the backend (`profit-margin`).
func (k InsightKind) Slug() string {
	return strcase.ToKebab(string(k))
}

// WidgetCode is the registry code of the card rendering this kind.
func (k InsightKind) WidgetCode() string {
	return "seller.widget." + strcase.ToSnake(string(k))
}

// Valid reports whether k is one of the known kinds.
func (k InsightKind) Valid() bool {
	for _, known := range InsightKinds {
		if known == k {
			return true
		}
	}
	return false
}

// ParseInsightKind accepts snake, kebab or camel spellings.
func ParseInsightKind(value string) (InsightKind, error) {
	kind := InsightKind(strcase.ToSnake(strings.TrimSpace(value)))
	if !kind.Valid() {
		return "", fmt.Errorf("dashboard: unknown insight kind %q", value)
	}
	return kind, nil
}

// ProductSummary is one entry of the product selector.
type ProductSummary struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Category  string `json:"category,omitempty"`
	Brand     string `json:"brand,omitempty"`
}

// ProfitMargin is the net-profit breakdown of a product.
type ProfitMargin struct {
	SKU           string  `json:"sku,omitempty"`
	ProductID     string  `json:"product_id,omitempty"`
	Title         string  `json:"title"`
	Category      string  `json:"category,omitempty"`
	Brand         string  `json:"brand,omitempty"`
	Price         float64 `json:"price"`
	CommissionPct float64 `json:"commission_pct"`
	BuyPrice      float64 `json:"buy_price"`
	OtherCosts    float64 `json:"other_costs"`
	NetProfit     float64 `json:"net_profit"`
	MarginPct     float64 `json:"margin_pct"`
	SoldUnits     int     `json:"sold_units,omitempty"`
}

// SlowMoverThresholds echoes the settings used to classify slow movers.
type SlowMoverThresholds struct {
	MinWeeklySales float64 `json:"min_weekly_sales"`
	MinMarginPct   float64 `json:"min_margin_pct"`
	MinDaysActive  float64 `json:"min_days_active"`
	ExtraCostPct   float64 `json:"extra_cost_pct"`
}

// SlowMoverItem is a product flagged for low sales speed.
type SlowMoverItem struct {
	SKU                string  `json:"sku,omitempty"`
	ProductID          string  `json:"product_id"`
	Title              string  `json:"title"`
	Category           string  `json:"category,omitempty"`
	WeeklySales        float64 `json:"weekly_sales"`
	TotalSold          float64 `json:"total_sold"`
	MarginPct          float64 `json:"margin_pct"`
	Stock              float64 `json:"stock"`
	DaysActive         float64 `json:"days_active"`
	ProfitPerUnit      float64 `json:"profit_per_unit"`
	ProfitabilityIndex float64 `json:"profitability_index"`
	Recommendation     string  `json:"recommendation"`
	Reason             string  `json:"reason,omitempty"`
}

// SlowMovers is the slow-mover report.
type SlowMovers struct {
	Thresholds SlowMoverThresholds `json:"thresholds"`
	Items      []SlowMoverItem     `json:"items"`
}

// Breakeven reports progress toward covering fixed costs.
type Breakeven struct {
	SKU              string  `json:"sku,omitempty"`
	Title            string  `json:"title"`
	Price            float64 `json:"price"`
	FixedCosts       float64 `json:"fixed_costs"`
	VariableCost     float64 `json:"variable_cost"`
	BreakevenUnits   float64 `json:"breakeven_units"`
	CurrentSoldUnits float64 `json:"current_sold_units"`
	ProgressPct      float64 `json:"progress_pct"`
}

// BestDay is either a bare weekday name or a weekday with a sold quantity.
type BestDay struct {
	Weekday  string  `json:"weekday"`
	Quantity float64 `json:"quantity,omitempty"`
}

// UnmarshalJSON accepts "Monday" or {"weekday": "Monday", "quantity": 3}.
func (d *BestDay) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*d = BestDay{Weekday: name}
		return nil
	}
	type plain BestDay
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("dashboard: best day: %w", err)
	}
	*d = BestDay(obj)
	return nil
}

// PeakPoint is either a bare date or a date with a label.
type PeakPoint struct {
	Date  string `json:"date"`
	Label string `json:"label,omitempty"`
}

// UnmarshalJSON accepts "2024-05-01" or {"date": "...", "label": "..."}.
func (p *PeakPoint) UnmarshalJSON(data []byte) error {
	var date string
	if err := json.Unmarshal(data, &date); err == nil {
		*p = PeakPoint{Date: date}
		return nil
	}
	type plain PeakPoint
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("dashboard: peak point: %w", err)
	}
	*p = PeakPoint(obj)
	return nil
}

// Text renders the point the way the card lists it.
func (p PeakPoint) Text() string {
	if p.Label == "" {
		return p.Date
	}
	if p.Date == "" {
		return p.Label
	}
	return p.Date + " (" + p.Label + ")"
}

// UpcomingDate is a calendar date predicted to sell well.
type UpcomingDate struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday,omitempty"`
}

// GoldenTimes lists the best hours and days to sell.
type GoldenTimes struct {
	SuggestedHours    []string       `json:"suggested_hours"`
	BestDays          []BestDay      `json:"best_days"`
	PeakPoints        []PeakPoint    `json:"peak_points,omitempty"`
	UpcomingBestDates []UpcomingDate `json:"upcoming_best_dates,omitempty"`
}

// RevenuePoint is one day of the revenue timeline.
type RevenuePoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// RevenueForecast projects the current month's revenue.
type RevenueForecast struct {
	CurrentMonth     string         `json:"current_month"`
	SoFarRevenue     float64        `json:"so_far_revenue"`
	ForecastRevenue  float64        `json:"forecast_revenue"`
	LastMonthRevenue float64        `json:"last_month_revenue"`
	Trend            string         `json:"trend"`
	Confidence       float64        `json:"confidence"`
	Timeline         []RevenuePoint `json:"timeline,omitempty"`
}

// Competitor is a rival offer for the same product.
type Competitor struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// DiscountCompetition compares the seller's effective price with competitors.
type DiscountCompetition struct {
	YourPrice       float64      `json:"your_price"`
	YourDiscountPct float64      `json:"your_discount_pct"`
	EffectivePrice  float64      `json:"effective_price"`
	Competitors     []Competitor `json:"competitors"`
	AdvantagePct    *float64     `json:"effective_discount_vs_cheapest_pct"`
	Position        string       `json:"position"`
}

// RestockTime estimates when stock runs out and how much to reorder.
type RestockTime struct {
	Title                   string   `json:"title"`
	CurrentStock            float64  `json:"current_stock"`
	DailySalesAvg           float64  `json:"daily_sales_avg"`
	DaysToStockout          float64  `json:"days_to_stockout"`
	SupplierLeadTimeDays    *float64 `json:"supplier_lead_time_days"`
	TypicalRestockDelayDays *float64 `json:"typical_restock_delay_days"`
	RecommendedOrderQty     float64  `json:"recommended_order_qty"`
	RiskLevel               string   `json:"risk_level"`
	RecommendationText      string   `json:"recommendation_text"`
}

// SpeedCompare compares sales speed of an old and a new product.
type SpeedCompare struct {
	OldProductTitle string   `json:"old_product_title"`
	NewProductTitle string   `json:"new_product_title"`
	OldSpeed        *float64 `json:"old_speed"`
	NewSpeed        *float64 `json:"new_speed"`
	SpeedChangePct  *float64 `json:"speed_change_pct"`
	Conclusion      string   `json:"conclusion"`
}

// CommentAnalysis summarizes customer reviews.
type CommentAnalysis struct {
	TotalReviews     float64  `json:"total_reviews"`
	AvgRating        *float64 `json:"avg_rating"`
	SentimentScore   *float64 `json:"sentiment_score"`
	SummaryEN        string   `json:"summary_en"`
	TopIssuesEN      []string `json:"top_issues_en"`
	TopHighlightsEN  []string `json:"top_highlights_en"`
	SampleCommentsFA []string `json:"sample_comments_fa"`
}

// InsightSet carries all nine analyses for one product. It is only built when
// every fetch succeeded.
type InsightSet struct {
	SKU                 string              `json:"sku"`
	ProfitMargin        ProfitMargin        `json:"profit_margin"`
	SlowMovers          SlowMovers          `json:"slow_movers"`
	Breakeven           Breakeven           `json:"breakeven"`
	GoldenTimes         GoldenTimes         `json:"golden_times"`
	RevenueForecast     RevenueForecast     `json:"revenue_forecast"`
	DiscountCompetition DiscountCompetition `json:"discount_competition"`
	RestockTime         RestockTime         `json:"restock_time"`
	SpeedCompare        SpeedCompare        `json:"speed_compare"`
	CommentAnalysis     CommentAnalysis     `json:"comment_analysis"`
}

// SellerSettings are the thresholds the backend applies to its analyses.
type SellerSettings struct {
	ExtraCostPct       float64 `json:"extra_cost_pct"`
	SlowMoverMinSpeed  float64 `json:"slow_mover_min_speed"`
	SlowMoverMinMargin float64 `json:"slow_mover_min_margin"`
	LeadTimeDays       float64 `json:"lead_time_days"`
}

// SettingsPatch is a partial settings update. Nil fields are left untouched.
type SettingsPatch struct {
	ExtraCostPct       *float64 `json:"extra_cost_pct,omitempty"`
	SlowMoverMinSpeed  *float64 `json:"slow_mover_min_speed,omitempty"`
	SlowMoverMinMargin *float64 `json:"slow_mover_min_margin,omitempty"`
	LeadTimeDays       *float64 `json:"lead_time_days,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.ExtraCostPct == nil && p.SlowMoverMinSpeed == nil && p.SlowMoverMinMargin == nil && p.LeadTimeDays == nil
}

// Apply returns s with the patch fields overlaid.
func (p SettingsPatch) Apply(s SellerSettings) SellerSettings {
	if p.ExtraCostPct != nil {
		s.ExtraCostPct = *p.ExtraCostPct
	}
	if p.SlowMoverMinSpeed != nil {
		s.SlowMoverMinSpeed = *p.SlowMoverMinSpeed
	}
	if p.SlowMoverMinMargin != nil {
		s.SlowMoverMinMargin = *p.SlowMoverMinMargin
	}
	if p.LeadTimeDays != nil {
		s.LeadTimeDays = *p.LeadTimeDays
	}
	return s
}

// ProfileMetrics are the headline numbers on the profile page.
type ProfileMetrics struct {
	TotalProducts  float64 `json:"total_products"`
	ActiveProducts float64 `json:"active_products"`
	MonthlyOrders  float64 `json:"monthly_orders"`
	MonthlyRevenue float64 `json:"monthly_revenue"`
}

// SellerProfile describes the logged-in shop.
type SellerProfile struct {
	SellerCode  string         `json:"seller_code"`
	ShopTitle   string         `json:"shop_title"`
	ShopURL     string         `json:"shop_url,omitempty"`
	City        string         `json:"city,omitempty"`
	ProfileType string         `json:"profile_type,omitempty"`
	Metrics     ProfileMetrics `json:"metrics"`
}

// CardAnalysisRequest asks the backend for a short brief about one card.
type CardAnalysisRequest struct {
	CardID    string         `json:"card_id"`
	ProductID string         `json:"product_id"`
	CardData  map[string]any `json:"card_data,omitempty"`
}

// CardAnalysis is the backend's brief for a card.
type CardAnalysis struct {
	Analysis string `json:"analysis"`
}
