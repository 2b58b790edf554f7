package dashboard

import (
	"context"
	"errors"
	"fmt"
)

const defaultSlowMoverReason = "Low sales speed and weak profit margin detected for this item."

var errMissingInsightSet = errors.New("dashboard: insight set not loaded")

// insightCard is the intermediate form built from an InsightSet before charts are attached.
type insightCard struct {
	Description string
	Rows        []StatRow
	Groups      []CardGroup
	Sections    []CardSection
	Footer      string
	CardData    map[string]any
	Chart       *ChartSpec
}

type cardBuilder func(set *InsightSet, product *ProductSummary) insightCard

// InsightProvider renders one insight card and, when the card has chartable
// data, its go-echarts chart.
type InsightProvider struct {
	kind  InsightKind
	build cardBuilder
	chart *ChartRenderer
}

// NewInsightProvider builds the provider for kind. chart may be nil to skip charts.
func NewInsightProvider(kind InsightKind, chart *ChartRenderer) (*InsightProvider, error) {
	build, ok := cardBuilders[kind]
	if !ok {
		return nil, fmt.Errorf("dashboard: no card builder for %s", kind)
	}
	return &InsightProvider{kind: kind, build: build, chart: chart}, nil
}

// Fetch implements Provider.
func (p *InsightProvider) Fetch(_ context.Context, meta WidgetContext) (WidgetData, error) {
	if meta.Set == nil {
		return nil, errMissingInsightSet
	}
	card := p.build(meta.Set, meta.Product)
	data := WidgetData{
		"kind":        string(p.kind),
		"title":       meta.Definition.NameForLocale(meta.Viewer.Locale),
		"card_id":     cardIDs[p.kind],
		"description": card.Description,
		"rows":        card.Rows,
		"groups":      card.Groups,
		"sections":    card.Sections,
		"footer":      card.Footer,
		"card_data":   card.CardData,
	}
	if p.chart != nil && card.Chart != nil {
		// Cards without chartable points simply render without a chart.
		if chart, err := p.chart.Render(meta.Viewer, meta.Instance.DefinitionID+":"+meta.Set.SKU, *card.Chart); err == nil {
			data["chart_html"] = chart.HTML
			data["chart_type"] = string(chart.Kind)
		}
	}
	return data, nil
}

// cardIDs are the identifiers the backend's card-analysis endpoint expects.
var cardIDs = map[InsightKind]string{
	InsightProfitMargin:        "real_profit",
	InsightSlowMovers:          "slow_movers",
	InsightBreakeven:           "breakeven",
	InsightGoldenTimes:         "golden_times",
	InsightRevenueForecast:     "revenue_forecast",
	InsightDiscountCompetition: "discount_vs_competitors",
	InsightRestockTime:         "restock",
	InsightSpeedCompare:        "speed_comparison",
	InsightCommentAnalysis:     "comments_analysis",
}

// CardID returns the card-analysis identifier of kind.
func (k InsightKind) CardID() string {
	return cardIDs[k]
}

var cardBuilders = map[InsightKind]cardBuilder{
	InsightProfitMargin:        profitCard,
	InsightSlowMovers:          slowMoversCard,
	InsightBreakeven:           breakevenCard,
	InsightGoldenTimes:         goldenTimesCard,
	InsightRevenueForecast:     revenueCard,
	InsightDiscountCompetition: discountCard,
	InsightRestockTime:         restockCard,
	InsightSpeedCompare:        speedCard,
	InsightCommentAnalysis:     commentsCard,
}

func productField(product *ProductSummary, pick func(ProductSummary) string) string {
	if product == nil {
		return ""
	}
	return pick(*product)
}

func profitCard(set *InsightSet, product *ProductSummary) insightCard {
	p := set.ProfitMargin
	title := orDash(productField(product, func(ps ProductSummary) string { return ps.Title }), p.Title)
	category := orDash(productField(product, func(ps ProductSummary) string { return ps.Category }), p.Category)
	brand := orDash(productField(product, func(ps ProductSummary) string { return ps.Brand }), p.Brand)
	commission := p.Price * p.CommissionPct / 100

	breakdown := &ChartSpec{Title: "Price breakdown", Series: "Price"}
	breakdown.Add("Buy price", p.BuyPrice)
	breakdown.Add("Commission", commission)
	breakdown.Add("Other costs", p.OtherCosts)
	if p.NetProfit > 0 {
		breakdown.Add("Net profit", p.NetProfit)
	}

	return insightCard{
		Description: "Net profitability of this product after Digikala commission and extra costs.",
		Rows: []StatRow{
			{Label: "Product", Value: title},
			{Label: "Category", Value: category},
			{Label: "Brand", Value: brand},
			{Label: "Selling price", Value: FormatMoney(p.Price)},
			{Label: "Commission", Value: FormatPercent(p.CommissionPct)},
			{Label: "Buy price", Value: FormatMoney(p.BuyPrice)},
			{Label: "Other costs", Value: FormatMoney(p.OtherCosts)},
			{Label: "Net profit per unit", Value: FormatMoney(p.NetProfit)},
			{Label: "Profit margin", Value: FormatPercent(p.MarginPct)},
		},
		CardData: map[string]any{
			"title":          title,
			"category":       category,
			"brand":          brand,
			"price":          p.Price,
			"buy_price":      p.BuyPrice,
			"commission_pct": p.CommissionPct,
			"other_costs":    p.OtherCosts,
			"net_profit":     p.NetProfit,
			"margin_pct":     p.MarginPct,
		},
		Chart: breakdown,
	}
}

func slowMoversCard(set *InsightSet, _ *ProductSummary) insightCard {
	s := set.SlowMovers
	groups := make([]CardGroup, 0, len(s.Items))
	points := make([]ChartPoint, 0, len(s.Items))
	for _, it := range s.Items {
		reason := it.Reason
		if reason == "" {
			reason = defaultSlowMoverReason
		}
		heading := it.Title
		if heading == "" {
			heading = "Unnamed product"
		}
		groups = append(groups, CardGroup{
			Heading: heading,
			Rows: []StatRow{
				{Label: "SKU", Value: orDash(it.SKU, it.ProductID)},
				{Label: "Profit margin", Value: FormatPercent(it.MarginPct)},
				{Label: "Weekly sales", Value: FormatNumber(it.WeeklySales)},
				{Label: "Profitability index", Value: FormatNumber(it.ProfitabilityIndex)},
				{Label: "Stock", Value: FormatNumber(it.Stock)},
				{Label: "Recommendation", Value: recommendationLabel(it.Recommendation)},
			},
			Note: reason,
		})
		points = append(points, ChartPoint{Name: heading, X: it.WeeklySales, Y: it.MarginPct})
	}
	card := insightCard{
		Description: "Items with low sales speed and weak margin that might need discount or removal.",
		Groups:      groups,
		CardData: map[string]any{
			"items":      s.Items,
			"thresholds": s.Thresholds,
		},
	}
	if len(points) > 0 {
		card.Chart = &ChartSpec{
			Title:    "Weekly sales vs margin",
			Subtitle: "x: units/week, y: margin %",
			Series:   "Slow movers",
			Points:   points,
		}
	}
	return card
}

func breakevenCard(set *InsightSet, product *ProductSummary) insightCard {
	b := set.Breakeven
	title := orDash(b.Title, productField(product, func(ps ProductSummary) string { return ps.Title }))
	return insightCard{
		Description: "How many units must be sold to cover allocated fixed costs.",
		Rows: []StatRow{
			{Label: "Product", Value: title},
			{Label: "Selling price", Value: FormatMoney(b.Price)},
			{Label: "Fixed costs (allocated)", Value: FormatMoney(b.FixedCosts)},
			{Label: "Variable cost / unit", Value: FormatMoney(b.VariableCost)},
			{Label: "Units to breakeven", Value: FormatNumber(b.BreakevenUnits)},
			{Label: "Units sold (period)", Value: FormatNumber(b.CurrentSoldUnits)},
			{Label: "Progress towards breakeven", Value: FormatPercent(b.ProgressPct)},
		},
		CardData: map[string]any{
			"title":              title,
			"price":              b.Price,
			"fixed_costs":        b.FixedCosts,
			"variable_cost":      b.VariableCost,
			"breakeven_units":    b.BreakevenUnits,
			"current_sold_units": b.CurrentSoldUnits,
			"progress_pct":       b.ProgressPct,
		},
		Chart: &ChartSpec{Title: "Breakeven progress", Series: "Progress", Values: []float64{b.ProgressPct}},
	}
}

func goldenTimesCard(set *InsightSet, _ *ProductSummary) insightCard {
	g := set.GoldenTimes
	days := make([]string, len(g.BestDays))
	quantities := &ChartSpec{Title: "Orders by weekday", Series: "Quantity"}
	for i, d := range g.BestDays {
		days[i] = d.Weekday
		if d.Quantity > 0 {
			quantities.Add(d.Weekday, d.Quantity)
		}
	}
	peaks := make([]string, len(g.PeakPoints))
	for i, p := range g.PeakPoints {
		peaks[i] = p.Text()
	}
	card := insightCard{
		Description: "Best time windows based on historical orders for this product.",
		Rows: []StatRow{
			{Label: "Product", Value: orDash(set.SKU)},
			{Label: "Best hours", Value: joinOrDash(g.SuggestedHours)},
			{Label: "Best days", Value: joinOrDash(days)},
			{Label: "Peak points", Value: joinOrDash(peaks)},
		},
		CardData: map[string]any{
			"suggested_hours":     g.SuggestedHours,
			"best_days":           g.BestDays,
			"peak_points":         g.PeakPoints,
			"upcoming_best_dates": g.UpcomingBestDates,
		},
	}
	if len(g.UpcomingBestDates) > 0 {
		upcoming := make([]string, len(g.UpcomingBestDates))
		for i, d := range g.UpcomingBestDates {
			upcoming[i] = d.Date + " (" + d.Weekday + ")"
		}
		card.Footer = "Upcoming golden days: " + joinOrDash(upcoming)
	}
	if len(quantities.Values) > 0 {
		card.Chart = quantities
	}
	return card
}

func revenueCard(set *InsightSet, _ *ProductSummary) insightCard {
	r := set.RevenueForecast
	card := insightCard{
		Description: "Projected revenue for this product based on the current month.",
		Rows: []StatRow{
			{Label: "Current month", Value: orDash(r.CurrentMonth)},
			{Label: "Revenue so far (this month)", Value: FormatMoney(r.SoFarRevenue)},
			{Label: "Next month forecast", Value: FormatMoney(r.ForecastRevenue)},
			{Label: "Last month revenue", Value: FormatMoney(r.LastMonthRevenue)},
			{Label: "Trend", Value: trendLabel(r.Trend)},
			{Label: "Model confidence", Value: confidencePercent(r.Confidence)},
		},
		CardData: map[string]any{
			"current_month":      r.CurrentMonth,
			"so_far_revenue":     r.SoFarRevenue,
			"forecast_revenue":   r.ForecastRevenue,
			"last_month_revenue": r.LastMonthRevenue,
			"trend":              r.Trend,
			"confidence":         r.Confidence,
		},
	}
	if len(r.Timeline) > 0 {
		timeline := &ChartSpec{Title: "Daily revenue", Series: "Revenue"}
		for _, pt := range r.Timeline {
			timeline.Add(pt.Date, pt.Revenue)
		}
		card.Chart = timeline
	}
	return card
}

func discountCard(set *InsightSet, _ *ProductSummary) insightCard {
	d := set.DiscountCompetition
	competitors := make([]string, len(d.Competitors))
	prices := &ChartSpec{Title: "Effective price vs competitors", Series: "Price"}
	prices.Add("You", d.EffectivePrice)
	for i, c := range d.Competitors {
		competitors[i] = c.Name + ": " + FormatMoney(c.Price)
		prices.Add(c.Name, c.Price)
	}
	advantage := "-"
	if d.AdvantagePct != nil {
		advantage = fixedOrDash(d.AdvantagePct, 2) + "%"
	}
	card := insightCard{
		Description: "Your effective price after discount compared with competing offers.",
		Rows: []StatRow{
			{Label: "Your price", Value: FormatMoney(d.YourPrice)},
			{Label: "Your discount", Value: FormatPercent(d.YourDiscountPct)},
			{Label: "Effective price", Value: FormatMoney(d.EffectivePrice)},
			{Label: "Advantage vs cheapest", Value: advantage},
			{Label: "Position", Value: positionLabel(d.Position)},
		},
		Sections: []CardSection{
			{Title: "Competitors", Items: competitors, Empty: "No competitor data"},
		},
		CardData: map[string]any{
			"your_price":                         d.YourPrice,
			"your_discount_pct":                  d.YourDiscountPct,
			"effective_price":                    d.EffectivePrice,
			"competitors":                        d.Competitors,
			"effective_discount_vs_cheapest_pct": d.AdvantagePct,
			"position":                           d.Position,
		},
	}
	if len(d.Competitors) > 0 {
		card.Chart = prices
	}
	return card
}

func restockCard(set *InsightSet, product *ProductSummary) insightCard {
	r := set.RestockTime
	title := orDash(r.Title, productField(product, func(ps ProductSummary) string { return ps.Title }))
	card := insightCard{
		Description: "When to reorder so this product does not run out of stock.",
		Rows: []StatRow{
			{Label: "Product", Value: title},
			{Label: "Daily sales average", Value: FormatNumber(r.DailySalesAvg)},
			{Label: "Current stock", Value: FormatNumber(r.CurrentStock)},
			{Label: "Projected days to stockout", Value: FormatNumber(r.DaysToStockout)},
			{Label: "Typical restock delay after stockout", Value: daysOrDash(r.TypicalRestockDelayDays)},
			{Label: "Supplier lead time", Value: daysOrDash(r.SupplierLeadTimeDays)},
			{Label: "Risk level", Value: orDash(r.RiskLevel)},
			{Label: "Recommended order quantity", Value: FormatNumber(r.RecommendedOrderQty)},
		},
		Footer: r.RecommendationText,
		CardData: map[string]any{
			"title":                      title,
			"current_stock":              r.CurrentStock,
			"daily_sales_avg":            r.DailySalesAvg,
			"days_to_stockout":           r.DaysToStockout,
			"supplier_lead_time_days":    r.SupplierLeadTimeDays,
			"typical_restock_delay_days": r.TypicalRestockDelayDays,
			"recommended_order_qty":      r.RecommendedOrderQty,
			"risk_level":                 r.RiskLevel,
		},
	}
	if r.SupplierLeadTimeDays != nil {
		card.Chart = &ChartSpec{
			Title:  "Days of stock vs lead time",
			Series: "Days",
			Labels: []string{"Days to stockout", "Supplier lead time"},
			Values: []float64{r.DaysToStockout, *r.SupplierLeadTimeDays},
		}
	}
	return card
}

func speedCard(set *InsightSet, _ *ProductSummary) insightCard {
	s := set.SpeedCompare
	change := "-"
	if s.SpeedChangePct != nil {
		change = fixedOrDash(s.SpeedChangePct, 1) + "%"
	}
	card := insightCard{
		Description: "Sales speed of the previous and the current version of this product.",
		Rows: []StatRow{
			{Label: "Old product", Value: orDash(s.OldProductTitle)},
			{Label: "Old sales speed (units/day)", Value: fixedOrDash(s.OldSpeed, 2)},
			{Label: "New product", Value: orDash(s.NewProductTitle)},
			{Label: "New sales speed (units/day)", Value: fixedOrDash(s.NewSpeed, 2)},
			{Label: "Speed change", Value: change},
			{Label: "Conclusion", Value: orDash(s.Conclusion)},
		},
		CardData: map[string]any{
			"old_product_title": s.OldProductTitle,
			"new_product_title": s.NewProductTitle,
			"old_speed":         s.OldSpeed,
			"new_speed":         s.NewSpeed,
			"speed_change_pct":  s.SpeedChangePct,
			"conclusion":        s.Conclusion,
		},
	}
	if s.OldSpeed != nil && s.NewSpeed != nil {
		card.Chart = &ChartSpec{
			Title:  "Units per day",
			Series: "Speed",
			Labels: []string{"Old", "New"},
			Values: []float64{*s.OldSpeed, *s.NewSpeed},
		}
	}
	return card
}

func commentsCard(set *InsightSet, _ *ProductSummary) insightCard {
	c := set.CommentAnalysis
	summary := c.SummaryEN
	if summary == "" {
		summary = "No summary available yet."
	}
	card := insightCard{
		Description: "Sentiment, pain points, and highlights extracted from customer reviews.",
		Rows: []StatRow{
			{Label: "Sentiment score", Value: fixedOrDash(c.SentimentScore, 2)},
			{Label: "Average rating", Value: fixedOrDash(c.AvgRating, 2)},
			{Label: "Total reviews", Value: FormatNumber(c.TotalReviews)},
		},
		Sections: []CardSection{
			{Title: "Summary", Items: []string{summary}},
			{Title: "Frequent issues", Items: c.TopIssuesEN},
			{Title: "Positive highlights", Items: c.TopHighlightsEN},
			{Title: "Example comments (FA)", Items: c.SampleCommentsFA},
		},
		CardData: map[string]any{
			"sentiment_score": c.SentimentScore,
			"avg_rating":      c.AvgRating,
			"total_reviews":   c.TotalReviews,
			"summary_en":      c.SummaryEN,
			"issues":          c.TopIssuesEN,
			"highlights":      c.TopHighlightsEN,
		},
	}
	if c.AvgRating != nil {
		card.Chart = &ChartSpec{Title: "Rating (% of 5 stars)", Series: "Rating", Values: []float64{*c.AvgRating / 5 * 100}}
	}
	return card
}
