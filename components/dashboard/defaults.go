package dashboard

const settingsSchemaCode = "seller.settings"

var defaultWidgetDefinitions = []WidgetDefinition{
	{
		Kind:          InsightProfitMargin,
		Name:          "Real profit margin after commission",
		NameLocalized: map[string]string{"fa": "حاشیه سود واقعی پس از کمیسیون"},
		Description:   "Net profit per unit after marketplace commission and extra costs",
		Category:      "profitability",
		Chart:         ChartPie,
	},
	{
		Kind:          InsightSlowMovers,
		Name:          "Slow-moving products & exit suggestion",
		NameLocalized: map[string]string{"fa": "کالاهای کم‌فروش و پیشنهاد خروج"},
		Description:   "Items with low sales speed and weak margin",
		Category:      "inventory",
		Chart:         ChartScatter,
	},
	{
		Kind:          InsightBreakeven,
		Name:          "Breakeven point for this product",
		NameLocalized: map[string]string{"fa": "نقطه سر به سر این کالا"},
		Description:   "Units needed to cover allocated fixed costs",
		Category:      "profitability",
		Chart:         ChartGauge,
	},
	{
		Kind:          InsightGoldenTimes,
		Name:          "Golden sales times",
		NameLocalized: map[string]string{"fa": "زمان‌های طلایی فروش"},
		Description:   "Best hours and weekdays to sell",
		Category:      "timing",
		Chart:         ChartBar,
	},
	{
		Kind:          InsightRevenueForecast,
		Name:          "Revenue forecast (per product)",
		NameLocalized: map[string]string{"fa": "پیش‌بینی درآمد (برای هر کالا)"},
		Description:   "Month-to-date revenue and projection",
		Category:      "forecast",
		Chart:         ChartLine,
	},
	{
		Kind:          InsightDiscountCompetition,
		Name:          "Effective discount vs competitors",
		NameLocalized: map[string]string{"fa": "تخفیف مؤثر در برابر رقبا"},
		Description:   "Effective price compared with competing offers",
		Category:      "pricing",
		Chart:         ChartBar,
	},
	{
		Kind:          InsightRestockTime,
		Name:          "Restock timing recommendation",
		NameLocalized: map[string]string{"fa": "پیشنهاد زمان تأمین مجدد موجودی"},
		Description:   "Days to stockout and reorder quantity",
		Category:      "inventory",
		Chart:         ChartBar,
	},
	{
		Kind:          InsightSpeedCompare,
		Name:          "Sales speed comparison (old vs new)",
		NameLocalized: map[string]string{"fa": "مقایسه سرعت فروش (قدیم و جدید)"},
		Description:   "Units per day of the previous and current product",
		Category:      "performance",
		Chart:         ChartBar,
	},
	{
		Kind:          InsightCommentAnalysis,
		Name:          "Customer experience from comments",
		NameLocalized: map[string]string{"fa": "تجربه مشتری از نظرات"},
		Description:   "Sentiment, issues and highlights from reviews",
		Category:      "customers",
		Chart:         ChartGauge,
	},
}

// DefaultWidgetDefinitions returns the nine insight cards in dashboard order.
func DefaultWidgetDefinitions() []WidgetDefinition {
	out := make([]WidgetDefinition, len(defaultWidgetDefinitions))
	for i, def := range defaultWidgetDefinitions {
		def.Code = def.Kind.WidgetCode()
		out[i] = def
	}
	return out
}

// SettingsDefinition describes the seller settings form for validation.
func SettingsDefinition() WidgetDefinition {
	return WidgetDefinition{
		Code:   settingsSchemaCode,
		Name:   "Seller settings",
		Schema: settingsSchema(),
	}
}

func settingsSchema() map[string]any {
	nonNegative := func(max float64) map[string]any {
		return map[string]any{"type": "number", "minimum": 0, "maximum": max}
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"extra_cost_pct":        nonNegative(100),
			"slow_mover_min_speed":  nonNegative(10000),
			"slow_mover_min_margin": nonNegative(100),
			"lead_time_days":        nonNegative(365),
		},
	}
}
