package backend

import (
	"time"

	dashboard "github.com/goliatone/go-predify/components/dashboard"
)

func ptr(v float64) *float64 { return &v }

// DemoData returns the fixtures served in demo mode: two products with a full
// set of analyses each.
func DemoData(now time.Time) MockData {
	products := []dashboard.ProductSummary{
		{ProductID: "DK-1001", Title: "Wireless Earbuds Pro", Category: "Audio", Brand: "Sonora"},
		{ProductID: "DK-2040", Title: "Ceramic Pour-Over Set", Category: "Kitchen", Brand: "Kaffa"},
	}
	sets := map[string]dashboard.InsightSet{}
	for i, p := range products {
		scale := float64(i + 1)
		sets[p.ProductID] = demoSet(p, scale, now)
	}
	return MockData{
		Products: products,
		Sets:     sets,
		Settings: dashboard.SellerSettings{
			ExtraCostPct:       5,
			SlowMoverMinSpeed:  2,
			SlowMoverMinMargin: 10,
			LeadTimeDays:       14,
		},
		Profile: dashboard.SellerProfile{
			SellerCode:  "demo-seller",
			ShopTitle:   "Demo Shop",
			ShopURL:     "https://example.com/shop/demo",
			City:        "Tehran",
			ProfileType: "individual",
			Metrics: dashboard.ProfileMetrics{
				TotalProducts:  float64(len(products)),
				ActiveProducts: float64(len(products)),
				MonthlyOrders:  342,
				MonthlyRevenue: 128_450_000,
			},
		},
	}
}

func demoSet(p dashboard.ProductSummary, scale float64, now time.Time) dashboard.InsightSet {
	price := 2_400_000 / scale
	month := now.Format("2006-01")
	timeline := make([]dashboard.RevenuePoint, 0, 7)
	for d := 6; d >= 0; d-- {
		day := now.AddDate(0, 0, -d)
		timeline = append(timeline, dashboard.RevenuePoint{
			Date:    day.Format(time.DateOnly),
			Revenue: price * float64(3+d%3),
		})
	}
	upcoming := []dashboard.UpcomingDate{
		{Date: now.AddDate(0, 0, 3).Format(time.DateOnly), Weekday: now.AddDate(0, 0, 3).Weekday().String()},
		{Date: now.AddDate(0, 0, 10).Format(time.DateOnly), Weekday: now.AddDate(0, 0, 10).Weekday().String()},
	}
	return dashboard.InsightSet{
		SKU: p.ProductID,
		ProfitMargin: dashboard.ProfitMargin{
			SKU:           p.ProductID,
			ProductID:     p.ProductID,
			Title:         p.Title,
			Category:      p.Category,
			Brand:         p.Brand,
			Price:         price,
			CommissionPct: 8,
			BuyPrice:      price * 0.6,
			OtherCosts:    price * 0.05,
			NetProfit:     price * 0.27,
			MarginPct:     27,
			SoldUnits:     int(120 / scale),
		},
		SlowMovers: dashboard.SlowMovers{
			Thresholds: dashboard.SlowMoverThresholds{MinWeeklySales: 2, MinMarginPct: 10, MinDaysActive: 30, ExtraCostPct: 5},
			Items: []dashboard.SlowMoverItem{{
				ProductID:          "DK-3090",
				Title:              "Travel Mug Classic",
				WeeklySales:        0.8,
				TotalSold:          14,
				MarginPct:          6,
				Stock:              85,
				DaysActive:         120,
				ProfitPerUnit:      32_000,
				ProfitabilityIndex: 0.4,
				Recommendation:     "discount",
				Reason:             "Below weekly sales and margin thresholds",
			}},
		},
		Breakeven: dashboard.Breakeven{
			SKU:              p.ProductID,
			Title:            p.Title,
			Price:            price,
			FixedCosts:       price * 40,
			VariableCost:     price * 0.65,
			BreakevenUnits:   115,
			CurrentSoldUnits: 120 / scale,
			ProgressPct:      100 * (120 / scale) / 115,
		},
		GoldenTimes: dashboard.GoldenTimes{
			SuggestedHours:    []string{"20:00", "21:00", "13:00"},
			BestDays:          []dashboard.BestDay{{Weekday: "Thursday", Quantity: 18}, {Weekday: "Friday", Quantity: 15}},
			PeakPoints:        []dashboard.PeakPoint{{Date: now.AddDate(0, 0, -12).Format(time.DateOnly), Label: "Campaign"}},
			UpcomingBestDates: upcoming,
		},
		RevenueForecast: dashboard.RevenueForecast{
			CurrentMonth:     month,
			SoFarRevenue:     price * 40,
			ForecastRevenue:  price * 95,
			LastMonthRevenue: price * 88,
			Trend:            "up",
			Confidence:       0.72,
			Timeline:         timeline,
		},
		DiscountCompetition: dashboard.DiscountCompetition{
			YourPrice:       price,
			YourDiscountPct: 10,
			EffectivePrice:  price * 0.9,
			Competitors: []dashboard.Competitor{
				{Name: "Rival A", Price: price * 0.95},
				{Name: "Rival B", Price: price * 1.05},
			},
			AdvantagePct: ptr(5.3),
			Position:     "cheapest",
		},
		RestockTime: dashboard.RestockTime{
			Title:                   p.Title,
			CurrentStock:            40 / scale,
			DailySalesAvg:           4 / scale,
			DaysToStockout:          10,
			SupplierLeadTimeDays:    ptr(14),
			TypicalRestockDelayDays: nil,
			RecommendedOrderQty:     60 / scale,
			RiskLevel:               "high",
			RecommendationText:      "Reorder now: stock runs out before the supplier lead time.",
		},
		SpeedCompare: dashboard.SpeedCompare{
			OldProductTitle: "Wireless Earbuds",
			NewProductTitle: p.Title,
			OldSpeed:        ptr(2.1),
			NewSpeed:        ptr(3.4),
			SpeedChangePct:  ptr(61.9),
			Conclusion:      "The new listing sells faster than its predecessor.",
		},
		CommentAnalysis: dashboard.CommentAnalysis{
			TotalReviews:     48,
			AvgRating:        ptr(4.3),
			SentimentScore:   ptr(0.64),
			SummaryEN:        "Buyers like the build quality; some mention slow delivery.",
			TopIssuesEN:      []string{"Delivery time", "Packaging"},
			TopHighlightsEN:  []string{"Sound quality", "Battery life"},
			SampleCommentsFA: []string{"کیفیت عالی", "ارسال کمی طول کشید"},
		},
	}
}
