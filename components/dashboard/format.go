package dashboard

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

const currencySuffix = " Toman"

// StatRow is one label/value line of an insight card.
type StatRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// CardSection is a titled list inside a card (competitors, issues, highlights).
type CardSection struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
	Empty string   `json:"empty,omitempty"`
}

// CardGroup is a repeated block inside a card, used for slow-mover items.
type CardGroup struct {
	Heading string    `json:"heading"`
	Rows    []StatRow `json:"rows"`
	Note    string    `json:"note,omitempty"`
}

// FormatMoney renders an amount with thousands separators and the currency suffix.
func FormatMoney(v float64) string {
	return humanize.CommafWithDigits(v, 2) + currencySuffix
}

// FormatNumber renders v in its shortest form.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatPercent renders v with a percent sign.
func FormatPercent(v float64) string {
	return FormatNumber(v) + "%"
}

func fixedOrDash(v *float64, digits int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', digits, 64)
}

func orDash(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return "-"
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// confidencePercent turns a 0..1 confidence into a rounded percentage.
func confidencePercent(v float64) string {
	return strconv.Itoa(int(math.Round(v*100))) + "%"
}

func trendLabel(trend string) string {
	switch trend {
	case "increasing":
		return "Increasing"
	case "decreasing":
		return "Decreasing"
	default:
		return "Flat"
	}
}

func recommendationLabel(rec string) string {
	switch rec {
	case "remove":
		return "Remove from catalog"
	case "discount":
		return "Run discount/promotion"
	default:
		return orDash(rec)
	}
}

func positionLabel(position string) string {
	switch position {
	case "cheapest":
		return "Cheapest"
	case "in_line":
		return "In line"
	case "more_expensive":
		return "More expensive"
	case "no_competitor":
		return "No competitors"
	default:
		return "-"
	}
}

func daysOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return FormatNumber(*v) + " days"
}
