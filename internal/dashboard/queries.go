package dashboard

import (
	"fmt"
	"time"

	"github.com/cropsathi/sathi/internal/models"
)

// HistoryRow holds one cached advisory for display.
type HistoryRow struct {
	Crop           string `json:"crop"`
	Stage          string `json:"stage"`
	Recommendation string `json:"recommendation"`
	DailyAdvice    string `json:"daily_advice"`
	ReceivedAt     string `json:"received_at"`
	Age            string `json:"age"`
}

func historyRows(records []models.AdvisoryRecord) []HistoryRow {
	rows := make([]HistoryRow, len(records))
	for i, r := range records {
		rows[i] = HistoryRow{
			Crop:           r.Crop,
			Stage:          r.Stage,
			Recommendation: r.Recommendation,
			DailyAdvice:    r.DailyAdvice,
			ReceivedAt:     r.ReceivedAt.UTC().Format(time.RFC3339),
			Age:            TimeAgo(r.ReceivedAt),
		}
	}
	return rows
}

// PriceRow holds one cached market price observation for display.
type PriceRow struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
	Unit  string  `json:"unit,omitempty"`
}

func priceRows(points []models.MarketPoint) []PriceRow {
	rows := make([]PriceRow, len(points))
	for i, p := range points {
		rows[i] = PriceRow{Date: p.Date, Price: p.Price, Unit: p.Unit}
	}
	return rows
}

// TimeAgo formats a timestamp as a relative age like "5m ago".
func TimeAgo(when time.Time) string {
	if when.IsZero() {
		return "-"
	}
	d := time.Since(when)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours())/24)
	}
}
