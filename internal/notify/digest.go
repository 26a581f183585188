package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cropsathi/sathi/internal/api"
	"github.com/cropsathi/sathi/internal/models"
	"github.com/cropsathi/sathi/internal/store"
)

// DigestReport holds the computed summary for a digest period.
type DigestReport struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Advisories  int
	Crops       []CropDigest
}

// CropDigest holds the latest advisory and price movement for one crop.
type CropDigest struct {
	Crop           string
	Stage          string
	Recommendation string
	DailyAdvice    string
	HighRiskPests  []string
	LatestPrice    float64
	PrevPrice      float64
	Unit           string
	HasPrice       bool
}

// BuildDigest summarizes the advisories cached in the last 24 hours,
// one section per crop, with the latest market movement for each.
// Returns nil when no advisories were received in the period.
func BuildDigest(st *store.Store, now time.Time) (*Message, error) {
	since := now.Add(-24 * time.Hour)

	records, err := st.AdvisoriesSince(since)
	if err != nil {
		return nil, fmt.Errorf("notify: build digest: %w", err)
	}

	// Suppress when no activity.
	if len(records) == 0 {
		return nil, nil
	}

	report := &DigestReport{
		PeriodStart: since,
		PeriodEnd:   now,
		Advisories:  len(records),
	}

	// AdvisoriesSince returns newest-first, so the first record seen for
	// a crop is its latest advisory.
	seen := make(map[string]bool)
	for _, rec := range records {
		if seen[rec.Crop] {
			continue
		}
		seen[rec.Crop] = true

		cd := CropDigest{
			Crop:           rec.Crop,
			Stage:          rec.Stage,
			Recommendation: rec.Recommendation,
			DailyAdvice:    rec.DailyAdvice,
			HighRiskPests:  highRiskPests(rec),
		}

		points, err := st.PriceHistory(rec.Crop, 2)
		if err == nil && len(points) > 0 {
			// Oldest-first, so the last point is the latest price.
			cd.HasPrice = true
			cd.LatestPrice = points[len(points)-1].Price
			cd.Unit = points[len(points)-1].Unit
			if len(points) > 1 {
				cd.PrevPrice = points[0].Price
			}
		}

		report.Crops = append(report.Crops, cd)
	}

	msg := FormatDigest(report)
	return &msg, nil
}

// highRiskPests extracts pests flagged "high" from a cached advisory
// payload. A payload that fails to decode yields no pests rather than
// an error.
func highRiskPests(rec models.AdvisoryRecord) []string {
	if rec.Payload == "" {
		return nil
	}
	var adv api.Advisory
	if err := json.Unmarshal([]byte(rec.Payload), &adv); err != nil {
		return nil
	}
	var pests []string
	for _, p := range adv.PestPredictions {
		if strings.EqualFold(p.Risk, "high") {
			pests = append(pests, p.Pest)
		}
	}
	return pests
}

// FormatDigest formats a digest report as a deliverable Message.
func FormatDigest(report *DigestReport) Message {
	var bodyLines []string
	bodyLines = append(bodyLines, fmt.Sprintf("**Period**: %s to %s",
		report.PeriodStart.Format("Jan 2 15:04"),
		report.PeriodEnd.Format("Jan 2 15:04")))
	bodyLines = append(bodyLines, fmt.Sprintf("**Advisories**: %d received", report.Advisories))

	severity := "info"
	for _, cd := range report.Crops {
		bodyLines = append(bodyLines, "")
		bodyLines = append(bodyLines, fmt.Sprintf("**%s** (%s)", cd.Crop, cd.Stage))
		if cd.Recommendation != "" {
			bodyLines = append(bodyLines, "  "+cd.Recommendation)
		}
		if cd.DailyAdvice != "" {
			bodyLines = append(bodyLines, "  Today: "+cd.DailyAdvice)
		}
		if len(cd.HighRiskPests) > 0 {
			severity = "warning"
			bodyLines = append(bodyLines, "  High pest risk: "+strings.Join(cd.HighRiskPests, ", "))
		}
		if cd.HasPrice {
			bodyLines = append(bodyLines, "  Market: "+formatPrice(cd))
		}
	}

	fields := []Field{
		{Name: "Advisories", Value: fmt.Sprintf("%d", report.Advisories), Short: true},
		{Name: "Crops", Value: fmt.Sprintf("%d", len(report.Crops)), Short: true},
	}

	return Message{
		Title:    "Crop Sathi Daily Digest",
		Body:     strings.Join(bodyLines, "\n"),
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
	}
}

// formatPrice renders the latest price with movement against the
// previous cached observation when one exists.
func formatPrice(cd CropDigest) string {
	s := fmt.Sprintf("%.2f", cd.LatestPrice)
	if cd.Unit != "" {
		s += " " + cd.Unit
	}
	if cd.PrevPrice > 0 && cd.PrevPrice != cd.LatestPrice {
		delta := cd.LatestPrice - cd.PrevPrice
		pct := delta / cd.PrevPrice * 100
		dir := "up"
		if delta < 0 {
			dir = "down"
			delta = -delta
			pct = -pct
		}
		s += fmt.Sprintf(" (%s %.2f, %.1f%%)", dir, delta, pct)
	}
	return s
}
