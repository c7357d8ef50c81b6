package analyze

import (
	"github.com/Alias1177/MSMEPredictor/models"
)

// Summarize counts bulk results per risk category in one pass and derives the
// health rate, the share of Low Risk results in percent. ok is false for an
// empty batch, which has no summary to show.
//
// Results with a category outside the three known ones count toward Total only.
func Summarize(results []models.PredictionResult) (summary models.Summary, ok bool) {
	if len(results) == 0 {
		return models.Summary{}, false
	}

	for _, r := range results {
		summary.Total++
		switch r.Prediction {
		case models.RiskLow:
			summary.LowRisk++
		case models.RiskMedium:
			summary.MediumRisk++
		case models.RiskHigh:
			summary.HighRisk++
		}
	}

	summary.HealthRate = float64(summary.LowRisk) / float64(summary.Total) * 100
	return summary, true
}

// NumberRows pairs each result with its 1-based position in the response
func NumberRows(results []models.PredictionResult) []models.BulkRow {
	rows := make([]models.BulkRow, len(results))
	for i, r := range results {
		rows[i] = models.BulkRow{Row: i + 1, Result: r}
	}
	return rows
}
