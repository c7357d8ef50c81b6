package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Alias1177/MSMEPredictor/models"
)

// Outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

var (
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msme_submissions_total",
			Help: "Prediction submissions by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)

	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msme_predictions_total",
			Help: "Predictions received from the prediction service by category",
		},
		[]string{"flow", "category"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "msme_upstream_request_duration_seconds",
			Help:    "Duration of calls to the prediction service",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "outcome"},
	)

	BulkRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "msme_bulk_rows",
			Help:    "Number of results per bulk submission",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

// ObserveUpstream records one call to the prediction service
func ObserveUpstream(endpoint string, started time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	UpstreamDuration.WithLabelValues(endpoint, outcome).Observe(time.Since(started).Seconds())
}

// ObserveResults counts received predictions per category
func ObserveResults(flow models.Flow, results []models.PredictionResult) {
	for _, r := range results {
		if r.Error != "" {
			continue
		}
		Predictions.WithLabelValues(string(flow), categoryLabel(r.Prediction)).Inc()
	}
	if flow == models.FlowBulk {
		BulkRows.Observe(float64(len(results)))
	}
}

func categoryLabel(c models.RiskCategory) string {
	switch c {
	case models.RiskLow:
		return "low"
	case models.RiskMedium:
		return "medium"
	case models.RiskHigh:
		return "high"
	}
	return "unknown"
}
