package present

import (
	"strings"

	"github.com/Alias1177/MSMEPredictor/internal/analyze"
	"github.com/Alias1177/MSMEPredictor/models"
)

const (
	NoFactorsSingle = "No specific risk factors identified"
	NoFactorsBulk   = "None identified"
)

// ResultView is a single prediction ready for rendering
type ResultView struct {
	Error string

	Category        string
	Theme           Theme
	Status          string
	RiskScore       string
	RiskScoreWidth  float64
	Confidence      string
	ConfidenceWidth float64
	Factors         []string
}

// IsError reports whether the view is in error mode
func (v *ResultView) IsError() bool {
	return v.Error != ""
}

// NewResultView builds the view of one result; nil renders nothing.
// A result carrying an error is shown in error mode whatever its category.
func NewResultView(r *models.PredictionResult) *ResultView {
	if r == nil {
		return nil
	}
	if r.IsError() {
		return &ResultView{Error: r.Error}
	}

	return &ResultView{
		Category:        string(r.Prediction),
		Theme:           ThemeFor(r.Prediction),
		Status:          r.Status,
		RiskScore:       Number(r.RiskScore),
		RiskScoreWidth:  BarWidth(r.RiskScore),
		Confidence:      FractionPercent(r.Confidence),
		ConfidenceWidth: BarWidth(r.Confidence * 100),
		Factors:         FormatFactors(r.KeyFactors),
	}
}

// BulkRowView is one row of the bulk results table
type BulkRowView struct {
	Row             int
	Category        string
	Theme           Theme
	RiskScore       string
	Status          string
	Confidence      string
	ConfidenceWidth float64
	Factors         string
}

// BulkView is a bulk batch with its summary
type BulkView struct {
	BatchID     string
	FileName    string
	Summary     models.Summary
	HealthRate  string
	HealthWidth float64
	Rows        []BulkRowView

	Mismatch bool
	CSVRows  int
}

// NewBulkView builds the bulk results view. It returns nil when there is
// nothing to show.
func NewBulkView(b *models.Batch) *BulkView {
	if b == nil {
		return nil
	}
	summary, ok := analyze.Summarize(b.Results())
	if !ok {
		return nil
	}

	view := &BulkView{
		BatchID:     b.ID,
		FileName:    b.FileName,
		Summary:     summary,
		HealthRate:  Percent(summary.HealthRate),
		HealthWidth: BarWidth(summary.HealthRate),
		Rows:        make([]BulkRowView, len(b.Rows)),
		Mismatch:    b.Mismatch(),
		CSVRows:     b.CSVRows,
	}

	for i, row := range b.Rows {
		r := row.Result
		factors := NoFactorsBulk
		if len(r.KeyFactors) > 0 {
			factors = strings.Join(FormatFactors(r.KeyFactors), ", ")
		}
		view.Rows[i] = BulkRowView{
			Row:             row.Row,
			Category:        string(r.Prediction),
			Theme:           ThemeFor(r.Prediction),
			RiskScore:       Number(r.RiskScore),
			Status:          r.Status,
			Confidence:      FractionPercent(r.Confidence),
			ConfidenceWidth: BarWidth(r.Confidence * 100),
			Factors:         factors,
		}
	}
	return view
}

// HistoryRowView is one stored prediction on the history page
type HistoryRowView struct {
	When       string
	Flow       string
	BatchID    string
	Row        int
	Category   string
	Theme      Theme
	RiskScore  string
	Confidence string
	Factors    string
}

// NewHistoryRows formats stored predictions, newest first as given
func NewHistoryRows(records []models.HistoryRecord) []HistoryRowView {
	rows := make([]HistoryRowView, len(records))
	for i, rec := range records {
		factors := NoFactorsBulk
		if len(rec.KeyFactors) > 0 {
			factors = strings.Join(FormatFactors(rec.KeyFactors), ", ")
		}
		rows[i] = HistoryRowView{
			When:       rec.CreatedAt.Format("2006-01-02 15:04"),
			Flow:       Humanize(string(rec.Flow)),
			BatchID:    rec.BatchID,
			Row:        rec.Row,
			Category:   string(rec.Category),
			Theme:      ThemeFor(rec.Category),
			RiskScore:  Number(rec.RiskScore),
			Confidence: FractionPercent(rec.Confidence),
			Factors:    factors,
		}
	}
	return rows
}
