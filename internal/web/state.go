package web

import (
	"github.com/Alias1177/MSMEPredictor/internal/form"
	"github.com/Alias1177/MSMEPredictor/internal/present"
	"github.com/Alias1177/MSMEPredictor/models"
)

// Tab is the visible panel of the predictor page
type Tab string

const (
	TabManual Tab = "manual"
	TabBulk   Tab = "bulk"
)

// ParseTab falls back to the manual tab for anything unknown
func ParseTab(s string) Tab {
	if Tab(s) == TabBulk {
		return TabBulk
	}
	return TabManual
}

type phase int

const (
	phaseIdle phase = iota
	phaseSubmitting
	phaseSucceeded
	phaseFailed
)

func (p phase) String() string {
	switch p {
	case phaseSubmitting:
		return "submitting"
	case phaseSucceeded:
		return "succeeded"
	case phaseFailed:
		return "failed"
	}
	return "idle"
}

// Page is the state of one predictor page render. A page lives for a single
// request; nothing is shared between requests.
type Page struct {
	ActiveTab Tab
	phase     phase

	Manual     *form.ManualForm
	Prediction *present.ResultView

	Upload    form.FileSelection
	BulkError string
	Bulk      *present.BulkView

	HistoryEnabled bool
	CSVHelp        string
	MaxUpload      string
}

// NewPage returns an idle page showing tab
func NewPage(tab Tab) *Page {
	return &Page{
		ActiveTab: tab,
		Manual:    form.NewManualForm(),
		CSVHelp:   form.CSVHelp,
	}
}

// Loading reports whether a submission is outstanding. A rendered page has
// always settled, so templates never read it; the browser shows the spinner.
func (p *Page) Loading() bool {
	return p.phase == phaseSubmitting
}

// Begin marks the start of a submission
func (p *Page) Begin() {
	p.phase = phaseSubmitting
}

// SucceedManual shows the service's answer. An error payload is still a
// completed submission and renders in error mode.
func (p *Page) SucceedManual(r *models.PredictionResult) {
	p.phase = phaseSucceeded
	p.Prediction = present.NewResultView(r)
}

// FailManual replaces the prediction with a synthetic error result
func (p *Page) FailManual(msg string) {
	p.phase = phaseFailed
	p.Prediction = present.NewResultView(models.ErrorResult(msg))
}

// SucceedBulk replaces the bulk results with batch
func (p *Page) SucceedBulk(b *models.Batch) {
	p.phase = phaseSucceeded
	p.BulkError = ""
	p.Bulk = present.NewBulkView(b)
}

// FailBulk clears the bulk results and shows msg
func (p *Page) FailBulk(msg string) {
	p.phase = phaseFailed
	p.Bulk = nil
	p.BulkError = msg
}
