package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/Alias1177/MSMEPredictor/internal/analyze"
	"github.com/Alias1177/MSMEPredictor/internal/form"
	"github.com/Alias1177/MSMEPredictor/internal/metrics"
	"github.com/Alias1177/MSMEPredictor/internal/present"
	"github.com/Alias1177/MSMEPredictor/models"
)

const (
	// UploadField is the multipart field of the bulk upload form
	UploadField = "file"

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500

	multipartMemory = 1 << 20

	healthUnreachable = "prediction service unreachable"
)

func (s *Server) newPage(tab Tab) *Page {
	page := NewPage(tab)
	page.HistoryEnabled = s.history != nil
	page.MaxUpload = present.Megabytes(s.maxUpload)
	return page
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/predict", http.StatusFound)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	page := s.newPage(ParseTab(r.URL.Query().Get("tab")))
	s.render(w, pagePredict, http.StatusOK, page)
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	page := s.newPage(TabManual)

	if err := r.ParseForm(); err != nil {
		s.logger.Warn().Err(err).Msg("Unreadable manual form")
		metrics.Submissions.WithLabelValues(string(models.FlowManual), metrics.OutcomeRejected).Inc()
		s.render(w, pagePredict, http.StatusBadRequest, page)
		return
	}

	req, manual := form.ParseManual(r.PostForm)
	page.Manual = manual
	if !manual.Valid() {
		s.logger.Debug().Interface("errors", manual.Errors).Msg("Manual form rejected")
		metrics.Submissions.WithLabelValues(string(models.FlowManual), metrics.OutcomeRejected).Inc()
		s.render(w, pagePredict, http.StatusUnprocessableEntity, page)
		return
	}

	page.Begin()
	result, err := s.client.PredictManual(r.Context(), req)
	if err != nil {
		s.logger.Error().Err(err).Msg("Manual prediction failed")
		metrics.Submissions.WithLabelValues(string(models.FlowManual), metrics.OutcomeFailure).Inc()
		page.FailManual(form.MsgManualFailed)
		s.render(w, pagePredict, http.StatusOK, page)
		return
	}
	page.SucceedManual(result)

	if result.IsError() {
		s.logger.Warn().Str("error", result.Error).Msg("Prediction service returned an error")
		metrics.Submissions.WithLabelValues(string(models.FlowManual), metrics.OutcomeFailure).Inc()
	} else {
		metrics.Submissions.WithLabelValues(string(models.FlowManual), metrics.OutcomeSuccess).Inc()
		metrics.ObserveResults(models.FlowManual, []models.PredictionResult{*result})
		s.logger.Info().Str("category", string(result.Prediction)).Float64("risk_score", result.RiskScore).Msg("Manual prediction completed")

		s.saveHistory(r.Context(), "", models.FlowManual, []models.BulkRow{{Row: 1, Result: *result}})
		s.alert(r, "manual", func(ctx context.Context) error {
			return s.notifier.ManualResult(ctx, result)
		})
	}

	s.render(w, pagePredict, http.StatusOK, page)
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	page := s.newPage(TabBulk)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
			page.Upload.Error = fmt.Sprintf("File is too large. The limit is %s.", page.MaxUpload)
		} else {
			page.Upload.Error = form.MsgNoFile
		}
		s.logger.Warn().Err(err).Msg("Unreadable bulk upload")
		metrics.Submissions.WithLabelValues(string(models.FlowBulk), metrics.OutcomeRejected).Inc()
		s.render(w, pagePredict, status, page)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	var header *multipart.FileHeader
	if files := r.MultipartForm.File[UploadField]; len(files) > 0 {
		header = files[0]
	}
	page.Upload.Select(header)
	if !page.Upload.Ready() {
		metrics.Submissions.WithLabelValues(string(models.FlowBulk), metrics.OutcomeRejected).Inc()
		s.render(w, pagePredict, http.StatusUnprocessableEntity, page)
		return
	}

	data, err := readUpload(header)
	if err != nil {
		s.logger.Error().Err(err).Str("file", header.Filename).Msg("Failed to read uploaded file")
		metrics.Submissions.WithLabelValues(string(models.FlowBulk), metrics.OutcomeFailure).Inc()
		page.FailBulk(form.MsgBulkFailed)
		s.render(w, pagePredict, http.StatusOK, page)
		return
	}

	batch := &models.Batch{ID: uuid.NewString(), FileName: header.Filename, CSVRows: -1}
	logger := s.logger.With().Str("batch_id", batch.ID).Str("file", batch.FileName).Logger()

	if n, err := form.CountRows(bytes.NewReader(data)); err != nil {
		logger.Warn().Err(err).Msg("Could not count CSV rows")
	} else {
		batch.CSVRows = n
	}

	page.Begin()
	results, err := s.client.PredictBulk(r.Context(), header.Filename, bytes.NewReader(data))
	if err != nil {
		logger.Error().Err(err).Msg("Bulk prediction failed")
		metrics.Submissions.WithLabelValues(string(models.FlowBulk), metrics.OutcomeFailure).Inc()
		page.FailBulk(form.MsgBulkFailed)
		s.render(w, pagePredict, http.StatusOK, page)
		return
	}

	batch.Rows = analyze.NumberRows(results)
	if batch.Mismatch() {
		logger.Warn().Int("csv_rows", batch.CSVRows).Int("results", len(batch.Rows)).
			Msg("Prediction service returned a different number of results than the file has rows")
	}
	page.SucceedBulk(batch)

	metrics.Submissions.WithLabelValues(string(models.FlowBulk), metrics.OutcomeSuccess).Inc()
	metrics.ObserveResults(models.FlowBulk, results)

	summary, ok := analyze.Summarize(results)
	logger.Info().Int("results", summary.Total).Float64("health_rate", summary.HealthRate).Msg("Bulk prediction completed")
	if ok {
		s.saveHistory(r.Context(), batch.ID, models.FlowBulk, batch.Rows)
		s.alert(r, "bulk", func(ctx context.Context) error {
			return s.notifier.BulkSummary(ctx, batch, summary)
		})
	}

	s.render(w, pagePredict, http.StatusOK, page)
}

// historyPage is the data of the history template
type historyPage struct {
	HistoryEnabled bool
	Rows           []present.HistoryRowView
	Error          string
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.render(w, pageHistory, http.StatusNotFound, historyPage{})
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	page := historyPage{HistoryEnabled: true}
	records, err := s.history.RecentPredictions(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load prediction history")
		page.Error = "Failed to load prediction history. Please try again."
		s.render(w, pageHistory, http.StatusInternalServerError, page)
		return
	}
	page.Rows = present.NewHistoryRows(records)
	s.render(w, pageHistory, http.StatusOK, page)
}

type healthResponse struct {
	Status    string `json:"status"`
	Predictor string `json:"predictor"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Predictor: "ok"}
	status := http.StatusOK
	if err := s.client.Health(r.Context()); err != nil {
		s.logger.Warn().Err(err).Msg("Prediction service health check failed")
		resp = healthResponse{Status: "degraded", Predictor: "unavailable", Error: healthUnreachable}
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// saveHistory stores predictions when history is enabled. Failures are logged only.
func (s *Server) saveHistory(ctx context.Context, batchID string, flow models.Flow, rows []models.BulkRow) {
	if s.history == nil {
		return
	}
	saved, err := s.history.SavePredictions(ctx, batchID, flow, rows)
	if err != nil {
		s.logger.Error().Err(err).Str("flow", string(flow)).Msg("Failed to save prediction history")
		return
	}
	s.logger.Debug().Int("saved", saved).Str("flow", string(flow)).Msg("Prediction history saved")
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return data, nil
}
