// Package web serves the predictor pages.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/MSMEPredictor/internal/notify"
	"github.com/Alias1177/MSMEPredictor/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pagePredict = "predict"
	pageHistory = "history"

	// alertTimeout bounds one notification, detached from the request
	alertTimeout = notify.SendTimeout + 5*time.Second
)

// HistoryStore keeps submitted predictions
type HistoryStore interface {
	SavePredictions(ctx context.Context, batchID string, flow models.Flow, rows []models.BulkRow) (int, error)
	RecentPredictions(ctx context.Context, limit int) ([]models.HistoryRecord, error)
}

// Options configures a Server. History and Notifier are optional.
type Options struct {
	Client         models.PredictionClient
	History        HistoryStore
	Notifier       notify.Notifier
	MaxUploadBytes int64
}

// Server renders the predictor and forwards submissions to the prediction service
type Server struct {
	client    models.PredictionClient
	history   HistoryStore
	notifier  notify.Notifier
	maxUpload int64
	pages     map[string]*template.Template
	logger    zerolog.Logger

	alerts sync.WaitGroup
}

// NewServer parses the page templates and builds a server
func NewServer(opts Options) (*Server, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("prediction client is required")
	}
	if opts.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive, got %d", opts.MaxUploadBytes)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}

	pages := make(map[string]*template.Template)
	for _, name := range []string{pagePredict, pageHistory} {
		tmpl, err := template.New(name).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Server{
		client:    opts.Client,
		history:   opts.History,
		notifier:  opts.Notifier,
		maxUpload: opts.MaxUploadBytes,
		pages:     pages,
		logger:    log.With().Str("component", "web").Logger(),
	}, nil
}

// Router registers the routes without middleware
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodGet)
	r.HandleFunc("/predict/manual", s.handleManual).Methods(http.MethodPost)
	r.HandleFunc("/predict/bulk", s.handleBulk).Methods(http.MethodPost)
	r.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

// Handler is the router wrapped with panic recovery and an access log
func (s *Server) Handler() http.Handler {
	access := log.With().Str("component", "access").Logger()
	recovered := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)(s.Router())
	return handlers.CombinedLoggingHandler(&access, recovered)
}

func (s *Server) render(w http.ResponseWriter, page string, status int, data any) {
	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error().Err(err).Str("page", page).Msg("Failed to render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// alert runs send in the background with its own deadline, so a slow
// notifier never holds up the page.
func (s *Server) alert(r *http.Request, what string, send func(ctx context.Context) error) {
	ctx := context.WithoutCancel(r.Context())
	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()
		ctx, cancel := context.WithTimeout(ctx, alertTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			s.logger.Error().Err(err).Str("alert", what).Msg("Failed to send alert")
		}
	}()
}

// Wait blocks until pending alerts finish or ctx is done
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.alerts.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type recoveryLogger struct {
	logger zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error().Msg(fmt.Sprint(v...))
}
