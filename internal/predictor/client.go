// Package predictor talks to the external MSME risk prediction service.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/MSMEPredictor/internal/metrics"
	platformhttp "github.com/Alias1177/MSMEPredictor/internal/platform/http"
	"github.com/Alias1177/MSMEPredictor/models"
)

const (
	ManualPath = "/predict-manual"
	BulkPath   = "/predict-bulk"
	HealthPath = "/health"

	// BulkFileField is the multipart field the service reads the CSV from
	BulkFileField = "file"

	healthTimeout        = 5 * time.Second
	healthRequestsPerSec = 10
)

var (
	ErrMalformedResponse = errors.New("malformed prediction response")
	ErrUpstream          = errors.New("prediction service error")
)

// Client calls the prediction service
type Client struct {
	baseURL string
	http    *platformhttp.Client
	checker *platformhttp.Client
	logger  zerolog.Logger
}

var _ models.PredictionClient = (*Client)(nil)

// NewClient creates a prediction client from the application config.
// Submissions are never retried. Health checks use their own limiter so they
// never delay a submission.
func NewClient(config *models.Config) *Client {
	return New(config.PredictorURL, platformhttp.NewClient(platformhttp.ClientOptions{
		Timeout:        time.Duration(config.RequestTimeout) * time.Second,
		RequestsPerSec: config.RequestsPerSec,
	}), nil)
}

// NewHealthClient builds the HTTP client used for health checks. Its requests
// are retried with exponential backoff until the caller's context is done.
func NewHealthClient(logger zerolog.Logger, initialInterval time.Duration) *platformhttp.Client {
	return platformhttp.NewClient(platformhttp.ClientOptions{
		Timeout:         healthTimeout,
		RequestsPerSec:  healthRequestsPerSec,
		MaxRetries:      platformhttp.UnlimitedRetries,
		InitialInterval: initialInterval,
		MaxRetryTimeout: -1,
		OnRetry: func(err error, next time.Duration) {
			logger.Warn().Err(err).Dur("retry_in", next).Msg("Prediction service not ready")
		},
	})
}

// New creates a prediction client on top of existing HTTP clients. A nil
// checker gets the default health client.
func New(baseURL string, hc, checker *platformhttp.Client) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		checker: checker,
		logger:  log.With().Str("component", "predictor_client").Logger(),
	}
	if c.checker == nil {
		c.checker = NewHealthClient(c.logger, 0)
	}
	return c
}

// PredictManual submits one business's metrics. The returned result may be an
// error payload sent by the service with a success status.
func (c *Client) PredictManual(ctx context.Context, req models.PredictionRequest) (result *models.PredictionResult, err error) {
	defer func(started time.Time) { metrics.ObserveUpstream(ManualPath, started, err) }(time.Now())

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ManualPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().RawJSON("payload", payload).Msg("Sending manual prediction request")

	body, err := c.send(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	if err := validate(manualSchema, body); err != nil {
		c.logger.Error().Err(err).Str("response", truncate(body)).Msg("Unexpected manual prediction response")
		return nil, err
	}

	var out models.PredictionResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	c.logger.Debug().Str("category", string(out.Prediction)).Bool("error", out.IsError()).Msg("Received manual prediction")
	return &out, nil
}

// PredictBulk uploads a CSV file and returns one result per row, in response order
func (c *Client) PredictBulk(ctx context.Context, fileName string, file io.Reader) (results []models.PredictionResult, err error) {
	defer func(started time.Time) { metrics.ObserveUpstream(BulkPath, started, err) }(time.Now())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		BulkFileField, quoteEscaper.Replace(fileName)))
	header.Set("Content-Type", "text/csv")

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("creating multipart part: %w", err)
	}
	size, err := io.Copy(part, file)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+BulkPath, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("file", fileName).Int64("bytes", size).Msg("Uploading bulk prediction file")

	body, err := c.send(ctx, httpReq)
	if err != nil {
		return nil, err
	}

	if msg := errorPayload(body); msg != "" {
		c.logger.Error().Str("error", msg).Msg("Prediction service rejected bulk file")
		return nil, fmt.Errorf("%w: %s", ErrUpstream, msg)
	}

	if err := validate(bulkSchema, body); err != nil {
		c.logger.Error().Err(err).Str("response", truncate(body)).Msg("Unexpected bulk prediction response")
		return nil, err
	}

	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	c.logger.Debug().Int("count", len(results)).Msg("Received bulk predictions")
	return results, nil
}

// Health checks the service's health endpoint once
func (c *Client) Health(ctx context.Context) error {
	return c.health(ctx, c.checker.DoOnce)
}

// WaitReady polls the health endpoint with exponential backoff until it
// succeeds, maxWait elapses or ctx is done.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	if err := c.health(ctx, c.checker.DoRequest); err != nil {
		return fmt.Errorf("prediction service not ready after %s: %w", maxWait, err)
	}
	return nil
}

func (c *Client) health(ctx context.Context, do func(context.Context, *http.Request) (*http.Response, error)) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+HealthPath, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := do(ctx, httpReq)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

func (c *Client) send(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := c.http.DoRequest(ctx, req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", req.URL.String()).Msg("Prediction request failed")
		return nil, fmt.Errorf("calling %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

// errorPayload extracts the message of an {"error": "..."} object
func errorPayload(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return ""
	}
	return payload.Error
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
