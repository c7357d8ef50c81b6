package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformhttp "github.com/Alias1177/MSMEPredictor/internal/platform/http"
	"github.com/Alias1177/MSMEPredictor/models"
)

func newTestClient(url string) *Client {
	return New(url, platformhttp.NewClient(platformhttp.ClientOptions{
		RequestsPerSec:  100,
		InitialInterval: time.Millisecond,
	}), NewHealthClient(zerolog.Nop(), time.Millisecond))
}

func sampleRequest() models.PredictionRequest {
	return models.PredictionRequest{
		MonthlySales:        250000,
		StockValue:          80000,
		NumCustomers:        420,
		MonthlyExpenses:     190000,
		MonthlyProfit:       60000,
		NumEmployees:        12,
		AvgTransactionValue: 595.5,
		ReturnRate:          0.03,
		MarketingSpend:      15000,
	}
}

func TestPredictManual_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ManualPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Len(t, got, len(models.PredictionFields))
		for _, f := range models.PredictionFields {
			assert.Contains(t, got, f)
		}
		assert.Equal(t, 595.5, got["avg_transaction_value"])

		_, _ = w.Write([]byte(`{"prediction":"Medium Risk","status":"Needs Attention","confidence":0.857,"risk_score":54,"key_factors":["monthly_profit","return_rate"]}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).PredictManual(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, models.RiskMedium, res.Prediction)
	assert.Equal(t, "Needs Attention", res.Status)
	assert.InDelta(t, 0.857, res.Confidence, 1e-9)
	assert.Equal(t, 54.0, res.RiskScore)
	assert.Equal(t, []string{"monthly_profit", "return_rate"}, res.KeyFactors)
	assert.False(t, res.IsError())
}

func TestPredictManual_ErrorPayloadPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).PredictManual(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, res.IsError())
	assert.Equal(t, "model not loaded", res.Error)
}

func TestPredictManual_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"boom"}`, nil},
		{"unknown category", http.StatusOK, `{"prediction":"Moderate Risk"}`, ErrMalformedResponse},
		{"confidence out of range", http.StatusOK, `{"prediction":"Low Risk","confidence":1.5}`, ErrMalformedResponse},
		{"not json", http.StatusOK, `<html>`, ErrMalformedResponse},
		{"fastapi detail", http.StatusOK, `{"detail":"validation"}`, ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			res, err := newTestClient(srv.URL).PredictManual(context.Background(), sampleRequest())
			require.Error(t, err)
			assert.Nil(t, res)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				var statusErr *platformhttp.HTTPStatusError
				assert.True(t, errors.As(err, &statusErr))
			}
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "submissions are sent once")
		})
	}
}

func TestPredictManual_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).PredictManual(context.Background(), sampleRequest())
	assert.Error(t, err)
}

func TestPredictBulk_Success(t *testing.T) {
	const csvBody = "monthly_sales,stock_value\n100,20\n300,40\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, BulkPath, r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		f, fh, err := r.FormFile(BulkFileField)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, `quarter "q1".csv`, fh.Filename)
		assert.Equal(t, "text/csv", fh.Header.Get("Content-Type"))
		data, _ := io.ReadAll(f)
		assert.Equal(t, csvBody, string(data))

		_, _ = w.Write([]byte(`[
			{"prediction":"Low Risk","status":"Healthy","confidence":0.9,"risk_score":12,"key_factors":[]},
			{"prediction":"High Risk","status":"Critical","confidence":0.95,"risk_score":88,"key_factors":["monthly_expenses"]}
		]`))
	}))
	defer srv.Close()

	results, err := newTestClient(srv.URL).PredictBulk(context.Background(), `quarter "q1".csv`, strings.NewReader(csvBody))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, models.RiskLow, results[0].Prediction)
	assert.Equal(t, models.RiskHigh, results[1].Prediction)
	assert.Equal(t, []string{"monthly_expenses"}, results[1].KeyFactors)
}

func TestPredictBulk_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"error payload", http.StatusOK, `{"error":"missing column monthly_sales"}`, ErrUpstream},
		{"object instead of array", http.StatusOK, `{"prediction":"Low Risk"}`, ErrMalformedResponse},
		{"row without prediction", http.StatusOK, `[{"status":"ok"}]`, ErrMalformedResponse},
		{"bad request", http.StatusBadRequest, `bad csv`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			results, err := newTestClient(srv.URL).PredictBulk(context.Background(), "a.csv", strings.NewReader("x\n1\n"))
			require.Error(t, err)
			assert.Nil(t, results)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestPredictBulk_EmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	results, err := newTestClient(srv.URL).PredictBulk(context.Background(), "a.csv", strings.NewReader("x\n"))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestWaitReady(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, HealthPath, r.URL.Path)
		if atomic.AddInt32(&calls, 1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).WaitReady(context.Background(), 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWaitReady_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	assert.Error(t, newTestClient(srv.URL).WaitReady(ctx, time.Minute))
}

func TestWaitReady_HonoursMaxWait(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	started := time.Now()
	err := newTestClient(srv.URL).WaitReady(context.Background(), 200*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready after 200ms")
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.Greater(t, atomic.LoadInt32(&calls), int32(1), "health is retried until the wait expires")
}

func TestHealth_SingleAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHealth_DoesNotSpendSubmissionTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	submissions := platformhttp.NewClient(platformhttp.ClientOptions{RequestsPerSec: 1})
	c := New(srv.URL, submissions, NewHealthClient(zerolog.Nop(), time.Millisecond))

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Health(context.Background()))
	}
	assert.InDelta(t, 1.0, submissions.Limiter.Tokens(), 0.01)
}
