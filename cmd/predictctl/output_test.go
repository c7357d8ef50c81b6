package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alias1177/MSMEPredictor/models"
)

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	writeResult(&buf, &models.PredictionResult{
		Prediction: models.RiskMedium,
		Status:     "Needs attention",
		Confidence: 0.731,
		RiskScore:  48,
		KeyFactors: []string{"monthly_expenses"},
	})

	out := buf.String()
	assert.Contains(t, out, "Medium Risk")
	assert.Contains(t, out, "73.1%")
	assert.Contains(t, out, "  - Monthly Expenses\n")
	assert.Contains(t, out, "requires attention in some areas")
}

func TestWriteResult_ErrorAndNoFactors(t *testing.T) {
	var buf bytes.Buffer
	writeResult(&buf, models.ErrorResult("Model not loaded"))
	assert.Equal(t, "Error: Model not loaded\n", buf.String())

	buf.Reset()
	writeResult(&buf, &models.PredictionResult{Prediction: models.RiskLow})
	assert.Contains(t, buf.String(), "No specific risk factors identified")
}

func TestWriteBulk(t *testing.T) {
	var buf bytes.Buffer
	writeBulk(&buf, &models.Batch{
		CSVRows: 3,
		Rows: []models.BulkRow{
			{Row: 1, Result: models.PredictionResult{Prediction: models.RiskLow, Status: "Healthy", Confidence: 0.9, RiskScore: 12}},
			{Row: 2, Result: models.PredictionResult{Prediction: models.RiskHigh, Status: "Critical", Confidence: 0.8, RiskScore: 91, KeyFactors: []string{"return_rate"}}},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Showing predictions for 2 businesses")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "the file has 3 data rows but 2 predictions were returned")
	assert.Contains(t, out, "None identified")
	assert.Contains(t, out, "Return Rate")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "2 "))
}

func TestWriteBulk_Empty(t *testing.T) {
	var buf bytes.Buffer
	writeBulk(&buf, &models.Batch{})
	assert.Equal(t, "No predictions returned\n", buf.String())
}

func TestFlagName(t *testing.T) {
	assert.Equal(t, "avg-transaction-value", flagName("avg_transaction_value"))
}
