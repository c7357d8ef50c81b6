package models

import (
	"time"
)

type Config struct {
	PredictorURL     string `env:"PREDICTOR_URL" envDefault:"http://localhost:5000"`
	ListenAddr       string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout   int    `env:"REQUEST_TIMEOUT" envDefault:"0"` // seconds, 0 = no timeout
	RequestsPerSec   int    `env:"REQUESTS_PER_SEC" envDefault:"5"`
	MaxUploadBytes   int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	WaitForPredictor int    `env:"WAIT_FOR_PREDICTOR" envDefault:"0"` // seconds
	DB               DBConfig
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`
}

// DBConfig holds PostgreSQL connection parameters. History is disabled when Host is empty.
type DBConfig struct {
	Host     string `env:"DB_HOST"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	DBName   string `env:"DB_NAME"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// RiskCategory is the label assigned by the prediction service
type RiskCategory string

const (
	RiskLow    RiskCategory = "Low Risk"
	RiskMedium RiskCategory = "Medium Risk"
	RiskHigh   RiskCategory = "High Risk"
)

// RiskCategories lists the known categories in display order
var RiskCategories = []RiskCategory{RiskLow, RiskMedium, RiskHigh}

// Flow identifies which submission path produced a prediction
type Flow string

const (
	FlowManual Flow = "manual"
	FlowBulk   Flow = "bulk"
)

// PredictionRequest is the manual form payload
type PredictionRequest struct {
	MonthlySales        float64 `json:"monthly_sales"`
	StockValue          float64 `json:"stock_value"`
	NumCustomers        float64 `json:"num_customers"`
	MonthlyExpenses     float64 `json:"monthly_expenses"`
	MonthlyProfit       float64 `json:"monthly_profit"`
	NumEmployees        float64 `json:"num_employees"`
	AvgTransactionValue float64 `json:"avg_transaction_value"`
	ReturnRate          float64 `json:"return_rate"`
	MarketingSpend      float64 `json:"marketing_spend"`
}

// PredictionResult is one prediction as returned by the service.
// A non-empty Error means the object is an error payload, not a prediction.
type PredictionResult struct {
	Prediction RiskCategory `json:"prediction,omitempty"`
	Status     string       `json:"status,omitempty"`
	Confidence float64      `json:"confidence"`
	RiskScore  float64      `json:"risk_score"`
	KeyFactors []string     `json:"key_factors,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// IsError reports whether the result should be shown in error mode
func (r *PredictionResult) IsError() bool {
	return r != nil && r.Error != ""
}

// ErrorResult builds a synthetic result carrying only an error message
func ErrorResult(msg string) *PredictionResult {
	return &PredictionResult{Error: msg}
}

// BulkRow pairs a bulk result with its 1-based position in the response
type BulkRow struct {
	Row    int              `json:"row"`
	Result PredictionResult `json:"result"`
}

// Batch is one bulk submission
type Batch struct {
	ID       string    `json:"id"`
	FileName string    `json:"file_name"`
	CSVRows  int       `json:"csv_rows"`
	Rows     []BulkRow `json:"rows"`
}

// Mismatch reports whether the service returned a different number of
// results than data rows were counted in the uploaded file.
func (b *Batch) Mismatch() bool {
	return b != nil && b.CSVRows >= 0 && b.CSVRows != len(b.Rows)
}

// Results returns the bulk results in response order
func (b *Batch) Results() []PredictionResult {
	if b == nil {
		return nil
	}
	out := make([]PredictionResult, len(b.Rows))
	for i, r := range b.Rows {
		out[i] = r.Result
	}
	return out
}

// Summary aggregates a set of bulk results
type Summary struct {
	Total      int     `json:"total"`
	LowRisk    int     `json:"low_risk"`
	MediumRisk int     `json:"medium_risk"`
	HighRisk   int     `json:"high_risk"`
	HealthRate float64 `json:"health_rate"` // percent of Low Risk results
}

// HistoryRecord is a stored prediction
type HistoryRecord struct {
	ID         string       `json:"id"`
	BatchID    string       `json:"batch_id,omitempty"`
	Flow       Flow         `json:"flow"`
	Row        int          `json:"row"`
	Category   RiskCategory `json:"category"`
	Status     string       `json:"status"`
	Confidence float64      `json:"confidence"`
	RiskScore  float64      `json:"risk_score"`
	KeyFactors []string     `json:"key_factors"`
	CreatedAt  time.Time    `json:"created_at"`
}
