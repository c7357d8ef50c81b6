package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Alias1177/MSMEPredictor/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
	now func() time.Time
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams = models.DBConfig

// New creates a new database connection
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	// Create PostgreSQL connection string
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Check connection
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db := Wrap(conn)

	// Create tables if they don't exist
	if err := db.CreateTables(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Wrap uses an already opened connection
func Wrap(conn *sql.DB) *DB {
	return &DB{DB: conn, now: func() time.Time { return time.Now().UTC() }}
}

// CreateTables creates the necessary tables if they don't exist
func (db *DB) CreateTables(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS prediction_history (
			id UUID PRIMARY KEY,
			batch_id UUID,
			flow TEXT NOT NULL,
			row_number INTEGER NOT NULL,
			category TEXT NOT NULL,
			status TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			risk_score DOUBLE PRECISION NOT NULL,
			key_factors TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating prediction_history: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS prediction_history_created_at_idx
		ON prediction_history (created_at DESC)
	`)
	if err != nil {
		return fmt.Errorf("creating prediction_history index: %w", err)
	}
	return nil
}

// SavePredictions stores the rows of one submission in a single transaction.
// batchID is empty for manual predictions. Error results are not stored.
func (db *DB) SavePredictions(ctx context.Context, batchID string, flow models.Flow, rows []models.BulkRow) (int, error) {
	var batch uuid.NullUUID
	if batchID != "" {
		id, err := uuid.Parse(batchID)
		if err != nil {
			return 0, fmt.Errorf("invalid batch id %q: %w", batchID, err)
		}
		batch = uuid.NullUUID{UUID: id, Valid: true}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prediction_history (
			id, batch_id, flow, row_number, category, status, confidence, risk_score, key_factors, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := db.now()
	saved := 0
	for _, row := range rows {
		r := row.Result
		if r.IsError() {
			continue
		}
		factors := r.KeyFactors
		if factors == nil {
			factors = []string{}
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.New(), batch, string(flow), row.Row, string(r.Prediction), r.Status,
			r.Confidence, r.RiskScore, pq.Array(factors), now,
		); err != nil {
			return 0, fmt.Errorf("inserting row %d: %w", row.Row, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return saved, nil
}

// RecentPredictions returns up to limit stored predictions, newest first
func (db *DB) RecentPredictions(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, batch_id, flow, row_number, category, status, confidence, risk_score, key_factors, created_at
		FROM prediction_history
		ORDER BY created_at DESC, row_number ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var records []models.HistoryRecord
	for rows.Next() {
		var rec models.HistoryRecord
		var batchID sql.NullString
		var flow, category string
		var factors pq.StringArray

		if err := rows.Scan(
			&rec.ID, &batchID, &flow, &rec.Row, &category, &rec.Status,
			&rec.Confidence, &rec.RiskScore, &factors, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}

		if batchID.Valid {
			rec.BatchID = batchID.String
		}
		rec.Flow = models.Flow(flow)
		rec.Category = models.RiskCategory(category)
		rec.KeyFactors = []string(factors)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return records, nil
}
