package models

import (
	"context"
	"io"
)

type PredictionClient interface {
	PredictManual(ctx context.Context, req PredictionRequest) (*PredictionResult, error)
	PredictBulk(ctx context.Context, fileName string, file io.Reader) ([]PredictionResult, error)
	Health(ctx context.Context) error
}
