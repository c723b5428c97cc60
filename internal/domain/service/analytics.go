package service

import (
	"context"

	"github.com/AtashM95/tradebot/internal/domain/models"
)

// AnalysisPipeline turns a symbol's features into at most one trade signal
// under the given model. A nil signal with a nil error means "no trade".
type AnalysisPipeline interface {
	Analyze(ctx context.Context, features models.FeatureSet, model *models.Model) (*models.Signal, error)
}

// FundingCheck decides whether a signal can be funded; a non-nil alert means
// it cannot and the trade should be parked.
type FundingCheck interface {
	Check(ctx context.Context, s models.Signal) (*models.FundingAlert, error)
}

// ModelEvaluator produces a 0/1 prediction for one feature vector.
type ModelEvaluator interface {
	Predict(m models.Model, x []float64) (float64, error)
}
