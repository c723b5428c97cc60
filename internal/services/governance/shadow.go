package governance

import (
	"context"
	"time"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
	domsvc "github.com/AtashM95/tradebot/internal/domain/service"
	"github.com/AtashM95/tradebot/internal/services/features"
)

// ShadowEvaluator runs a candidate and the active model over the same
// feature/target series. It only reads the registry.
type ShadowEvaluator struct {
	registry *Registry
	eval     domsvc.ModelEvaluator
	metric   string
	margin   float64
	now      func() time.Time
}

// NewShadowEvaluator compares models on metric (e.g. "accuracy"); a
// difference larger than margin decides the recommendation.
func NewShadowEvaluator(registry *Registry, eval domsvc.ModelEvaluator, metric string, margin float64) *ShadowEvaluator {
	if metric == "" {
		metric = "accuracy"
	}
	return &ShadowEvaluator{
		registry: registry,
		eval:     eval,
		metric:   metric,
		margin:   margin,
		now:      time.Now,
	}
}

// Test evaluates candidateID against activeID, or against the registry's
// active model when activeID is empty.
func (s *ShadowEvaluator) Test(_ context.Context, candidateID, activeID string, X [][]float64, y []float64) (models.ShadowResult, error) {
	if err := validateSeries(X, y); err != nil {
		return models.ShadowResult{}, err
	}

	candidate, err := s.registry.Get(candidateID)
	if err != nil {
		return models.ShadowResult{}, err
	}
	var incumbent models.Model
	if activeID == "" {
		incumbent, err = s.registry.Active()
	} else {
		incumbent, err = s.registry.Get(activeID)
	}
	if err != nil {
		return models.ShadowResult{}, err
	}

	candMetrics, err := Score(s.eval, candidate, X, y)
	if err != nil {
		return models.ShadowResult{}, err
	}
	activeMetrics, err := Score(s.eval, incumbent, X, y)
	if err != nil {
		return models.ShadowResult{}, err
	}

	delta, err := s.delta(candMetrics, activeMetrics)
	if err != nil {
		return models.ShadowResult{}, err
	}

	return models.ShadowResult{
		CandidateModelID: candidate.ID,
		ActiveModelID:    incumbent.ID,
		CandidateMetrics: candMetrics,
		ActiveMetrics:    activeMetrics,
		PrimaryMetric:    s.metric,
		Delta:            delta,
		Margin:           s.margin,
		Recommendation:   recommend(delta, s.margin),
		Samples:          len(y),
		EvaluatedAt:      s.now().UTC(),
	}, nil
}

// delta is oriented so that positive always favours the candidate.
func (s *ShadowEvaluator) delta(cand, active models.ModelMetrics) (float64, error) {
	c, ok := cand.Value(s.metric)
	if !ok {
		return 0, errs.InvalidInput("unknown primary metric %q", s.metric)
	}
	a, _ := active.Value(s.metric)
	if s.metric == "volatility" {
		return a - c, nil
	}
	return c - a, nil
}

func recommend(delta, margin float64) models.Recommendation {
	switch {
	case delta > margin:
		return models.RecommendPromote
	case delta < -margin:
		return models.RecommendKeep
	default:
		return models.RecommendInconclusive
	}
}

func validateSeries(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return errs.InvalidInput("features must not be empty")
	}
	if len(X) != len(y) {
		return errs.InvalidInput("features has %d rows but target has %d", len(X), len(y))
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) == 0 || len(row) != width {
			return errs.InvalidInput("feature row %d has width %d, expected %d", i, len(row), width)
		}
		if !features.IsFinite(row) {
			return errs.InvalidInput("feature row %d is not finite", i)
		}
	}
	if !features.IsFinite(y) {
		return errs.InvalidInput("target is not finite")
	}
	return nil
}

// Score evaluates m over (X, y). Targets > 0 count as positive labels; when
// targets are returns, MeanReturn is the average return of following the model.
func Score(eval domsvc.ModelEvaluator, m models.Model, X [][]float64, y []float64) (models.ModelMetrics, error) {
	correct := 0
	positives, hits := 0, 0
	pnl := make([]float64, len(y))
	for i, row := range X {
		p, err := eval.Predict(m, row)
		if err != nil {
			return models.ModelMetrics{}, err
		}
		label := 0.0
		if y[i] > 0 {
			label = 1
		}
		if p == label {
			correct++
		}
		if p == 1 {
			positives++
			if y[i] > 0 {
				hits++
			}
		}
		pnl[i] = p * y[i]
	}

	out := models.ModelMetrics{
		Accuracy:   float64(correct) / float64(len(y)),
		MeanReturn: features.Mean(pnl),
		Volatility: features.StdDev(pnl),
		Samples:    len(y),
	}
	if positives > 0 {
		out.HitRate = float64(hits) / float64(positives)
	}
	return out, nil
}
