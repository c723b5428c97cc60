package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/AtashM95/tradebot/internal/domain/models"
	domsvc "github.com/AtashM95/tradebot/internal/domain/service"
)

const (
	DefaultMinScore = 0.65

	stopATR       = 2.0
	takeProfitATR = 4.0
	minATR        = 0.1
)

// RulePipeline averages the confidence of every rule that fires and emits a
// buy signal when the mean clears MinScore. When a model is supplied it must
// also predict 1 for the feature vector.
type RulePipeline struct {
	rules    []Rule
	minScore float64
	eval     domsvc.ModelEvaluator
	now      func() time.Time
}

func NewRulePipeline(rules []Rule, minScore float64, eval domsvc.ModelEvaluator) *RulePipeline {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &RulePipeline{rules: rules, minScore: minScore, eval: eval, now: time.Now}
}

func (p *RulePipeline) Analyze(_ context.Context, f models.FeatureSet, model *models.Model) (*models.Signal, error) {
	var (
		sum     float64
		reasons []string
	)
	for _, r := range p.rules {
		in, ok := r.Evaluate(f)
		if !ok {
			continue
		}
		sum += in.Confidence
		reasons = append(reasons, in.Reason)
	}
	if len(reasons) == 0 {
		return nil, nil
	}
	score := sum / float64(len(reasons))
	if score < p.minScore {
		return nil, nil
	}

	var modelID string
	if model != nil && p.eval != nil {
		pred, err := p.eval.Predict(*model, f.Vector())
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", model.ID, err)
		}
		if pred < 1 {
			return nil, nil
		}
		modelID = model.ID
		reasons = append(reasons, "Model "+model.ID+" confirms")
	}

	atr := math.Max(f.ATR, minATR)
	return &models.Signal{
		ID:         uuid.NewString(),
		Symbol:     f.Symbol,
		Side:       "buy",
		Score:      score,
		Entry:      f.Close,
		Stop:       f.Close - stopATR*atr,
		TakeProfit: f.Close + takeProfitATR*atr,
		Reasons:    reasons,
		ModelID:    modelID,
		CreatedAt:  p.now().UTC(),
	}, nil
}

var _ domsvc.AnalysisPipeline = (*RulePipeline)(nil)
