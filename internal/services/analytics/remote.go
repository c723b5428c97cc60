package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AtashM95/tradebot/internal/domain/models"
	domsvc "github.com/AtashM95/tradebot/internal/domain/service"
)

// HTTPPipeline delegates signal generation to an external analytics service.
type HTTPPipeline struct{ base *HTTPServiceBase }

func NewHTTPPipeline(base *HTTPServiceBase) *HTTPPipeline { return &HTTPPipeline{base: base} }

type analyzeReq struct {
	Features models.FeatureSet `json:"features"`
	Model    *models.Model     `json:"model,omitempty"`
}

type analyzeResp struct {
	Signal *struct {
		Side       string   `json:"side"`
		Score      float64  `json:"score"`
		Entry      float64  `json:"entry"`
		Stop       float64  `json:"stop"`
		TakeProfit float64  `json:"take_profit"`
		Reasons    []string `json:"reasons"`
	} `json:"signal"`
}

func (p *HTTPPipeline) Analyze(ctx context.Context, f models.FeatureSet, model *models.Model) (*models.Signal, error) {
	var ar analyzeResp
	if err := p.base.PostJSON(ctx, "/analyze", analyzeReq{Features: f, Model: model}, &ar); err != nil {
		return nil, fmt.Errorf("remote analyze %s: %w", f.Symbol, err)
	}
	if ar.Signal == nil {
		return nil, nil
	}
	s := &models.Signal{
		ID:         uuid.NewString(),
		Symbol:     f.Symbol,
		Side:       ar.Signal.Side,
		Score:      ar.Signal.Score,
		Entry:      ar.Signal.Entry,
		Stop:       ar.Signal.Stop,
		TakeProfit: ar.Signal.TakeProfit,
		Reasons:    ar.Signal.Reasons,
		CreatedAt:  time.Now().UTC(),
	}
	if s.Side == "" {
		s.Side = "buy"
	}
	if model != nil {
		s.ModelID = model.ID
	}
	return s, nil
}

var _ domsvc.AnalysisPipeline = (*HTTPPipeline)(nil)
