package models

import "time"

// Request DTOs for the HTTP endpoints. Pointer fields keep an explicit zero
// distinguishable from an omitted value so defaults only fill omissions.

type BacktestRequest struct {
	Symbols   []string `json:"symbols"`
	Strategy  string   `json:"strategy"`
	Years     *int     `json:"years" default:"5"`
	TrainDays *int     `json:"train_days" default:"504"`
	TestDays  *int     `json:"test_days" default:"126"`
	StepDays  *int     `json:"step_days" default:"63"`
}

// Params flattens the request; nil fields read as zero and are rejected downstream.
func (r BacktestRequest) Params() BacktestParams {
	deref := func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	}
	return BacktestParams{
		Symbols:   r.Symbols,
		Strategy:  r.Strategy,
		Years:     deref(r.Years),
		TrainDays: deref(r.TrainDays),
		TestDays:  deref(r.TestDays),
		StepDays:  deref(r.StepDays),
	}
}

type SetActiveRequest struct {
	ModelID string `json:"model_id" validate:"required"`
}

type RegisterModelRequest struct {
	ID             string             `json:"id" validate:"required,max=128"`
	Algorithm      string             `json:"algorithm" default:"threshold" validate:"oneof=threshold linear"`
	Parameters     map[string]float64 `json:"parameters" validate:"required"`
	TrainingWindow TrainingWindow     `json:"training_window"`
	Metrics        ModelMetrics       `json:"metrics"`
	CreatedAt      *time.Time         `json:"created_at"`
}

type DriftCheckRequest struct {
	Baseline []float64 `json:"baseline"`
	Current  []float64 `json:"current"`
}

type ShadowTestRequest struct {
	CandidateModelID string      `json:"candidate_model_id" validate:"required"`
	ActiveModelID    string      `json:"active_model_id"`
	Features         [][]float64 `json:"features"`
	Target           []float64   `json:"target"`
}

type UnlockRequest struct {
	LiveCheckbox bool   `json:"live_checkbox"`
	PIN          string `json:"pin"`
	Phrase       string `json:"phrase"`
}

type WatchlistRequest struct {
	Symbols string `json:"symbols"`
}

type AnalyzeRequest struct {
	Symbol string `json:"symbol" validate:"required"`
}

type LimitQuery struct {
	Limit int `query:"limit" default:"100" validate:"gte=1,lte=1000"`
}
