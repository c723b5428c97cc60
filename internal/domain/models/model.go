package models

import "time"

// Model is an immutable, versioned strategy model tracked by the registry.
type Model struct {
	ID             string             `json:"id"`
	Algorithm      string             `json:"algorithm"`
	CreatedAt      time.Time          `json:"created_at"`
	Parameters     map[string]float64 `json:"parameters"`
	TrainingWindow TrainingWindow     `json:"training_window"`
	Metrics        ModelMetrics       `json:"metrics"`
}

// Clone returns a deep copy so callers cannot mutate registry-owned state.
func (m Model) Clone() Model {
	out := m
	if m.Parameters != nil {
		out.Parameters = make(map[string]float64, len(m.Parameters))
		for k, v := range m.Parameters {
			out.Parameters[k] = v
		}
	}
	return out
}

type TrainingWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ModelMetrics is a numeric performance summary.
type ModelMetrics struct {
	Accuracy   float64 `json:"accuracy"`
	HitRate    float64 `json:"hit_rate"`
	MeanReturn float64 `json:"mean_return"`
	Volatility float64 `json:"volatility"`
	Samples    int     `json:"samples"`
}

// Value looks up a metric by its JSON name.
func (m ModelMetrics) Value(name string) (float64, bool) {
	switch name {
	case "accuracy":
		return m.Accuracy, true
	case "hit_rate":
		return m.HitRate, true
	case "mean_return":
		return m.MeanReturn, true
	case "volatility":
		return m.Volatility, true
	default:
		return 0, false
	}
}

// ModelSummary is the list view of a Model.
type ModelSummary struct {
	ID             string         `json:"id"`
	Algorithm      string         `json:"algorithm"`
	CreatedAt      time.Time      `json:"created_at"`
	TrainingWindow TrainingWindow `json:"training_window"`
	Metrics        ModelMetrics   `json:"metrics"`
	Active         bool           `json:"active"`
}

func (m Model) Summary(active bool) ModelSummary {
	return ModelSummary{
		ID:             m.ID,
		Algorithm:      m.Algorithm,
		CreatedAt:      m.CreatedAt,
		TrainingWindow: m.TrainingWindow,
		Metrics:        m.Metrics,
		Active:         active,
	}
}

// DriftReport compares a baseline and a current sample.
type DriftReport struct {
	Statistic    string  `json:"statistic"`
	Score        float64 `json:"score"`
	PValue       float64 `json:"p_value"`
	Alpha        float64 `json:"alpha"`
	Threshold    float64 `json:"threshold"`
	Drifted      bool    `json:"drifted"`
	MeanShift    float64 `json:"mean_shift"`
	BaselineSize int     `json:"baseline_size"`
	CurrentSize  int     `json:"current_size"`
}

type Recommendation string

const (
	RecommendPromote      Recommendation = "promote"
	RecommendKeep         Recommendation = "keep"
	RecommendInconclusive Recommendation = "inconclusive"
)

// ShadowResult is a side-by-side evaluation of a candidate against the active model.
type ShadowResult struct {
	CandidateModelID string         `json:"candidate_model_id"`
	ActiveModelID    string         `json:"active_model_id"`
	CandidateMetrics ModelMetrics   `json:"candidate_metrics"`
	ActiveMetrics    ModelMetrics   `json:"active_metrics"`
	PrimaryMetric    string         `json:"primary_metric"`
	Delta            float64        `json:"delta"`
	Margin           float64        `json:"margin"`
	Recommendation   Recommendation `json:"recommendation"`
	Samples          int            `json:"samples"`
	EvaluatedAt      time.Time      `json:"evaluated_at"`
}
