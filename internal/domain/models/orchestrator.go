package models

import "time"

type OrchestratorState string

const (
	StateIdle    OrchestratorState = "idle"
	StateRunning OrchestratorState = "running"
	StatePaused  OrchestratorState = "paused"
	StateStopped OrchestratorState = "stopped"
)

// LiveSession authorises live order flow until ExpiresAt. Token is handed to
// the caller once; the gate keeps only its hash.
type LiveSession struct {
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CycleSummary describes one control loop iteration.
type CycleSummary struct {
	Status    string            `json:"status"`
	Message   string            `json:"message,omitempty"`
	Processed int               `json:"processed"`
	Signals   int               `json:"signals"`
	Queued    int               `json:"queued"`
	Live      bool              `json:"live"`
	ModelID   string            `json:"model_id,omitempty"`
	Skipped   map[string]string `json:"skipped,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration_ns"`
}

// OrchestratorStatus is the pollable view of the orchestrator.
type OrchestratorStatus struct {
	Status        OrchestratorState `json:"status"`
	Live          bool              `json:"live"`
	ActiveModelID string            `json:"active_model_id,omitempty"`
	Cycles        int64             `json:"cycles"`
	LastRun       *CycleSummary     `json:"last_run,omitempty"`
}

// RuntimeSettings is the non-secret configuration exposed to operators.
type RuntimeSettings struct {
	Environment       string         `json:"environment"`
	Watchlist         []string       `json:"default_watchlist"`
	Interval          time.Duration  `json:"interval_ns"`
	BarsPerAnalysis   int            `json:"bars_per_analysis"`
	Backtest          BacktestParams `json:"backtest"`
	DriftThreshold    float64        `json:"drift_threshold"`
	DriftAlpha        float64        `json:"drift_alpha"`
	ShadowMargin      float64        `json:"shadow_margin"`
	PrimaryMetric     string         `json:"primary_metric"`
	LivePINConfigured bool           `json:"live_pin_configured"`
	SessionMinutes    int            `json:"session_minutes"`
	DataSource        string         `json:"data_source"`
	AnalyticsMode     string         `json:"analytics_mode"`
	KafkaEnabled      bool           `json:"kafka_enabled"`
	RedisEnabled      bool           `json:"redis_enabled"`
}
