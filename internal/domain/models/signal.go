package models

import "time"

// Mode tells whether a signal is routed to real capital or only recorded.
type Mode string

const (
	ModeSimulation Mode = "simulation"
	ModeLive       Mode = "live"
)

// Signal is a trade intent produced by the analysis pipeline.
type Signal struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Score      float64   `json:"score"`
	Entry      float64   `json:"entry"`
	Stop       float64   `json:"stop"`
	TakeProfit float64   `json:"take_profit"`
	Reasons    []string  `json:"reasons"`
	ModelID    string    `json:"model_id,omitempty"`
	Mode       Mode      `json:"mode"`
	CreatedAt  time.Time `json:"created_at"`
}

// FeatureSet is the indicator snapshot the pipeline consumes for one symbol.
type FeatureSet struct {
	Symbol  string    `json:"symbol"`
	AsOf    time.Time `json:"as_of"`
	Close   float64   `json:"close"`
	ATR     float64   `json:"atr"`
	RSI     float64   `json:"rsi"`
	EMAFast float64   `json:"ema_fast"`
	EMASlow float64   `json:"ema_slow"`
	Trend   float64   `json:"trend"`
	VolAvg  float64   `json:"vol_avg"`
}

// Vector is the ordered feature vector fed to registry models.
func (f FeatureSet) Vector() []float64 {
	return []float64{f.Trend, f.RSI, f.ATR, f.Close}
}

type FundingAlert struct {
	ID              int64              `json:"id"`
	Symbol          string             `json:"symbol"`
	MissingCash     float64            `json:"missing_cash"`
	ProposedActions []string           `json:"proposed_actions"`
	Details         map[string]float64 `json:"details"`
	CreatedAt       time.Time          `json:"created_at"`
}

// QueuedTrade is a signal parked until funding is available or it expires.
type QueuedTrade struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Signal    Signal    `json:"signal"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type LogEntry struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
