package models

import "time"

// Bar is one daily OHLCV record.
type Bar struct {
	Time   time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// BacktestParams describes one walk-forward run.
type BacktestParams struct {
	Symbols   []string `json:"symbols"`
	Strategy  string   `json:"strategy,omitempty"`
	Years     int      `json:"years"`
	TrainDays int      `json:"train_days"`
	TestDays  int      `json:"test_days"`
	StepDays  int      `json:"step_days"`
}

// BacktestWindow is one walk-forward fold as half-open bar index ranges
// [TrainStart, TrainEnd) and [TestStart, TestEnd). TestStart == TrainEnd.
type BacktestWindow struct {
	Index      int `json:"index"`
	TrainStart int `json:"train_start"`
	TrainEnd   int `json:"train_end"`
	TestStart  int `json:"test_start"`
	TestEnd    int `json:"test_end"`
}

// PerformanceMetrics summarises one out-of-sample test slice.
type PerformanceMetrics struct {
	Return      float64 `json:"return"`
	MaxDrawdown float64 `json:"max_drawdown"`
	HitRate     float64 `json:"hit_rate"`
	Sharpe      float64 `json:"sharpe"`
	Exposure    float64 `json:"exposure"`
	Trades      int     `json:"trades"`
	Bars        int     `json:"bars"`
}

type WindowResult struct {
	Window    BacktestWindow     `json:"window"`
	TrainFrom time.Time          `json:"train_from"`
	TrainTo   time.Time          `json:"train_to"`
	TestFrom  time.Time          `json:"test_from"`
	TestTo    time.Time          `json:"test_to"`
	Params    map[string]float64 `json:"params,omitempty"`
	Metrics   PerformanceMetrics `json:"metrics"`
}

// AggregateMetrics are cross-window statistics of out-of-sample results.
type AggregateMetrics struct {
	Windows      int     `json:"windows"`
	MeanReturn   float64 `json:"mean_return"`
	ReturnStd    float64 `json:"return_std"`
	TotalReturn  float64 `json:"total_return"`
	MeanDrawdown float64 `json:"mean_drawdown"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	HitRate      float64 `json:"hit_rate"`
	Sharpe       float64 `json:"sharpe"`
	Trades       int     `json:"trades"`
}

type SymbolStatus string

const (
	SymbolCompleted           SymbolStatus = "completed"
	SymbolInsufficientHistory SymbolStatus = "insufficient_history"
	SymbolError               SymbolStatus = "error"
)

type SymbolResult struct {
	Symbol      string            `json:"symbol"`
	Status      SymbolStatus      `json:"status"`
	Error       string            `json:"error,omitempty"`
	Bars        int               `json:"bars"`
	Windows     []WindowResult    `json:"windows"`
	Aggregate   *AggregateMetrics `json:"aggregate,omitempty"`
	EquityCurve []float64         `json:"equity_curve,omitempty"`
}

// BacktestRun is the immutable result of one walk-forward invocation.
type BacktestRun struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Strategy  string            `json:"strategy"`
	Params    BacktestParams    `json:"params"`
	Symbols   []SymbolResult    `json:"symbols"`
	Aggregate *AggregateMetrics `json:"aggregate,omitempty"`
	Completed []string          `json:"completed"`
	Errored   []string          `json:"errored"`
	Partial   bool              `json:"partial"`
	Duration  time.Duration     `json:"duration_ns"`
}

// BacktestRunSummary is the list view of a stored run.
type BacktestRunSummary struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Strategy  string            `json:"strategy"`
	Params    BacktestParams    `json:"params"`
	Aggregate *AggregateMetrics `json:"aggregate,omitempty"`
	Partial   bool              `json:"partial"`
}
