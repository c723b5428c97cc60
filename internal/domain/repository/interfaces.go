package repository

import (
	"context"
	"time"

	"github.com/AtashM95/tradebot/internal/domain/models"
)

// BarSource returns the most recent `limit` daily bars for a symbol in
// ascending time order.
type BarSource interface {
	DailyBars(ctx context.Context, symbol string, limit int) ([]models.Bar, error)
}

// WatchlistStore keeps the ordered set of symbols the orchestrator analyses.
type WatchlistStore interface {
	ListSymbols(ctx context.Context) ([]string, error)
	ReplaceSymbols(ctx context.Context, symbols []string) error
}

// ModelStore persists registry models and the active pointer.
type ModelStore interface {
	SaveModel(ctx context.Context, m models.Model) error
	ListModels(ctx context.Context) ([]models.Model, error)
	SetActiveModel(ctx context.Context, id string) error
	ActiveModelID(ctx context.Context) (string, error)
}

type BacktestStore interface {
	SaveRun(ctx context.Context, run *models.BacktestRun) error
	GetRun(ctx context.Context, id string) (*models.BacktestRun, error)
	ListRuns(ctx context.Context, limit int) ([]models.BacktestRunSummary, error)
}

type LogStore interface {
	AddLog(ctx context.Context, level, message string) error
	ListLogs(ctx context.Context, limit int) ([]models.LogEntry, error)
}

type SignalStore interface {
	AddSignal(ctx context.Context, s models.Signal) error
	ListSignals(ctx context.Context, limit int) ([]models.Signal, error)
}

type FundingAlertStore interface {
	AddFundingAlert(ctx context.Context, a models.FundingAlert) error
	ListFundingAlerts(ctx context.Context, limit int) ([]models.FundingAlert, error)
}

// TradeQueue parks signals that could not be funded.
type TradeQueue interface {
	EnqueueTrade(ctx context.Context, s models.Signal, ttl time.Duration) error
	ListActiveTrades(ctx context.Context, now time.Time) ([]models.QueuedTrade, error)
}

// SignalSink receives signals after the live/simulation routing decision.
type SignalSink interface {
	Submit(ctx context.Context, s models.Signal) error
}

type Metrics interface {
	RecordCycle(live bool, processed, signals int, seconds float64)
	RecordSignal(mode, symbol string)
	RecordBacktest(status string, windows int, seconds float64)
	RecordDriftCheck(drifted bool)
	RecordShadowTest(recommendation string)
	RecordUnlock(outcome string)
	RecordTransition(from, to string)
	RecordError(kind string)
}
