package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AtashM95/tradebot/internal/domain/models"
	domrepo "github.com/AtashM95/tradebot/internal/domain/repository"
	xhttp "github.com/AtashM95/tradebot/pkg/http"
	"github.com/AtashM95/tradebot/pkg/http/middleware"
	xlogger "github.com/AtashM95/tradebot/pkg/logger"
)

// Orchestrator is the control surface of the trading loop.
type Orchestrator interface {
	Start(ctx context.Context) models.OrchestratorState
	Pause(ctx context.Context) models.OrchestratorState
	Stop(ctx context.Context) models.OrchestratorState
	Reset(ctx context.Context) models.OrchestratorState
	Status() models.OrchestratorStatus
	RunCycle(ctx context.Context, symbols []string) models.CycleSummary
}

type Backtester interface {
	Run(ctx context.Context, p models.BacktestParams) (*models.BacktestRun, error)
}

type ModelRegistry interface {
	Register(ctx context.Context, m models.Model) (models.Model, error)
	List() []models.ModelSummary
	Get(id string) (models.Model, error)
	Active() (models.Model, error)
	SetActive(ctx context.Context, id string) (models.Model, error)
}

type DriftChecker interface {
	DetectCached(ctx context.Context, baseline, current []float64) (models.DriftReport, error)
}

type ShadowTester interface {
	Test(ctx context.Context, candidateID, activeID string, X [][]float64, y []float64) (models.ShadowResult, error)
}

type LiveGate interface {
	Unlock(checkbox bool, pin, phrase string) (models.LiveSession, error)
	Status() (bool, time.Time)
	Lock() bool
}

// Deps wires every collaborator the API reaches. Metrics and UnlockLimiter
// are optional.
type Deps struct {
	Orchestrator  Orchestrator
	Backtester    Backtester
	Runs          domrepo.BacktestStore
	Registry      ModelRegistry
	Drift         DriftChecker
	Shadow        ShadowTester
	Gate          LiveGate
	Watchlist     domrepo.WatchlistStore
	Logs          domrepo.LogStore
	Signals       domrepo.SignalStore
	Alerts        domrepo.FundingAlertStore
	Queue         domrepo.TradeQueue
	Metrics       domrepo.Metrics
	UnlockLimiter middleware.Allower
	StorePing     func(ctx context.Context) error
	Settings      models.RuntimeSettings
	Defaults      models.BacktestParams
}

// Handler serves the JSON API under /api.
type Handler struct {
	deps   Deps
	logger *xlogger.Logger
	now    func() time.Time
}

func NewHandler(deps Deps, logger *xlogger.Logger) *Handler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &Handler{deps: deps, logger: logger, now: time.Now}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")

	g.GET("/health", h.Health)
	g.GET("/settings", h.GetSettings)

	g.GET("/orchestrator/status", h.OrchestratorStatus)
	g.POST("/orchestrator/start", h.OrchestratorStart)
	g.POST("/orchestrator/pause", h.OrchestratorPause)
	g.POST("/orchestrator/stop", h.OrchestratorStop)
	g.POST("/orchestrator/reset", h.OrchestratorReset)
	g.POST("/analyze", h.Analyze)
	g.POST("/analyze/all", h.AnalyzeAll)

	g.POST("/backtest/run", h.RunBacktest)
	g.GET("/backtest/runs", h.ListRuns)
	g.GET("/backtest/runs/:id", h.GetRun)

	g.GET("/models/list", h.ListModels)
	g.GET("/models/active", h.ActiveModel)
	g.POST("/models/set-active", h.SetActiveModel)
	g.POST("/models/register", h.RegisterModel)
	g.POST("/models/drift-check", h.DriftCheck)
	g.POST("/models/shadow-test", h.ShadowTest)
	g.GET("/models/:id", h.GetModel)

	unlock := []echo.MiddlewareFunc{}
	if h.deps.UnlockLimiter != nil {
		unlock = append(unlock, middleware.RateLimit(h.deps.UnlockLimiter, tooManyUnlocks))
	}
	g.POST("/live/unlock", h.LiveUnlock, unlock...)
	g.POST("/live/lock", h.LiveLock)
	g.GET("/live/status", h.LiveStatus)

	g.GET("/watchlist", h.GetWatchlist)
	g.POST("/watchlist", h.SetWatchlist)
	g.GET("/logs", h.ListLogs)
	g.GET("/signals", h.ListSignals)
	g.GET("/funding-alerts", h.ListFundingAlerts)
	g.GET("/trade-queue", h.ListTradeQueue)
}

func tooManyUnlocks(c echo.Context) error {
	return xhttp.ErrorResponse(c, xhttp.TooManyRequestsError("too many attempts, try again later"))
}
