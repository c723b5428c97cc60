package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AtashM95/tradebot/internal/services/backtest"
	"github.com/AtashM95/tradebot/internal/services/governance"
	"github.com/AtashM95/tradebot/internal/usecase"
	"github.com/AtashM95/tradebot/pkg/config"
	xhttp "github.com/AtashM95/tradebot/pkg/http"
	pkgkafka "github.com/AtashM95/tradebot/pkg/kafka"
	applogger "github.com/AtashM95/tradebot/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg          *config.Config
	logger       *applogger.Logger
	httpServer   *xhttp.Server
	orchestrator *usecase.Orchestrator
	engine       *backtest.Engine
	registry     *governance.Registry
	producer     *pkgkafka.Producer
}

// New creates a new App instance with all dependencies. producer may be nil.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	orchestrator *usecase.Orchestrator,
	engine *backtest.Engine,
	registry *governance.Registry,
	producer *pkgkafka.Producer,
) *App {
	return &App{
		cfg:          cfg,
		logger:       l,
		httpServer:   httpServer,
		orchestrator: orchestrator,
		engine:       engine,
		registry:     registry,
		producer:     producer,
	}
}

func (a *App) Logger() *applogger.Logger { return a.logger }

// Backtester exposes the engine for one-shot CLI runs.
func (a *App) Backtester() *backtest.Engine { return a.engine }

func (a *App) Registry() *governance.Registry { return a.registry }

// Run starts the HTTP server, and the orchestrator when auto_start is set,
// then blocks until ctx is cancelled or an interrupt arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.Logging.Collect && a.producer != nil {
		a.logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.cfg.Logging.Topic,
			Publisher:      a.producer,
		})
		a.logger.Info("log collection enabled", applogger.String("topic", a.cfg.Logging.Topic))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("data_source", a.cfg.Data.Source),
		applogger.String("analytics", a.cfg.Analytics.Mode),
	)

	if a.cfg.Orchestrator.AutoStart {
		state := a.orchestrator.Start(ctx)
		a.logger.Info("orchestrator auto-started", applogger.String("state", string(state)))
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services. Closing infrastructure clients is
// left to the DI cleanup function.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop also drops any live session.
	a.orchestrator.Stop(ctx)

	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}

	a.logger.RemoveCollector()
	a.logger.Info("shutdown complete")
	return firstErr
}
