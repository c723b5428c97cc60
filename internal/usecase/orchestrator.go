package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
	domrepo "github.com/AtashM95/tradebot/internal/domain/repository"
	domsvc "github.com/AtashM95/tradebot/internal/domain/service"
	applogger "github.com/AtashM95/tradebot/pkg/logger"
)

// ActiveModelSource yields a consistent snapshot of the active model.
type ActiveModelSource interface {
	Active() (models.Model, error)
}

// LiveGate reports whether live order flow is authorised.
type LiveGate interface {
	Valid(t time.Time) bool
	Lock() bool
}

type FeatureComputer interface {
	Compute(symbol string, bars []models.Bar) (models.FeatureSet, error)
}

// SetupFilter is a cheap pre-check run before the analysis pipeline.
type SetupFilter interface {
	Allow(f models.FeatureSet) (bool, string)
}

// OrchestratorDeps are the collaborators of the control loop. Setup, Funding
// and Metrics are optional.
type OrchestratorDeps struct {
	Bars      domrepo.BarSource
	Watchlist domrepo.WatchlistStore
	Models    ActiveModelSource
	Gate      LiveGate
	Features  FeatureComputer
	Setup     SetupFilter
	Pipeline  domsvc.AnalysisPipeline
	Funding   domsvc.FundingCheck
	Signals   domrepo.SignalStore
	Alerts    domrepo.FundingAlertStore
	Queue     domrepo.TradeQueue
	Logs      domrepo.LogStore
	LiveSink  domrepo.SignalSink
	SimSink   domrepo.SignalSink
	Metrics   domrepo.Metrics
	Logger    *applogger.Logger
}

type OrchestratorConfig struct {
	Interval        time.Duration
	BarsPerAnalysis int
	TradeQueueTTL   time.Duration
}

// Orchestrator owns the trading state machine and its control loop.
//
// Transitions are serialised by transMu. Every loop iteration runs while
// holding cycleMu, and pause/stop take cycleMu before publishing the new
// state, so they return only after any in-flight iteration has finished.
type Orchestrator struct {
	deps OrchestratorDeps
	cfg  OrchestratorConfig
	now  func() time.Time

	transMu sync.Mutex
	cycleMu sync.Mutex

	mu      sync.RWMutex
	state   models.OrchestratorState
	cycles  int64
	lastRun *models.CycleSummary
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BarsPerAnalysis <= 0 {
		cfg.BarsPerAnalysis = 160
	}
	if cfg.TradeQueueTTL <= 0 {
		cfg.TradeQueueTTL = 48 * time.Hour
	}
	if deps.Logger == nil {
		deps.Logger = applogger.NewNop()
	}
	return &Orchestrator{deps: deps, cfg: cfg, now: time.Now, state: models.StateIdle}
}

func (o *Orchestrator) State() models.OrchestratorState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Start moves Idle or Paused to Running and launches the control loop.
func (o *Orchestrator) Start(ctx context.Context) models.OrchestratorState {
	o.transMu.Lock()
	defer o.transMu.Unlock()

	from := o.State()
	if from != models.StateIdle && from != models.StatePaused {
		return from
	}
	o.setState(models.StateRunning)
	o.launchLoop()
	o.transitioned(ctx, from, models.StateRunning, "info", "Orchestrator started.")
	return models.StateRunning
}

// Pause moves Running to Paused. It returns once the loop has exited and
// no iteration is in flight.
func (o *Orchestrator) Pause(ctx context.Context) models.OrchestratorState {
	o.transMu.Lock()
	defer o.transMu.Unlock()

	from := o.State()
	if from != models.StateRunning {
		return from
	}
	o.haltLoop()
	o.cycleMu.Lock()
	o.setState(models.StatePaused)
	o.cycleMu.Unlock()
	o.transitioned(ctx, from, models.StatePaused, "warning", "Orchestrator paused.")
	return models.StatePaused
}

// Stop halts the loop from any non-Stopped state and releases the live
// session.
func (o *Orchestrator) Stop(ctx context.Context) models.OrchestratorState {
	o.transMu.Lock()
	defer o.transMu.Unlock()

	from := o.State()
	if from == models.StateStopped {
		return from
	}
	o.haltLoop()
	o.cycleMu.Lock()
	o.setState(models.StateStopped)
	o.cycleMu.Unlock()
	if o.deps.Gate != nil && o.deps.Gate.Lock() {
		o.logLine(ctx, "warning", "Live session released on stop.")
	}
	o.transitioned(ctx, from, models.StateStopped, "warning", "Orchestrator stopped.")
	return models.StateStopped
}

// Reset re-arms a Stopped orchestrator to Idle.
func (o *Orchestrator) Reset(ctx context.Context) models.OrchestratorState {
	o.transMu.Lock()
	defer o.transMu.Unlock()

	from := o.State()
	if from != models.StateStopped {
		return from
	}
	o.setState(models.StateIdle)
	o.transitioned(ctx, from, models.StateIdle, "info", "Orchestrator reset.")
	return models.StateIdle
}

// Status is the pollable snapshot of the orchestrator.
func (o *Orchestrator) Status() models.OrchestratorStatus {
	o.mu.RLock()
	st := models.OrchestratorStatus{Status: o.state, Cycles: o.cycles}
	if o.lastRun != nil {
		last := *o.lastRun
		st.LastRun = &last
	}
	o.mu.RUnlock()

	st.Live = o.liveNow()
	if o.deps.Models != nil {
		if m, err := o.deps.Models.Active(); err == nil {
			st.ActiveModelID = m.ID
		}
	}
	return st
}

// RunCycle runs one iteration on demand over symbols, or over the watchlist
// when symbols is nil. It is serialised with the loop and does nothing
// unless the orchestrator is Running.
func (o *Orchestrator) RunCycle(ctx context.Context, symbols []string) models.CycleSummary {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	if st := o.State(); st != models.StateRunning {
		return models.CycleSummary{
			Status:    string(st),
			Message:   "Orchestrator not running.",
			StartedAt: o.now().UTC(),
		}
	}
	return o.cycle(ctx, symbols)
}

func (o *Orchestrator) setState(s models.OrchestratorState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) transitioned(ctx context.Context, from, to models.OrchestratorState, level, msg string) {
	o.deps.Logger.Info("Orchestrator transition",
		applogger.String("from", string(from)),
		applogger.String("to", string(to)))
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordTransition(string(from), string(to))
	}
	o.logLine(ctx, level, msg)
}

func (o *Orchestrator) launchLoop() {
	stop := make(chan struct{})
	done := make(chan struct{})
	o.mu.Lock()
	o.stopCh, o.doneCh = stop, done
	o.mu.Unlock()
	go o.loop(stop, done)
}

// haltLoop signals the loop and waits for it to exit. Must hold transMu.
func (o *Orchestrator) haltLoop() {
	o.mu.Lock()
	stop, done := o.stopCh, o.doneCh
	o.stopCh, o.doneCh = nil, nil
	o.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (o *Orchestrator) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		// A tick and a stop can be ready together; stop wins.
		select {
		case <-stop:
			return
		default:
		}
		o.scheduledCycle()
	}
}

func (o *Orchestrator) scheduledCycle() {
	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			o.deps.Logger.Error("Orchestrator cycle panicked", applogger.Any("panic", r))
			o.logLine(ctx, "error", fmt.Sprintf("Cycle aborted: %v", r))
		}
	}()
	o.RunCycle(ctx, nil)
}

// cycle runs one iteration. Must hold cycleMu.
func (o *Orchestrator) cycle(ctx context.Context, symbols []string) models.CycleSummary {
	started := o.now()
	sum := models.CycleSummary{
		Status:    "completed",
		StartedAt: started.UTC(),
		Skipped:   map[string]string{},
		Errors:    map[string]string{},
	}
	o.logLine(ctx, "info", "Starting analysis cycle.")

	if symbols == nil {
		wl, err := o.deps.Watchlist.ListSymbols(ctx)
		if err != nil {
			sum.Status = "error"
			sum.Message = "watchlist unavailable"
			o.fail(ctx, "watchlist", errs.Unavailable(err, "read watchlist"), &sum)
			return o.finish(sum, started)
		}
		symbols = wl
	}

	// One snapshot of the active model for the whole iteration. Decisions
	// are only ever made with an active model, so without one nothing is
	// analysed and nothing can reach the live sink.
	model, err := o.activeModel()
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			sum.Status = "skipped"
			sum.Message = "no active model"
			o.logLine(ctx, "warning", "No active model; analysis cycle skipped.")
		} else {
			sum.Status = "error"
			sum.Message = "active model unavailable"
			o.fail(ctx, "model", errs.Unavailable(err, "read active model"), &sum)
		}
		return o.finish(sum, started)
	}
	sum.ModelID = model.ID
	sum.Live = o.liveNow()
	o.deps.Logger.Debug("Analysis cycle",
		applogger.Strings("symbols", symbols),
		applogger.String("model_id", model.ID),
		applogger.Bool("live", sum.Live))

	for _, sym := range symbols {
		sum.Processed++
		if err := o.processSymbol(ctx, sym, model, &sum); err != nil {
			o.fail(ctx, sym, err, &sum)
		}
	}
	if len(sum.Errors) > 0 && len(sum.Errors) == sum.Processed {
		sum.Status = "error"
	}
	return o.finish(sum, started)
}

func (o *Orchestrator) activeModel() (*models.Model, error) {
	if o.deps.Models == nil {
		return nil, errs.NotFound("no model source configured")
	}
	m, err := o.deps.Models.Active()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (o *Orchestrator) processSymbol(ctx context.Context, sym string, model *models.Model, sum *models.CycleSummary) error {
	bars, err := o.deps.Bars.DailyBars(ctx, sym, o.cfg.BarsPerAnalysis)
	if err != nil {
		return fmt.Errorf("fetch bars: %w", err)
	}
	fs, err := o.deps.Features.Compute(sym, bars)
	if err != nil {
		return fmt.Errorf("compute features: %w", err)
	}
	if o.deps.Setup != nil {
		if ok, reason := o.deps.Setup.Allow(fs); !ok {
			sum.Skipped[sym] = reason
			o.logLine(ctx, "info", fmt.Sprintf("Setup gate blocked %s: %s", sym, reason))
			return nil
		}
	}
	sig, err := o.deps.Pipeline.Analyze(ctx, fs, model)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	if sig == nil {
		sum.Skipped[sym] = "no signal"
		o.logLine(ctx, "info", fmt.Sprintf("No final signal for %s.", sym))
		return nil
	}

	// The session is re-checked right before routing so an expiry during
	// the iteration downgrades to simulation.
	live := o.liveNow()
	sig.Mode = models.ModeSimulation
	if live {
		sig.Mode = models.ModeLive
	}
	if err := o.deps.Signals.AddSignal(ctx, *sig); err != nil {
		return errs.Unavailable(err, "store signal")
	}
	sum.Signals++

	if o.deps.Funding != nil {
		alert, err := o.deps.Funding.Check(ctx, *sig)
		if err != nil {
			sum.Skipped[sym] = err.Error()
			o.logLine(ctx, "warning", fmt.Sprintf("Risk veto for %s: %v", sym, err))
			return nil
		}
		if alert != nil {
			if err := o.deps.Alerts.AddFundingAlert(ctx, *alert); err != nil {
				return errs.Unavailable(err, "store funding alert")
			}
			if err := o.deps.Queue.EnqueueTrade(ctx, *sig, o.cfg.TradeQueueTTL); err != nil {
				return errs.Unavailable(err, "queue trade")
			}
			sum.Queued++
			o.logLine(ctx, "warning", fmt.Sprintf("Funding alert for %s; queued trade.", sym))
			return nil
		}
	}

	sink := o.deps.SimSink
	if live {
		sink = o.deps.LiveSink
	}
	if err := sink.Submit(ctx, *sig); err != nil {
		return fmt.Errorf("submit %s signal: %w", sig.Mode, err)
	}
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordSignal(string(sig.Mode), sym)
	}
	o.logLine(ctx, "info", fmt.Sprintf("%s signal for %s routed (score %.2f).", capitalize(string(sig.Mode)), sym, sig.Score))
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, key string, err error, sum *models.CycleSummary) {
	sum.Errors[key] = err.Error()
	o.deps.Logger.Warn("Orchestrator step failed",
		applogger.String("symbol", key),
		applogger.Error(err))
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordError(errs.KindOf(err).String())
	}
	o.logLine(ctx, "error", fmt.Sprintf("%s: %v", key, err))
}

func (o *Orchestrator) finish(sum models.CycleSummary, started time.Time) models.CycleSummary {
	sum.Duration = o.now().Sub(started)
	if len(sum.Skipped) == 0 {
		sum.Skipped = nil
	}
	if len(sum.Errors) == 0 {
		sum.Errors = nil
	}
	o.mu.Lock()
	o.cycles++
	last := sum
	o.lastRun = &last
	o.mu.Unlock()
	if o.deps.Metrics != nil {
		o.deps.Metrics.RecordCycle(sum.Live, sum.Processed, sum.Signals, sum.Duration.Seconds())
	}
	return sum
}

func (o *Orchestrator) liveNow() bool {
	return o.deps.Gate != nil && o.deps.Gate.Valid(o.now())
}

// logLine writes an operator-facing line to the log store.
func (o *Orchestrator) logLine(ctx context.Context, level, msg string) {
	if o.deps.Logs == nil {
		return
	}
	if err := o.deps.Logs.AddLog(ctx, level, msg); err != nil {
		o.deps.Logger.Warn("Failed to write log entry", applogger.Error(err))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
