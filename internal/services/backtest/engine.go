package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
	domrepo "github.com/AtashM95/tradebot/internal/domain/repository"
	"github.com/AtashM95/tradebot/internal/services/features"
	applogger "github.com/AtashM95/tradebot/pkg/logger"
)

const defaultParallelism = 4

// Engine runs walk-forward backtests. Symbols are evaluated in parallel;
// folds within a symbol run in order.
type Engine struct {
	source    domrepo.BarSource
	watchlist domrepo.WatchlistStore
	store     domrepo.BacktestStore
	metrics   domrepo.Metrics
	logger    *applogger.Logger

	parallelism     int
	strategies      map[string]Strategy
	defaultStrategy string
	now             func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore persists every finished run.
func WithStore(s domrepo.BacktestStore) Option {
	return func(e *Engine) { e.store = s }
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithParallelism bounds how many symbols are evaluated at once.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithStrategy registers an additional strategy under its Name.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategies[s.Name()] = s }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(source domrepo.BarSource, watchlist domrepo.WatchlistStore, l *applogger.Logger, opts ...Option) *Engine {
	e := &Engine{
		source:      source,
		watchlist:   watchlist,
		logger:      l,
		parallelism: defaultParallelism,
		strategies: map[string]Strategy{
			StrategyTrendFollowing: NewTrendFollowing(),
			StrategyBuyAndHold:     BuyAndHold{},
		},
		defaultStrategy: StrategyTrendFollowing,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = applogger.NewNop()
	}
	return e
}

// Strategies lists the registered strategy names.
func (e *Engine) Strategies() []string {
	out := make([]string, 0, len(e.strategies))
	for name := range e.strategies {
		out = append(out, name)
	}
	return out
}

// Run executes one walk-forward backtest. A symbol whose data cannot be
// fetched or is too short is reported in the result without aborting the
// others. Run fails only when no symbol produced a single fold.
func (e *Engine) Run(ctx context.Context, p models.BacktestParams) (*models.BacktestRun, error) {
	started := e.now()
	if err := ValidateParams(p); err != nil {
		return nil, err
	}
	if p.Strategy == "" {
		p.Strategy = e.defaultStrategy
	}
	strat, ok := e.strategies[p.Strategy]
	if !ok {
		return nil, errs.InvalidInput("unknown strategy %q", p.Strategy)
	}
	symbols, err := e.resolveSymbols(ctx, p.Symbols)
	if err != nil {
		return nil, err
	}
	p.Symbols = symbols

	// years sizes the request; whatever history the source returns is the
	// snapshot the windows are enumerated over.
	limit := p.Years * features.TradingDaysPerYear
	results := make([]models.SymbolResult, len(symbols))
	fetchErrs := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, sym := range symbols {
		g.Go(func() error {
			results[i], fetchErrs[i] = e.runSymbol(gctx, sym, strat, p, limit)
			return nil
		})
	}
	_ = g.Wait()

	run := &models.BacktestRun{
		ID:        uuid.NewString(),
		CreatedAt: started.UTC(),
		Strategy:  strat.Name(),
		Params:    p,
		Symbols:   results,
		Completed: []string{},
		Errored:   []string{},
	}
	var (
		allWindows []models.WindowResult
		totals     []float64
	)
	for _, r := range results {
		if r.Status != models.SymbolCompleted {
			run.Errored = append(run.Errored, r.Symbol)
			continue
		}
		run.Completed = append(run.Completed, r.Symbol)
		allWindows = append(allWindows, r.Windows...)
		totals = append(totals, r.Aggregate.TotalReturn)
	}
	run.Duration = e.now().Sub(started)

	if len(run.Completed) == 0 {
		e.record("failed", 0, run.Duration)
		if fe := errors.Join(fetchErrs...); fe != nil {
			return nil, errs.Unavailable(fe, "no symbol could be backtested")
		}
		return nil, errs.InsufficientHistory(
			"no symbol has enough history for one window: need %d bars (train %d + test %d)",
			p.TrainDays+p.TestDays, p.TrainDays, p.TestDays)
	}

	run.Aggregate = aggregate(allWindows, features.Mean(totals))
	run.Partial = len(run.Errored) > 0

	status := "completed"
	if run.Partial {
		status = "partial"
	}
	e.record(status, len(allWindows), run.Duration)

	if e.store != nil {
		if err := e.store.SaveRun(ctx, run); err != nil {
			e.logger.Warn("Failed to persist backtest run",
				applogger.String("run_id", run.ID),
				applogger.Error(err))
		}
	}
	e.logger.Info("Backtest finished",
		applogger.String("run_id", run.ID),
		applogger.String("strategy", run.Strategy),
		applogger.Int("completed", len(run.Completed)),
		applogger.Int("errored", len(run.Errored)),
		applogger.Int("windows", len(allWindows)),
		applogger.Duration("duration", run.Duration))
	return run, nil
}

func (e *Engine) resolveSymbols(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) == 0 {
		if e.watchlist == nil {
			return nil, errs.InvalidInput("no symbols given and no watchlist configured")
		}
		wl, err := e.watchlist.ListSymbols(ctx)
		if err != nil {
			return nil, errs.Unavailable(err, "read watchlist")
		}
		requested = wl
	}
	symbols, err := models.NormalizeSymbols(requested)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, errs.InvalidInput("no symbols to backtest")
	}
	return symbols, nil
}

// runSymbol evaluates every fold for one symbol. The returned error is set
// only for data-fetch failures.
func (e *Engine) runSymbol(ctx context.Context, symbol string, strat Strategy, p models.BacktestParams, limit int) (models.SymbolResult, error) {
	res := models.SymbolResult{Symbol: symbol, Windows: []models.WindowResult{}}

	bars, err := e.source.DailyBars(ctx, symbol, limit)
	if err != nil {
		e.logger.Warn("Backtest data fetch failed",
			applogger.String("symbol", symbol),
			applogger.Error(err))
		res.Status = models.SymbolError
		res.Error = err.Error()
		return res, fmt.Errorf("%s: %w", symbol, err)
	}
	res.Bars = len(bars)
	if err := features.ValidateBars(bars); err != nil {
		res.Status = models.SymbolError
		res.Error = err.Error()
		return res, nil
	}

	var folds []foldReturns
	for w := range Windows(len(bars), p.TrainDays, p.TestDays, p.StepDays) {
		fitted, err := strat.Fit(bars[w.TrainStart:w.TrainEnd])
		if err != nil {
			res.Status = models.SymbolError
			res.Error = fmt.Sprintf("window %d: %v", w.Index, err)
			return res, nil
		}
		// The last train bar's close decides the exposure carried into the
		// first test bar, so every realised return lies inside the test range.
		rets, pos := replay(fitted, bars, w.TestStart-1, w.TestEnd)
		res.Windows = append(res.Windows, models.WindowResult{
			Window:    w,
			TrainFrom: bars[w.TrainStart].Time,
			TrainTo:   bars[w.TrainEnd-1].Time,
			TestFrom:  bars[w.TestStart].Time,
			TestTo:    bars[w.TestEnd-1].Time,
			Params:    fitted.Params(),
			Metrics:   windowMetrics(rets, pos),
		})
		folds = append(folds, foldReturns{firstBar: w.TestStart, returns: rets})
	}
	if len(res.Windows) == 0 {
		res.Status = models.SymbolInsufficientHistory
		res.Error = fmt.Sprintf("%d bars available, need %d", len(bars), p.TrainDays+p.TestDays)
		return res, nil
	}

	res.EquityCurve = stitch(len(bars), folds)
	res.Aggregate = aggregate(res.Windows, res.EquityCurve[len(res.EquityCurve)-1]-1)
	res.Status = models.SymbolCompleted
	return res, nil
}

func (e *Engine) record(status string, windows int, d time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordBacktest(status, windows, d.Seconds())
	}
}
