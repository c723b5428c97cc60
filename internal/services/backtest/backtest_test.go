package backtest

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
)

func makeBars(n int) []models.Bar {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		c := 100 * (1 + 0.001*float64(i) + 0.03*math.Sin(float64(i)/9))
		bars[i] = models.Bar{
			Time:   start.AddDate(0, 0, i),
			Open:   c * 0.998,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return bars
}

type fakeSource struct {
	mu     sync.Mutex
	bars   map[string][]models.Bar
	fail   map[string]error
	limits map[string]int
}

func (f *fakeSource) DailyBars(_ context.Context, symbol string, limit int) ([]models.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limits == nil {
		f.limits = map[string]int{}
	}
	f.limits[symbol] = limit
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	return f.bars[symbol], nil
}

type fakeWatchlist []string

func (w fakeWatchlist) ListSymbols(context.Context) ([]string, error) { return w, nil }
func (w fakeWatchlist) ReplaceSymbols(context.Context, []string) error { return nil }

type memRuns struct {
	mu   sync.Mutex
	runs []*models.BacktestRun
}

func (m *memRuns) SaveRun(_ context.Context, r *models.BacktestRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

func (m *memRuns) GetRun(context.Context, string) (*models.BacktestRun, error) { return nil, nil }
func (m *memRuns) ListRuns(context.Context, int) ([]models.BacktestRunSummary, error) {
	return nil, nil
}

func TestWindows_FormulaAndDeterminism(t *testing.T) {
	got, err := CollectWindows(400, 200, 50, 50)
	require.NoError(t, err)
	require.Len(t, got, 4)

	for i, w := range got {
		assert.Equal(t, i, w.Index)
		assert.Equal(t, i*50, w.TrainStart)
		assert.Equal(t, w.TrainStart+200, w.TrainEnd)
		assert.Equal(t, w.TrainEnd, w.TestStart)
		assert.Equal(t, w.TestStart+50, w.TestEnd)
		assert.LessOrEqual(t, w.TestEnd, 400)
	}
	assert.Equal(t, 350, got[3].TestEnd)

	again, err := CollectWindows(400, 200, 50, 50)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestWindows_SequenceIsRestartable(t *testing.T) {
	seq := Windows(300, 100, 50, 25)
	var first, second []models.BacktestWindow
	for w := range seq {
		first = append(first, w)
	}
	for w := range seq {
		second = append(second, w)
	}
	assert.Equal(t, first, second)
	assert.Len(t, first, 7)
}

func TestWindows_EarlyBreak(t *testing.T) {
	count := 0
	for range Windows(1000, 10, 10, 1) {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestWindows_InsufficientHistory(t *testing.T) {
	got, err := CollectWindows(100, 200, 50, 50)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWindows_NonPositiveStep(t *testing.T) {
	for _, step := range []int{0, -5} {
		_, err := CollectWindows(400, 200, 50, step)
		assert.ErrorIs(t, err, errs.ErrInvalidInput)
		assert.Empty(t, slices.Collect(Windows(400, 200, 50, step)))
	}
}

func params(symbols ...string) models.BacktestParams {
	return models.BacktestParams{Symbols: symbols, Years: 2, TrainDays: 200, TestDays: 50, StepDays: 50}
}

func TestEngine_Run_WindowsOverHistory(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.Bar{"SPY": makeBars(400)}}
	store := &memRuns{}
	e := NewEngine(src, nil, nil, WithStore(store))

	run, err := e.Run(context.Background(), params("spy"))
	require.NoError(t, err)

	require.Len(t, run.Symbols, 1)
	res := run.Symbols[0]
	assert.Equal(t, models.SymbolCompleted, res.Status)
	assert.Equal(t, 400, res.Bars)
	require.Len(t, res.Windows, 4)
	for i, w := range res.Windows {
		assert.Equal(t, i, w.Window.Index)
		assert.Equal(t, 50, w.Metrics.Bars)
		assert.True(t, w.TestFrom.After(w.TrainTo))
		assert.LessOrEqual(t, w.Metrics.MaxDrawdown, 0.0)
	}
	assert.Equal(t, 504, src.limits["SPY"])
	assert.Equal(t, []string{"SPY"}, run.Completed)
	assert.Empty(t, run.Errored)
	assert.False(t, run.Partial)
	require.NotNil(t, run.Aggregate)
	assert.Equal(t, 4, run.Aggregate.Windows)
	// Non-overlapping folds: 4 folds of 50 test bars each.
	assert.Len(t, res.EquityCurve, 201)
	assert.InDelta(t, res.EquityCurve[len(res.EquityCurve)-1]-1, res.Aggregate.TotalReturn, 1e-12)
	require.Len(t, store.runs, 1)
	assert.Equal(t, run.ID, store.runs[0].ID)
}

func TestEngine_Run_UsesReturnedHistory(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.Bar{"SPY": makeBars(400)}}
	e := NewEngine(src, nil, nil)

	run, err := e.Run(context.Background(), models.BacktestParams{
		Symbols:   []string{"SPY"},
		Years:     1,
		TrainDays: 200,
		TestDays:  50,
		StepDays:  50,
	})
	require.NoError(t, err)
	assert.Equal(t, 252, src.limits["SPY"])

	res := run.Symbols[0]
	assert.Equal(t, 400, res.Bars)
	require.Len(t, res.Windows, 4)
	for i, want := range []int{0, 50, 100, 150} {
		assert.Equal(t, want, res.Windows[i].Window.TrainStart)
		assert.Equal(t, want+200, res.Windows[i].Window.TestStart)
		assert.Equal(t, want+250, res.Windows[i].Window.TestEnd)
	}
	assert.Equal(t, 4, run.Aggregate.Windows)
}

func TestEngine_Run_InsufficientHistory(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.Bar{"SPY": makeBars(100)}}
	e := NewEngine(src, nil, nil)

	p := params("SPY")
	p.Years = 1
	run, err := e.Run(context.Background(), p)
	assert.Nil(t, run)
	assert.ErrorIs(t, err, errs.ErrInsufficientHistory)
}

func TestEngine_Run_NonPositiveStep(t *testing.T) {
	e := NewEngine(&fakeSource{}, nil, nil)
	p := params("SPY")
	p.StepDays = 0
	_, err := e.Run(context.Background(), p)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestEngine_Run_PartialFailure(t *testing.T) {
	src := &fakeSource{
		bars: map[string][]models.Bar{
			"SPY":  makeBars(400),
			"QQQ":  makeBars(400),
			"TINY": makeBars(120),
		},
		fail: map[string]error{"DOWN": errors.New("connection refused")},
	}
	e := NewEngine(src, nil, nil, WithParallelism(2))

	run, err := e.Run(context.Background(), params("SPY", "DOWN", "QQQ", "TINY"))
	require.NoError(t, err)
	assert.True(t, run.Partial)
	assert.Equal(t, []string{"SPY", "QQQ"}, run.Completed)
	assert.Equal(t, []string{"DOWN", "TINY"}, run.Errored)

	bySymbol := map[string]models.SymbolResult{}
	for _, r := range run.Symbols {
		bySymbol[r.Symbol] = r
	}
	assert.Equal(t, models.SymbolError, bySymbol["DOWN"].Status)
	assert.Contains(t, bySymbol["DOWN"].Error, "connection refused")
	assert.Equal(t, models.SymbolInsufficientHistory, bySymbol["TINY"].Status)
	assert.Equal(t, 8, run.Aggregate.Windows)
}

func TestEngine_Run_AllFetchesFail(t *testing.T) {
	src := &fakeSource{fail: map[string]error{"SPY": errors.New("timeout")}}
	e := NewEngine(src, nil, nil)
	_, err := e.Run(context.Background(), params("SPY"))
	assert.ErrorIs(t, err, errs.ErrUnavailable)
}

func TestEngine_Run_DefaultsToWatchlist(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.Bar{"AAPL": makeBars(300), "MSFT": makeBars(300)}}
	e := NewEngine(src, fakeWatchlist{"AAPL", "MSFT"}, nil)

	run, err := e.Run(context.Background(), params())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, run.Params.Symbols)
	assert.Equal(t, []string{"AAPL", "MSFT"}, run.Completed)
}

func TestEngine_Run_UnknownStrategy(t *testing.T) {
	e := NewEngine(&fakeSource{}, nil, nil)
	p := params("SPY")
	p.Strategy = "martingale"
	_, err := e.Run(context.Background(), p)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestEngine_Run_Deterministic(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.Bar{"SPY": makeBars(500)}}
	e := NewEngine(src, nil, nil)

	a, err := e.Run(context.Background(), params("SPY"))
	require.NoError(t, err)
	b, err := e.Run(context.Background(), params("SPY"))
	require.NoError(t, err)
	assert.Equal(t, a.Symbols, b.Symbols)
	assert.Equal(t, a.Aggregate, b.Aggregate)
}

func TestBuyAndHold_MatchesPriceReturn(t *testing.T) {
	bars := makeBars(300)
	src := &fakeSource{bars: map[string][]models.Bar{"SPY": bars}}
	e := NewEngine(src, nil, nil)

	p := params("SPY")
	p.Strategy = StrategyBuyAndHold
	run, err := e.Run(context.Background(), p)
	require.NoError(t, err)

	w := run.Symbols[0].Windows[0]
	want := bars[w.Window.TestEnd-1].Close/bars[w.Window.TestStart-1].Close - 1
	assert.InDelta(t, want, w.Metrics.Return, 1e-9)
	assert.InDelta(t, 1.0, w.Metrics.Exposure, 1e-12)
	assert.Equal(t, 1, w.Metrics.Trades)
}

func TestTrendFollowing_PositionsAreCausal(t *testing.T) {
	bars := makeBars(300)
	fitted, err := NewTrendFollowing().Fit(bars[:200])
	require.NoError(t, err)

	full := fitted.Positions(bars, 200, 250)
	truncated := make([]models.Bar, 251)
	copy(truncated, bars[:251])
	// Changing bars after the decision range must not change the decisions.
	truncated[250].Close *= 10
	again := fitted.Positions(truncated, 200, 250)
	assert.Equal(t, full, again)
	for _, p := range full {
		assert.Contains(t, []float64{0, 1}, p)
	}
}

func TestWindowMetrics(t *testing.T) {
	rets := []float64{0.1, -0.05, 0, 0.02}
	pos := []float64{1, 1, 0, 1}
	m := windowMetrics(rets, pos)
	assert.Equal(t, 4, m.Bars)
	assert.Equal(t, 2, m.Trades)
	assert.InDelta(t, 0.75, m.Exposure, 1e-12)
	assert.InDelta(t, 2.0/3.0, m.HitRate, 1e-12)
	assert.InDelta(t, 1.1*0.95*1.02-1, m.Return, 1e-12)
	assert.InDelta(t, -0.05, m.MaxDrawdown, 1e-12)
}

func TestStitch_FirstFoldWins(t *testing.T) {
	eq := stitch(10, []foldReturns{
		{firstBar: 2, returns: []float64{0.1, 0.1, 0.1}},
		{firstBar: 4, returns: []float64{0.5, 0.2}},
	})
	// bars 2,3,4 from the first fold, bar 5 from the second.
	want := 1.1 * 1.1 * 1.1 * 1.2
	require.Len(t, eq, 5)
	assert.InDelta(t, want, eq[4], 1e-12)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Nil(t, aggregate(nil, 0))
}
