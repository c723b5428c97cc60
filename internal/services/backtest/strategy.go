package backtest

import (
	"fmt"
	"math"

	"github.com/AtashM95/tradebot/internal/domain/models"
	"github.com/AtashM95/tradebot/internal/services/features"
)

// Strategy is fitted on a training slice and then replayed out of sample.
type Strategy interface {
	Name() string
	Fit(train []models.Bar) (Fitted, error)
}

// Fitted is a trained strategy. Positions returns the exposure (0..1) decided
// at the close of each bar in [from, to), using only bars up to that bar.
type Fitted interface {
	Params() map[string]float64
	Positions(bars []models.Bar, from, to int) []float64
}

const (
	StrategyTrendFollowing = "trend_following"
	StrategyBuyAndHold     = "buy_and_hold"
)

// TrendFollowing holds the asset while the fast EMA is above the slow EMA,
// the close is above the slow EMA and RSI clears a momentum floor. Fit picks
// the EMA pair with the best in-sample return.
type TrendFollowing struct {
	Candidates [][2]int
	RSIPeriod  int
	MinRSI     float64
}

func NewTrendFollowing() *TrendFollowing {
	return &TrendFollowing{
		Candidates: [][2]int{{12, 26}, {8, 21}, {20, 50}},
		RSIPeriod:  14,
		MinRSI:     45,
	}
}

func (s *TrendFollowing) Name() string { return StrategyTrendFollowing }

func (s *TrendFollowing) Fit(train []models.Bar) (Fitted, error) {
	var best *trendFitted
	bestRet := math.Inf(-1)
	for _, c := range s.Candidates {
		f := &trendFitted{fast: c[0], slow: c[1], rsiPeriod: s.RSIPeriod, minRSI: s.MinRSI}
		rets, _ := replay(f, train, 0, len(train))
		eq := features.EquityCurve(rets)
		if r := eq[len(eq)-1]; r > bestRet {
			bestRet = r
			best = f
		}
	}
	if best == nil {
		return nil, fmt.Errorf("trend following: no candidate parameters")
	}
	return best, nil
}

type trendFitted struct {
	fast, slow int
	rsiPeriod  int
	minRSI     float64
}

func (f *trendFitted) Params() map[string]float64 {
	return map[string]float64{
		"ema_fast": float64(f.fast),
		"ema_slow": float64(f.slow),
		"min_rsi":  f.minRSI,
	}
}

func (f *trendFitted) Positions(bars []models.Bar, from, to int) []float64 {
	closes := features.Closes(bars[:to])
	fast := features.EMA(closes, f.fast)
	slow := features.EMA(closes, f.slow)
	out := make([]float64, 0, to-from)
	for i := from; i < to; i++ {
		pos := 0.0
		if i+1 >= f.slow && fast[i] > slow[i] && closes[i] >= slow[i] &&
			features.RSI(closes[:i+1], f.rsiPeriod) >= f.minRSI {
			pos = 1
		}
		out = append(out, pos)
	}
	return out
}

// BuyAndHold is always fully invested; it is the benchmark strategy.
type BuyAndHold struct{}

func (BuyAndHold) Name() string { return StrategyBuyAndHold }

func (BuyAndHold) Fit([]models.Bar) (Fitted, error) { return holdFitted{}, nil }

type holdFitted struct{}

func (holdFitted) Params() map[string]float64 { return nil }

func (holdFitted) Positions(_ []models.Bar, from, to int) []float64 {
	out := make([]float64, to-from)
	for i := range out {
		out[i] = 1
	}
	return out
}

// replay evaluates f over the bars in (from, to): the position decided at the
// close of bar i earns the move from bar i to bar i+1, so the returned slice
// holds one return per bar in [from+1, to) together with the positions used.
func replay(f Fitted, bars []models.Bar, from, to int) (returns, positions []float64) {
	if to-from < 2 {
		return nil, nil
	}
	positions = f.Positions(bars, from, to-1)
	returns = make([]float64, len(positions))
	for k, p := range positions {
		i := from + k
		returns[k] = p * (bars[i+1].Close/bars[i].Close - 1)
	}
	return returns, positions
}
