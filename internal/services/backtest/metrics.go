package backtest

import (
	"math"

	"github.com/AtashM95/tradebot/internal/domain/models"
	"github.com/AtashM95/tradebot/internal/services/features"
)

// windowMetrics summarises the out-of-sample returns of one fold. positions
// are the exposures that produced each return.
func windowMetrics(returns, positions []float64) models.PerformanceMetrics {
	m := models.PerformanceMetrics{Bars: len(returns)}
	if len(returns) == 0 {
		return m
	}
	eq := features.EquityCurve(returns)
	m.Return = eq[len(eq)-1] - 1
	m.MaxDrawdown = features.MaxDrawdown(eq)
	m.Sharpe = features.Sharpe(returns, features.TradingDaysPerYear)
	m.Exposure = features.Mean(positions)

	exposed, wins := 0, 0
	prev := 0.0
	for i, p := range positions {
		if p > 0 && prev == 0 {
			m.Trades++
		}
		prev = p
		if p == 0 {
			continue
		}
		exposed++
		if returns[i] > 0 {
			wins++
		}
	}
	if exposed > 0 {
		m.HitRate = float64(wins) / float64(exposed)
	}
	return m
}

// aggregate computes cross-window statistics from per-window results only;
// totalReturn comes from the stitched out-of-sample curve.
func aggregate(windows []models.WindowResult, totalReturn float64) *models.AggregateMetrics {
	if len(windows) == 0 {
		return nil
	}
	n := len(windows)
	rets := make([]float64, n)
	dds := make([]float64, n)
	hits := make([]float64, n)
	sharpes := make([]float64, n)
	agg := &models.AggregateMetrics{Windows: n, TotalReturn: totalReturn}
	for i, w := range windows {
		rets[i] = w.Metrics.Return
		dds[i] = w.Metrics.MaxDrawdown
		hits[i] = w.Metrics.HitRate
		sharpes[i] = w.Metrics.Sharpe
		agg.Trades += w.Metrics.Trades
		agg.MaxDrawdown = math.Min(agg.MaxDrawdown, w.Metrics.MaxDrawdown)
	}
	agg.MeanReturn = features.Mean(rets)
	agg.ReturnStd = features.StdDev(rets)
	agg.MeanDrawdown = features.Mean(dds)
	agg.HitRate = features.Mean(hits)
	agg.Sharpe = features.Mean(sharpes)
	return agg
}

// stitch builds one out-of-sample equity curve from overlapping folds. Each
// bar's return is taken from the first fold that tested it.
func stitch(n int, folds []foldReturns) []float64 {
	seen := make([]bool, n)
	byBar := make([]float64, n)
	for _, f := range folds {
		for k, r := range f.returns {
			i := f.firstBar + k
			if i < 0 || i >= n || seen[i] {
				continue
			}
			seen[i] = true
			byBar[i] = r
		}
	}
	var ordered []float64
	for i := range byBar {
		if seen[i] {
			ordered = append(ordered, byBar[i])
		}
	}
	return features.EquityCurve(ordered)
}

type foldReturns struct {
	firstBar int
	returns  []float64
}
