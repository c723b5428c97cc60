package features

import (
	"math"

	"github.com/AtashM95/tradebot/internal/domain/models"
)

// TradingDaysPerYear is used to annualise daily statistics.
const TradingDaysPerYear = 252

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(bars)-1, or nil if insufficient data.
func ComputeLogReturns(bars []models.Bar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// SimpleReturns computes C_t / C_{t-1} - 1.
func SimpleReturns(bars []models.Bar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, bars[i].Close/prev-1)
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the last
// `window` returns. Returns 0 when there is not enough data.
func RealizedVolatility(returns []float64, window int, periodsPerYear float64) float64 {
	if window <= 1 || len(returns) < window {
		return 0
	}
	return StdDev(returns[len(returns)-window:]) * math.Sqrt(periodsPerYear)
}

// Sharpe is the annualised mean/std ratio of periodic returns (zero risk-free rate).
func Sharpe(returns []float64, periodsPerYear float64) float64 {
	sd := StdDev(returns)
	if sd == 0 {
		return 0
	}
	return Mean(returns) / sd * math.Sqrt(periodsPerYear)
}
