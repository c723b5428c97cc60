package features

import (
	"math"

	"github.com/AtashM95/tradebot/internal/domain/models"
)

// EMA returns the exponential moving average series with alpha = 2/(span+1),
// seeded with the first value.
func EMA(xs []float64, span int) []float64 {
	if len(xs) == 0 || span <= 0 {
		return nil
	}
	alpha := 2.0 / (float64(span) + 1)
	out := make([]float64, len(xs))
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// SMA is the mean of the last `period` values, or 0 if there are fewer.
func SMA(xs []float64, period int) float64 {
	if period <= 0 || len(xs) < period {
		return 0
	}
	return Mean(xs[len(xs)-period:])
}

// RSI uses simple rolling averages of gains and losses over `period` changes.
// Returns 0 when undefined (insufficient data or no losses).
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 0
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100 - 100/(1+rs)
}

// ATR is the simple average true range over `period` bars.
func ATR(bars []models.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}
	trs := make([]float64, 0, period)
	for i := len(bars) - period; i < len(bars); i++ {
		prev := bars[i-1].Close
		b := bars[i]
		tr := math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		trs = append(trs, tr)
	}
	return Mean(trs)
}

func Closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func Volumes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
