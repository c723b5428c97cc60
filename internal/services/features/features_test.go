package features

import (
	"math"
	"testing"
	"time"

	"github.com/AtashM95/tradebot/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func barsFromCloses(closes ...float64) []models.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Bar, len(closes))
	for i, c := range closes {
		out[i] = models.Bar{
			Time:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

func TestComputeLogReturns(t *testing.T) {
	assert.Nil(t, ComputeLogReturns(barsFromCloses(100)))

	rets := ComputeLogReturns(barsFromCloses(100, 110, 99))
	require.Len(t, rets, 2)
	assert.InDelta(t, math.Log(1.1), rets[0], 1e-12)
	assert.InDelta(t, math.Log(0.9), rets[1], 1e-12)
}

func TestSimpleReturnsAndEquity(t *testing.T) {
	rets := SimpleReturns(barsFromCloses(100, 110, 99))
	require.Len(t, rets, 2)
	assert.InDelta(t, 0.1, rets[0], 1e-12)
	assert.InDelta(t, -0.1, rets[1], 1e-12)

	eq := EquityCurve(rets)
	assert.Equal(t, []float64{1, 1.1, 0.99}, roundAll(eq))
	assert.InDelta(t, -0.1, MaxDrawdown(eq), 1e-12)
}

func TestMaxDrawdownMonotonic(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown([]float64{1, 1.1, 1.2}))
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestMeanVariance(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.Equal(t, 5.0, Mean(xs))
	assert.InDelta(t, 32.0/7.0, Variance(xs), 1e-12)
	assert.Equal(t, 0.0, Variance([]float64{1}))
	assert.Equal(t, 0.0, Mean(nil))
}

func TestEMASeededWithFirstValue(t *testing.T) {
	ema := EMA([]float64{10, 10, 10}, 5)
	assert.Equal(t, []float64{10, 10, 10}, ema)

	ema = EMA([]float64{0, 3}, 2)
	assert.InDelta(t, 2.0, ema[1], 1e-12)
}

func TestRSI(t *testing.T) {
	closes := []float64{1, 2, 3, 2, 3}
	// gains 1+1+1 = 3, losses 1 over 4 changes
	assert.InDelta(t, 75.0, RSI(closes, 4), 1e-9)
	assert.Equal(t, 0.0, RSI(closes, 10))
}

func TestATR(t *testing.T) {
	bars := barsFromCloses(10, 10, 10)
	assert.InDelta(t, 2.0, ATR(bars, 2), 1e-12)
	assert.Equal(t, 0.0, ATR(bars, 5))
}

func TestEngineCompute(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	fs, err := NewEngine().Compute("SPY", barsFromCloses(closes...))
	require.NoError(t, err)
	assert.Equal(t, "SPY", fs.Symbol)
	assert.Equal(t, 159.0, fs.Close)
	assert.Greater(t, fs.Trend, 0.0)
	assert.InDelta(t, fs.EMAFast-fs.EMASlow, fs.Trend, 1e-12)
	assert.Equal(t, 0.0, fs.RSI, "no losses leaves RSI undefined")
	assert.Equal(t, 1000.0, fs.VolAvg)

	_, err = NewEngine().Compute("SPY", nil)
	assert.Error(t, err)
}

func TestValidateBars(t *testing.T) {
	assert.NoError(t, ValidateBars(barsFromCloses(1, 2, 3)))

	bad := barsFromCloses(1, 2, 3)
	bad[1].Close = 0
	assert.Error(t, ValidateBars(bad))

	unordered := barsFromCloses(1, 2, 3)
	unordered[2].Time = unordered[0].Time
	assert.Error(t, ValidateBars(unordered))
}

func TestSharpeZeroVol(t *testing.T) {
	assert.Equal(t, 0.0, Sharpe([]float64{0.01, 0.01}, TradingDaysPerYear))
	assert.Greater(t, Sharpe([]float64{0.01, 0.02, 0.015}, TradingDaysPerYear), 0.0)
}

func roundAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Round(x*1e9) / 1e9
	}
	return out
}
