package features

import (
	"fmt"

	"github.com/AtashM95/tradebot/internal/domain/models"
)

// Engine computes the indicator snapshot for the latest bar.
type Engine struct {
	ATRPeriod int
	RSIPeriod int
	EMAFast   int
	EMASlow   int
	VolPeriod int
}

func NewEngine() *Engine {
	return &Engine{ATRPeriod: 14, RSIPeriod: 14, EMAFast: 12, EMASlow: 26, VolPeriod: 20}
}

// Compute builds the FeatureSet for the last bar of an ascending series.
func (e *Engine) Compute(symbol string, bars []models.Bar) (models.FeatureSet, error) {
	if len(bars) == 0 {
		return models.FeatureSet{}, fmt.Errorf("no bars for %s", symbol)
	}
	closes := Closes(bars)
	fast := EMA(closes, e.EMAFast)
	slow := EMA(closes, e.EMASlow)
	last := len(bars) - 1
	fs := models.FeatureSet{
		Symbol:  symbol,
		AsOf:    bars[last].Time,
		Close:   closes[last],
		ATR:     ATR(bars, e.ATRPeriod),
		RSI:     RSI(closes, e.RSIPeriod),
		EMAFast: fast[last],
		EMASlow: slow[last],
		VolAvg:  SMA(Volumes(bars), e.VolPeriod),
	}
	fs.Trend = fs.EMAFast - fs.EMASlow
	return fs, nil
}
