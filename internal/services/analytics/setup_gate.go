package analytics

import "github.com/AtashM95/tradebot/internal/domain/models"

// SetupGate is a cheap pre-filter applied before the pipeline runs.
type SetupGate struct {
	MinTrend float64
	MinRSI   float64
}

func NewSetupGate() SetupGate {
	return SetupGate{MinTrend: 0, MinRSI: 45}
}

// Allow reports whether the price action is worth analysing and why not.
func (g SetupGate) Allow(f models.FeatureSet) (bool, string) {
	switch {
	case f.Trend <= g.MinTrend:
		return false, "trend not positive"
	case f.RSI < g.MinRSI:
		return false, "RSI below momentum threshold"
	case f.Close < f.EMASlow:
		return false, "price below slow EMA"
	}
	return true, "price action gate passed"
}
