package analytics

import (
	"github.com/AtashM95/tradebot/internal/domain/models"
)

// Intent is one rule's vote for entering a position.
type Intent struct {
	Rule       string
	Confidence float64
	Reason     string
}

// Rule inspects a feature snapshot and optionally votes to buy.
type Rule interface {
	Name() string
	Evaluate(f models.FeatureSet) (Intent, bool)
}

type ruleFunc struct {
	name string
	fn   func(f models.FeatureSet) (float64, string, bool)
}

func (r ruleFunc) Name() string { return r.name }

func (r ruleFunc) Evaluate(f models.FeatureSet) (Intent, bool) {
	conf, reason, ok := r.fn(f)
	if !ok {
		return Intent{}, false
	}
	return Intent{Rule: r.name, Confidence: conf, Reason: reason}, true
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		ruleFunc{"trend_following", func(f models.FeatureSet) (float64, string, bool) {
			return 0.72, "EMA trend up", f.Trend > 0
		}},
		ruleFunc{"breakout", func(f models.FeatureSet) (float64, string, bool) {
			return 0.70, "Price breakout above base", f.Close > f.EMASlow*1.02 && f.VolAvg > 0
		}},
		ruleFunc{"pullback_retest", func(f models.FeatureSet) (float64, string, bool) {
			gap := f.EMAFast - f.EMASlow
			return 0.68, "Pullback near trend support", gap > 0 && gap < f.ATR
		}},
		ruleFunc{"rsi_momentum", func(f models.FeatureSet) (float64, string, bool) {
			return 0.66, "RSI momentum in swing zone", f.RSI >= 55 && f.RSI <= 70
		}},
		ruleFunc{"volume_confirm", func(f models.FeatureSet) (float64, string, bool) {
			return 0.63, "Volume confirmation", f.VolAvg > 0
		}},
	}
}
