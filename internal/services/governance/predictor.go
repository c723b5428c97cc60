package governance

import (
	"fmt"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
	domsvc "github.com/AtashM95/tradebot/internal/domain/service"
)

const (
	AlgorithmThreshold = "threshold"
	AlgorithmLinear    = "linear"
)

// Predictor evaluates registry models over feature vectors.
//
// threshold: 1 when x[feature] > threshold (feature defaults to 0).
// linear:    1 when bias + sum(w_i * x_i) > 0, weights named w0, w1, ...
type Predictor struct{}

var _ domsvc.ModelEvaluator = Predictor{}

func (Predictor) Predict(m models.Model, x []float64) (float64, error) {
	switch m.Algorithm {
	case AlgorithmThreshold, "":
		idx := int(m.Parameters["feature"])
		if idx < 0 || idx >= len(x) {
			return 0, errs.InvalidInput("model %s reads feature %d of a %d-wide vector", m.ID, idx, len(x))
		}
		if x[idx] > m.Parameters["threshold"] {
			return 1, nil
		}
		return 0, nil
	case AlgorithmLinear:
		score := m.Parameters["bias"]
		for i, v := range x {
			score += m.Parameters[fmt.Sprintf("w%d", i)] * v
		}
		if score > 0 {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, errs.InvalidInput("model %s has unknown algorithm %q", m.ID, m.Algorithm)
	}
}

// ValidateParameters checks a model carries what its algorithm needs.
func ValidateParameters(m models.Model) error {
	switch m.Algorithm {
	case AlgorithmThreshold:
		if _, ok := m.Parameters["threshold"]; !ok {
			return errs.InvalidInput("threshold model %q needs a threshold parameter", m.ID)
		}
		if m.Parameters["feature"] < 0 {
			return errs.InvalidInput("threshold model %q has a negative feature index", m.ID)
		}
	case AlgorithmLinear:
		if len(m.Parameters) == 0 {
			return errs.InvalidInput("linear model %q needs weights", m.ID)
		}
	default:
		return errs.InvalidInput("unknown algorithm %q", m.Algorithm)
	}
	return nil
}
