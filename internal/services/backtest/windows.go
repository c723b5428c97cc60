package backtest

import (
	"iter"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
)

// ValidateParams rejects parameters that cannot describe a terminating,
// non-empty walk-forward schedule.
func ValidateParams(p models.BacktestParams) error {
	switch {
	case p.Years < 1:
		return errs.InvalidInput("years must be >= 1, got %d", p.Years)
	case p.TrainDays <= 0:
		return errs.InvalidInput("train_days must be > 0, got %d", p.TrainDays)
	case p.TestDays <= 0:
		return errs.InvalidInput("test_days must be > 0, got %d", p.TestDays)
	case p.StepDays <= 0:
		return errs.InvalidInput("step_days must be > 0, got %d", p.StepDays)
	}
	return nil
}

// Windows lazily enumerates walk-forward folds over a history of n bars.
// Each fold trains on [start, start+train) and tests on the following test
// bars; start advances by step until the test range would run past n.
// The sequence is a pure function of its arguments, so ranging over it again
// yields the same folds. A non-positive size or step yields nothing.
func Windows(n, train, test, step int) iter.Seq[models.BacktestWindow] {
	return func(yield func(models.BacktestWindow) bool) {
		if train <= 0 || test <= 0 || step <= 0 {
			return
		}
		for idx, start := 0, 0; start+train+test <= n; idx, start = idx+1, start+step {
			w := models.BacktestWindow{
				Index:      idx,
				TrainStart: start,
				TrainEnd:   start + train,
				TestStart:  start + train,
				TestEnd:    start + train + test,
			}
			if !yield(w) {
				return
			}
		}
	}
}

// CollectWindows materialises Windows after validating its arguments.
func CollectWindows(n, train, test, step int) ([]models.BacktestWindow, error) {
	if train <= 0 || test <= 0 || step <= 0 {
		return nil, errs.InvalidInput("window sizes and step must be positive (train=%d test=%d step=%d)", train, test, step)
	}
	var out []models.BacktestWindow
	for w := range Windows(n, train, test, step) {
		out = append(out, w)
	}
	return out, nil
}
