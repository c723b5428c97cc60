package features

import (
	"fmt"

	"github.com/AtashM95/tradebot/internal/domain/models"
)

// ValidateBars rejects series that are out of order or carry non-positive prices.
func ValidateBars(bars []models.Bar) error {
	for i, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return fmt.Errorf("bar %d: non-positive price", i)
		}
		if !IsFinite([]float64{b.Open, b.High, b.Low, b.Close, b.Volume}) {
			return fmt.Errorf("bar %d: non-finite value", i)
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("bar %d: timestamp not increasing", i)
		}
	}
	return nil
}
