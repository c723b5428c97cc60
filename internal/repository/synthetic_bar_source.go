package repository

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"github.com/AtashM95/tradebot/internal/domain/models"
)

// SyntheticBarSource generates a reproducible random walk per symbol. The
// same symbol and end date always yield the same series, so backtests run
// without a market data feed.
type SyntheticBarSource struct {
	end func() time.Time
}

func NewSyntheticBarSource() *SyntheticBarSource {
	return &SyntheticBarSource{end: time.Now}
}

// DailyBars returns `limit` weekday bars ending on the current UTC day.
func (s *SyntheticBarSource) DailyBars(_ context.Context, symbol string, limit int) ([]models.Bar, error) {
	if limit <= 0 {
		return nil, nil
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	days := tradingDays(s.end().UTC().Truncate(24*time.Hour), limit)
	drift := 0.0002 + float64(seed%7)*0.0001
	vol := 0.008 + float64(seed%5)*0.002
	price := 20 + float64(seed%480)

	out := make([]models.Bar, limit)
	for i, day := range days {
		ret := drift + vol*rng.NormFloat64()
		open := price
		price = math.Max(1, price*math.Exp(ret))
		spread := math.Abs(rng.NormFloat64()) * vol * price
		out[i] = models.Bar{
			Time:   day,
			Open:   open,
			High:   math.Max(open, price) + spread,
			Low:    math.Max(0.5, math.Min(open, price)-spread),
			Close:  price,
			Volume: math.Round(1e6 * (1 + rng.Float64())),
		}
	}
	return out, nil
}

// tradingDays lists n weekdays ending at end, ascending.
func tradingDays(end time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	d := end
	for i := n - 1; i >= 0; {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out[i] = d
			i--
		}
		d = d.AddDate(0, 0, -1)
	}
	return out
}
