package governance

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
	"github.com/AtashM95/tradebot/internal/services/features"
	"github.com/AtashM95/tradebot/pkg/cache"
)

// StatisticKS names the two-sample Kolmogorov-Smirnov statistic.
const StatisticKS = "ks"

// DriftDetector compares two samples with a two-sample KS test. Detect is a
// pure function of its inputs and the configured threshold.
type DriftDetector struct {
	threshold float64
	alpha     float64
	cache     cache.Service
	cacheTTL  time.Duration
}

type DriftOption func(*DriftDetector)

// WithDriftCache memoises reports keyed by a hash of the inputs.
func WithDriftCache(c cache.Service, ttl time.Duration) DriftOption {
	return func(d *DriftDetector) {
		d.cache = c
		d.cacheTTL = ttl
	}
}

// NewDriftDetector flags drift when the KS distance exceeds threshold.
// alpha is reported alongside the p-value for operators.
func NewDriftDetector(threshold, alpha float64, opts ...DriftOption) *DriftDetector {
	d := &DriftDetector{threshold: threshold, alpha: alpha}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DriftDetector) Detect(baseline, current []float64) (models.DriftReport, error) {
	if len(baseline) == 0 || len(current) == 0 {
		return models.DriftReport{}, errs.InvalidInput("baseline and current must both be non-empty")
	}
	if len(baseline) != len(current) {
		return models.DriftReport{}, errs.InvalidInput("baseline has %d values but current has %d", len(baseline), len(current))
	}
	if !features.IsFinite(baseline) || !features.IsFinite(current) {
		return models.DriftReport{}, errs.InvalidInput("samples must be finite numbers")
	}

	stat := KSStatistic(baseline, current)
	return models.DriftReport{
		Statistic:    StatisticKS,
		Score:        stat,
		PValue:       ksPValue(stat, len(baseline), len(current)),
		Alpha:        d.alpha,
		Threshold:    d.threshold,
		Drifted:      stat > d.threshold,
		MeanShift:    features.Mean(current) - features.Mean(baseline),
		BaselineSize: len(baseline),
		CurrentSize:  len(current),
	}, nil
}

// DetectCached is Detect with an optional cache in front. Cache failures are
// ignored; the report is always recomputable.
func (d *DriftDetector) DetectCached(ctx context.Context, baseline, current []float64) (models.DriftReport, error) {
	if d.cache == nil {
		return d.Detect(baseline, current)
	}
	key := cache.GenerateKey("drift", cache.HashKey(d.fingerprint(baseline, current)))

	var cached models.DriftReport
	if err := d.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	report, err := d.Detect(baseline, current)
	if err != nil {
		return report, err
	}
	_ = d.cache.Set(ctx, key, report, d.cacheTTL)
	return report, nil
}

func (d *DriftDetector) fingerprint(baseline, current []float64) string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(d.threshold, 'g', -1, 64))
	for _, xs := range [][]float64{baseline, current} {
		b.WriteByte('|')
		for _, x := range xs {
			b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
			b.WriteByte(',')
		}
	}
	return b.String()
}

// KSStatistic is the largest absolute gap between the empirical CDFs of a and b.
func KSStatistic(a, b []float64) float64 {
	x := append([]float64(nil), a...)
	y := append([]float64(nil), b...)
	sort.Float64s(x)
	sort.Float64s(y)

	n, m := float64(len(x)), float64(len(y))
	i, j := 0, 0
	d := 0.0
	for i < len(x) && j < len(y) {
		v := math.Min(x[i], y[j])
		for i < len(x) && x[i] <= v {
			i++
		}
		for j < len(y) && y[j] <= v {
			j++
		}
		if gap := math.Abs(float64(i)/n - float64(j)/m); gap > d {
			d = gap
		}
	}
	return d
}

// ksPValue is the asymptotic Kolmogorov distribution tail with the
// small-sample correction of Stephens (1970).
func ksPValue(d float64, n, m int) float64 {
	ne := math.Sqrt(float64(n) * float64(m) / float64(n+m))
	lambda := (ne + 0.12 + 0.11/ne) * d
	return kolmogorovQ(lambda)
}

func kolmogorovQ(lambda float64) float64 {
	const (
		eps1 = 1e-3
		eps2 = 1e-8
	)
	a2 := -2 * lambda * lambda
	fac := 2.0
	sum := 0.0
	prev := 0.0
	for j := 1; j <= 100; j++ {
		term := fac * math.Exp(a2*float64(j*j))
		sum += term
		if math.Abs(term) <= eps1*prev || math.Abs(term) <= eps2*sum {
			return math.Max(0, math.Min(1, sum))
		}
		fac = -fac
		prev = math.Abs(term)
	}
	// series failed to converge: lambda is tiny, distributions indistinguishable
	return 1
}
