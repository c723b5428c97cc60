package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtashM95/tradebot/internal/domain/models"
	"github.com/AtashM95/tradebot/pkg/config"
	"github.com/AtashM95/tradebot/pkg/resilience"
)

func bullish() models.FeatureSet {
	return models.FeatureSet{
		Symbol:  "AAPL",
		Close:   110,
		ATR:     2,
		RSI:     60,
		EMAFast: 106,
		EMASlow: 105,
		Trend:   1,
		VolAvg:  1e6,
	}
}

type constEval struct {
	pred float64
	err  error
}

func (e constEval) Predict(models.Model, []float64) (float64, error) { return e.pred, e.err }

func TestSetupGate(t *testing.T) {
	g := NewSetupGate()
	ok, _ := g.Allow(bullish())
	assert.True(t, ok)

	f := bullish()
	f.Trend = 0
	ok, reason := g.Allow(f)
	assert.False(t, ok)
	assert.Equal(t, "trend not positive", reason)

	f = bullish()
	f.RSI = 40
	ok, _ = g.Allow(f)
	assert.False(t, ok)

	f = bullish()
	f.Close = 100
	ok, reason = g.Allow(f)
	assert.False(t, ok)
	assert.Equal(t, "price below slow EMA", reason)
}

func TestRulePipeline_EmitsBracketSignal(t *testing.T) {
	p := NewRulePipeline(nil, 0, nil)
	s, err := p.Analyze(context.Background(), bullish(), nil)
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, "AAPL", s.Symbol)
	assert.Equal(t, "buy", s.Side)
	assert.Equal(t, 110.0, s.Entry)
	assert.Equal(t, 106.0, s.Stop)
	assert.Equal(t, 118.0, s.TakeProfit)
	// all five rules fire
	assert.InDelta(t, (0.72+0.70+0.68+0.66+0.63)/5, s.Score, 1e-12)
	assert.Len(t, s.Reasons, 5)
	assert.Empty(t, s.ModelID)
}

func TestRulePipeline_BelowMinScore(t *testing.T) {
	p := NewRulePipeline(nil, 0.9, nil)
	s, err := p.Analyze(context.Background(), bullish(), nil)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestRulePipeline_NoRuleFires(t *testing.T) {
	p := NewRulePipeline(nil, 0, nil)
	s, err := p.Analyze(context.Background(), models.FeatureSet{Symbol: "X", Close: 10}, nil)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestRulePipeline_ModelGate(t *testing.T) {
	m := &models.Model{ID: "m1"}

	s, err := NewRulePipeline(nil, 0, constEval{pred: 1}).Analyze(context.Background(), bullish(), m)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "m1", s.ModelID)

	s, err = NewRulePipeline(nil, 0, constEval{pred: 0}).Analyze(context.Background(), bullish(), m)
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewRulePipeline(nil, 0, constEval{err: errors.New("bad params")}).Analyze(context.Background(), bullish(), m)
	assert.Error(t, err)
}

func TestRiskManager(t *testing.T) {
	sig := models.Signal{Symbol: "AAPL", Entry: 100, Stop: 96}

	rm := NewRiskManager(RiskLimits{Cash: 100000, CashBuffer: 0.08, RiskPerTrade: 0.005, MaxPositionWeight: 0.12})
	alert, err := rm.Check(context.Background(), sig)
	require.NoError(t, err)
	assert.Nil(t, alert)

	// 120 shares needed (risk cap 500/4 = 125, weight cap 12000/100 = 120)
	// but only 5000*0.92 = 4600 is free.
	rm = NewRiskManager(RiskLimits{Equity: 100000, Cash: 5000, CashBuffer: 0.08, RiskPerTrade: 0.005, MaxPositionWeight: 0.12})
	alert, err = rm.Check(context.Background(), sig)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.InDelta(t, 12000-4600, alert.MissingCash, 1e-9)
	assert.Equal(t, []string{"swap", "trim", "partial_entry", "trade_queue"}, alert.ProposedActions)
	assert.Equal(t, 120.0, alert.Details["shares"])

	_, err = rm.Check(context.Background(), models.Signal{Symbol: "BAD", Entry: 10, Stop: 11})
	assert.ErrorIs(t, err, ErrRiskVeto)
}

func remoteConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Analytics.Mode = config.AnalyticsRemote
	cfg.Analytics.URL = url
	cfg.Analytics.Retry = resilience.RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	return cfg
}

func TestHTTPPipeline_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req analyzeReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AAPL", req.Features.Symbol)
		_, _ = w.Write([]byte(`{"signal":{"score":0.8,"entry":110,"stop":106,"take_profit":118,"reasons":["remote"]}}`))
	}))
	defer srv.Close()

	p := NewHTTPPipeline(NewHTTPServiceBase(remoteConfig(srv.URL), nil))
	s, err := p.Analyze(context.Background(), bullish(), &models.Model{ID: "m1"})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "buy", s.Side)
	assert.Equal(t, 0.8, s.Score)
	assert.Equal(t, "m1", s.ModelID)
}

func TestHTTPPipeline_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewHTTPPipeline(NewHTTPServiceBase(remoteConfig(srv.URL), nil))
	_, err := p.Analyze(context.Background(), bullish(), nil)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPPipeline_NoSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"signal":null}`))
	}))
	defer srv.Close()

	p := NewHTTPPipeline(NewHTTPServiceBase(remoteConfig(srv.URL), nil))
	s, err := p.Analyze(context.Background(), bullish(), nil)
	require.NoError(t, err)
	assert.Nil(t, s)
}
