package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtashM95/tradebot/internal/domain/models"
	"github.com/AtashM95/tradebot/internal/repository"
	"github.com/AtashM95/tradebot/internal/service/ratelimit"
	"github.com/AtashM95/tradebot/internal/services/backtest"
	"github.com/AtashM95/tradebot/internal/services/governance"
	"github.com/AtashM95/tradebot/internal/services/livegate"
	xhttp "github.com/AtashM95/tradebot/pkg/http"
	pkgsqlite "github.com/AtashM95/tradebot/pkg/sqlite"
)

const (
	testPIN    = "4821"
	testPhrase = "I_UNDERSTAND_LIVE_TRADING_RISK"
)

// fakeOrchestrator applies the transition table without a loop.
type fakeOrchestrator struct {
	mu     sync.Mutex
	state  models.OrchestratorState
	cycled [][]string
}

func (f *fakeOrchestrator) move(from []models.OrchestratorState, to models.OrchestratorState) models.OrchestratorState {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range from {
		if f.state == s {
			f.state = to
			break
		}
	}
	return f.state
}

func (f *fakeOrchestrator) Start(context.Context) models.OrchestratorState {
	return f.move([]models.OrchestratorState{models.StateIdle, models.StatePaused}, models.StateRunning)
}

func (f *fakeOrchestrator) Pause(context.Context) models.OrchestratorState {
	return f.move([]models.OrchestratorState{models.StateRunning}, models.StatePaused)
}

func (f *fakeOrchestrator) Stop(context.Context) models.OrchestratorState {
	return f.move([]models.OrchestratorState{models.StateIdle, models.StateRunning, models.StatePaused}, models.StateStopped)
}

func (f *fakeOrchestrator) Reset(context.Context) models.OrchestratorState {
	return f.move([]models.OrchestratorState{models.StateStopped}, models.StateIdle)
}

func (f *fakeOrchestrator) Status() models.OrchestratorStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.OrchestratorStatus{Status: f.state}
}

func (f *fakeOrchestrator) RunCycle(_ context.Context, symbols []string) models.CycleSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycled = append(f.cycled, symbols)
	return models.CycleSummary{Status: string(f.state), Processed: len(symbols)}
}

type fixture struct {
	e     *echo.Echo
	store *repository.SQLiteStore
	orch  *fakeOrchestrator
	reg   *governance.Registry
	gate  *livegate.Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	client, err := pkgsqlite.NewClient(pkgsqlite.WithPath(filepath.Join(t.TempDir(), "api.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	store, err := repository.NewSQLiteStore(ctx, client)
	require.NoError(t, err)
	require.NoError(t, store.SeedWatchlist(ctx, []string{"SPY", "QQQ"}))

	reg := governance.NewRegistry(store, nil)
	gate := livegate.New(livegate.Config{PIN: testPIN, Phrase: testPhrase, SessionTTL: 15 * time.Minute}, nil, nil)
	orch := &fakeOrchestrator{state: models.StateIdle}
	engine := backtest.NewEngine(repository.NewSyntheticBarSource(), store, nil, backtest.WithStore(store))

	h := NewHandler(Deps{
		Orchestrator:  orch,
		Backtester:    engine,
		Runs:          store,
		Registry:      reg,
		Drift:         governance.NewDriftDetector(0.15, 0.05),
		Shadow:        governance.NewShadowEvaluator(reg, governance.Predictor{}, "accuracy", 0.1),
		Gate:          gate,
		Watchlist:     store,
		Logs:          store,
		Signals:       store,
		Alerts:        store,
		Queue:         store,
		UnlockLimiter: ratelimit.New(5, 5),
		StorePing:     client.Health,
		Defaults:      models.BacktestParams{Years: 5, TrainDays: 504, TestDays: 126, StepDays: 63},
	}, nil)

	srv := xhttp.NewServer(h, nil, xhttp.WithMetrics("", nil, nil))
	return &fixture{e: srv.Echo(), store: store, orch: orch, reg: reg, gate: gate}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestOrchestratorEndpoints_Scenario(t *testing.T) {
	f := newFixture(t)

	steps := []struct {
		action string
		want   string
	}{
		{"start", "running"},
		{"pause", "paused"},
		{"stop", "stopped"},
		{"start", "stopped"},
		{"reset", "idle"},
	}
	for _, s := range steps {
		rec, body := f.do(t, http.MethodPost, "/api/orchestrator/"+s.action, "")
		require.Equal(t, http.StatusOK, rec.Code, s.action)
		assert.Equal(t, s.want, body["status"], s.action)
	}

	rec, body := f.do(t, http.MethodGet, "/api/orchestrator/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", body["status"])
}

func TestAnalyzeEndpoints(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPost, "/api/analyze", `{"symbol":"nvda"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["processed"])
	assert.Equal(t, []string{"NVDA"}, f.orch.cycled[0])

	rec, _ = f.do(t, http.MethodPost, "/api/analyze", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/analyze", `{"symbol":"$$$"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/analyze/all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, f.orch.cycled[1])
}

func TestBacktestEndpoints(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPost, "/api/backtest/run",
		`{"symbols":["SPY"],"years":2,"train_days":200,"test_days":50,"step_days":50}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	agg := body["aggregate"].(map[string]interface{})
	assert.EqualValues(t, 6, agg["windows"])
	assert.Equal(t, []interface{}{"SPY"}, body["completed"])
	runID := body["id"].(string)

	rec, body = f.do(t, http.MethodPost, "/api/backtest/run",
		`{"symbols":["SPY"],"years":1,"train_days":200,"test_days":50,"step_days":50}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["aggregate"].(map[string]interface{})["windows"])

	rec, body = f.do(t, http.MethodPost, "/api/backtest/run",
		`{"symbols":["SPY"],"years":1,"train_days":200,"test_days":50,"step_days":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["detail"], "step")

	rec, body = f.do(t, http.MethodPost, "/api/backtest/run",
		`{"symbols":["SPY"],"years":1,"train_days":300,"test_days":50,"step_days":50}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotEmpty(t, body["detail"])

	rec, body = f.do(t, http.MethodGet, "/api/backtest/runs?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["total"])

	rec, body = f.do(t, http.MethodGet, "/api/backtest/runs/"+runID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, runID, body["id"])

	rec, _ = f.do(t, http.MethodGet, "/api/backtest/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/api/backtest/runs?limit=5000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelEndpoints(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodGet, "/api/models/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body)

	rec, _ = f.do(t, http.MethodPost, "/api/models/register",
		`{"id":"m1","algorithm":"threshold","parameters":{"threshold":0.5}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, _ = f.do(t, http.MethodPost, "/api/models/register",
		`{"id":"m1","parameters":{"threshold":0.5}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = f.do(t, http.MethodPost, "/api/models/register",
		`{"id":"bad","algorithm":"forest","parameters":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = f.do(t, http.MethodPost, "/api/models/set-active", `{"model_id":"m1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "m1", body["id"])

	rec, body = f.do(t, http.MethodPost, "/api/models/set-active", `{"model_id":"m2"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "m2")
	active, err := f.reg.Active()
	require.NoError(t, err)
	assert.Equal(t, "m1", active.ID)

	rec, body = f.do(t, http.MethodGet, "/api/models/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "m1", body["id"])

	rec, _ = f.do(t, http.MethodGet, "/api/models/m1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, http.MethodGet, "/api/models/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/models/list", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.ModelSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.True(t, list[0].Active)
}

func TestDriftAndShadowEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.reg.Register(ctx, models.Model{ID: "inc", Parameters: map[string]float64{"threshold": 10}})
	require.NoError(t, err)
	_, err = f.reg.Register(ctx, models.Model{ID: "cand", Parameters: map[string]float64{"threshold": 0.5}})
	require.NoError(t, err)
	_, err = f.reg.SetActive(ctx, "inc")
	require.NoError(t, err)

	rec, body := f.do(t, http.MethodPost, "/api/models/drift-check",
		`{"baseline":[1,2,3,4,5],"current":[1,2,3,4,5]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["drifted"])
	assert.InDelta(t, 0, body["score"], 1e-12)

	rec, body = f.do(t, http.MethodPost, "/api/models/drift-check", `{"baseline":[1,2],"current":[1]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, body["error"])

	rec, body = f.do(t, http.MethodPost, "/api/models/shadow-test",
		`{"candidate_model_id":"cand","features":[[1],[0],[2],[0]],"target":[1,0,1,0]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "promote", body["recommendation"])
	assert.Equal(t, "inc", body["active_model_id"])

	rec, _ = f.do(t, http.MethodPost, "/api/models/shadow-test",
		`{"candidate_model_id":"cand","features":[[1],[0]],"target":[1]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/models/shadow-test",
		`{"candidate_model_id":"ghost","features":[[1]],"target":[1]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLiveEndpoints(t *testing.T) {
	f := newFixture(t)

	bad := []string{
		`{"live_checkbox":false,"pin":"4821","phrase":"I_UNDERSTAND_LIVE_TRADING_RISK"}`,
		`{"live_checkbox":true,"pin":"0000","phrase":"I_UNDERSTAND_LIVE_TRADING_RISK"}`,
		`{"live_checkbox":true,"pin":"4821","phrase":"nope"}`,
	}
	var messages []interface{}
	for _, b := range bad {
		rec, body := f.do(t, http.MethodPost, "/api/live/unlock", b)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		messages = append(messages, body["error"])
	}
	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[1], messages[2])

	rec, body := f.do(t, http.MethodPost, "/api/live/unlock",
		`{"live_checkbox":true,"pin":"4821","phrase":"I_UNDERSTAND_LIVE_TRADING_RISK"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["expires_at"])
	assert.NotContains(t, rec.Body.String(), "token")

	_, body = f.do(t, http.MethodGet, "/api/live/status", "")
	assert.Equal(t, true, body["active"])

	_, body = f.do(t, http.MethodPost, "/api/live/lock", "")
	assert.Equal(t, false, body["active"])
	assert.False(t, f.gate.Active())

	rec, _ = f.do(t, http.MethodPost, "/api/live/unlock", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, body = f.do(t, http.MethodPost, "/api/live/unlock", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "sixth attempt in the same minute")
	assert.Equal(t, float64(http.StatusTooManyRequests), body["status"])
	assert.Equal(t, "too many attempts, try again later", body["error"])
	require.Len(t, body["data"], 1)
	assert.Equal(t, "ERR_TOO_MANY_REQUESTS", body["data"].([]interface{})[0].(map[string]interface{})["code"])
}

func TestCollaboratorEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, body := f.do(t, http.MethodGet, "/api/watchlist", "")
	assert.Equal(t, []interface{}{"SPY", "QQQ"}, body["symbols"])

	rec, body := f.do(t, http.MethodPost, "/api/watchlist", `{"symbols":"aapl, msft aapl"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"AAPL", "MSFT"}, body["symbols"])
	rec, _ = f.do(t, http.MethodPost, "/api/watchlist", `{"symbols":"TOOLONGSYMBOL1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, body = f.do(t, http.MethodGet, "/api/logs?limit=10", "")
	assert.EqualValues(t, 1, body["total"], "watchlist update is logged")

	require.NoError(t, f.store.AddSignal(ctx, models.Signal{ID: "s1", Symbol: "SPY", Mode: models.ModeSimulation, CreatedAt: time.Now()}))
	_, body = f.do(t, http.MethodGet, "/api/signals", "")
	assert.EqualValues(t, 1, body["total"])

	require.NoError(t, f.store.AddFundingAlert(ctx, models.FundingAlert{Symbol: "SPY", MissingCash: 10, ProposedActions: []string{"swap"}, Details: map[string]float64{}}))
	_, body = f.do(t, http.MethodGet, "/api/funding-alerts", "")
	assert.EqualValues(t, 1, body["total"])

	require.NoError(t, f.store.EnqueueTrade(ctx, models.Signal{Symbol: "SPY"}, time.Hour))
	_, body = f.do(t, http.MethodGet, "/api/trade-queue", "")
	assert.EqualValues(t, 1, body["total"])

	rec, body = f.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "idle", body["orchestrator"])

	rec, _ = f.do(t, http.MethodGet, "/api/settings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
