package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
	xhttp "github.com/AtashM95/tradebot/pkg/http"
	xlogger "github.com/AtashM95/tradebot/pkg/logger"
)

type watchlistResponse struct {
	Symbols []string `json:"symbols"`
}

type healthResponse struct {
	Status       string                   `json:"status"`
	Orchestrator models.OrchestratorState `json:"orchestrator"`
	Store        string                   `json:"store"`
	Live         bool                     `json:"live"`
}

func (h *Handler) GetWatchlist(c echo.Context) error {
	syms, err := h.deps.Watchlist.ListSymbols(c.Request().Context())
	if err != nil {
		return h.storeError(c, "list watchlist", err)
	}
	return xhttp.SuccessResponse(c, watchlistResponse{Symbols: syms})
}

func (h *Handler) SetWatchlist(c echo.Context) error {
	req := &models.WatchlistRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	syms, err := models.ParseSymbols(req.Symbols)
	if err != nil {
		return xhttp.ErrorResponse(c, err)
	}
	if err := h.deps.Watchlist.ReplaceSymbols(c.Request().Context(), syms); err != nil {
		return h.storeError(c, "save watchlist", err)
	}
	h.logLine(c, "info", "Watchlist updated.")
	return xhttp.SuccessResponse(c, watchlistResponse{Symbols: syms})
}

func (h *Handler) ListLogs(c echo.Context) error {
	q := &models.LimitQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	logs, err := h.deps.Logs.ListLogs(c.Request().Context(), q.Limit)
	if err != nil {
		return h.storeError(c, "list logs", err)
	}
	return xhttp.ListResponse(c, logs, int64(len(logs)))
}

func (h *Handler) ListSignals(c echo.Context) error {
	q := &models.LimitQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	sigs, err := h.deps.Signals.ListSignals(c.Request().Context(), q.Limit)
	if err != nil {
		return h.storeError(c, "list signals", err)
	}
	return xhttp.ListResponse(c, sigs, int64(len(sigs)))
}

func (h *Handler) ListFundingAlerts(c echo.Context) error {
	q := &models.LimitQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	alerts, err := h.deps.Alerts.ListFundingAlerts(c.Request().Context(), q.Limit)
	if err != nil {
		return h.storeError(c, "list funding alerts", err)
	}
	return xhttp.ListResponse(c, alerts, int64(len(alerts)))
}

func (h *Handler) ListTradeQueue(c echo.Context) error {
	trades, err := h.deps.Queue.ListActiveTrades(c.Request().Context(), h.now())
	if err != nil {
		return h.storeError(c, "list trade queue", err)
	}
	return xhttp.ListResponse(c, trades, int64(len(trades)))
}

// Health reports degraded, with 503, when the store does not answer.
func (h *Handler) Health(c echo.Context) error {
	out := healthResponse{
		Status:       "ok",
		Orchestrator: h.deps.Orchestrator.Status().Status,
		Store:        "ok",
	}
	if h.deps.Gate != nil {
		out.Live, _ = h.deps.Gate.Status()
	}
	code := http.StatusOK
	if h.deps.StorePing != nil {
		if err := h.deps.StorePing(c.Request().Context()); err != nil {
			h.logger.Error("store health check failed", xlogger.Error(err))
			out.Status, out.Store = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	return xhttp.DataResponse(c, code, out)
}

func (h *Handler) GetSettings(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.deps.Settings)
}

// storeError logs a persistence failure and reports it as unavailable.
func (h *Handler) storeError(c echo.Context, op string, err error) error {
	h.logger.Error("store error", xlogger.String("op", op), xlogger.Error(err))
	if errs.KindOf(err) == errs.KindInternal {
		err = errs.Unavailable(err, "%s failed", op)
	}
	return xhttp.ErrorResponse(c, err)
}

// logLine writes an operator-facing line to the log store; failures only
// reach the structured log.
func (h *Handler) logLine(c echo.Context, level, msg string) {
	if h.deps.Logs == nil {
		return
	}
	if err := h.deps.Logs.AddLog(c.Request().Context(), level, msg); err != nil {
		h.logger.Warn("log store write failed", xlogger.Error(err))
	}
}
