package api

import (
	"github.com/labstack/echo/v4"

	"github.com/AtashM95/tradebot/internal/domain/models"
	xhttp "github.com/AtashM95/tradebot/pkg/http"
	xlogger "github.com/AtashM95/tradebot/pkg/logger"
)

// RunBacktest runs a walk-forward backtest synchronously. Omitted numeric
// fields take the configured defaults; explicit zeros are rejected.
func (h *Handler) RunBacktest(c echo.Context) error {
	req := h.backtestRequest()
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	p := req.Params()
	if req.Strategy == "" {
		p.Strategy = h.deps.Defaults.Strategy
	}

	run, err := h.deps.Backtester.Run(c.Request().Context(), p)
	if err != nil {
		h.logger.Warn("backtest failed", xlogger.Error(err))
		return xhttp.ErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, run)
}

func (h *Handler) ListRuns(c echo.Context) error {
	q := &models.LimitQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	runs, err := h.deps.Runs.ListRuns(c.Request().Context(), q.Limit)
	if err != nil {
		return h.storeError(c, "list runs", err)
	}
	return xhttp.ListResponse(c, runs, int64(len(runs)))
}

func (h *Handler) GetRun(c echo.Context) error {
	run, err := h.deps.Runs.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.ErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, run)
}

// backtestRequest pre-fills configured defaults; binding then overwrites
// only the fields the caller sent, and `default` tags cover the rest.
func (h *Handler) backtestRequest() *models.BacktestRequest {
	req := &models.BacktestRequest{}
	d := h.deps.Defaults
	for _, f := range []struct {
		dst **int
		v   int
	}{
		{&req.Years, d.Years},
		{&req.TrainDays, d.TrainDays},
		{&req.TestDays, d.TestDays},
		{&req.StepDays, d.StepDays},
	} {
		if f.v > 0 {
			v := f.v
			*f.dst = &v
		}
	}
	return req
}
