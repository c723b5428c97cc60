package api

import (
	"github.com/labstack/echo/v4"

	"github.com/AtashM95/tradebot/internal/domain/models"
	xhttp "github.com/AtashM95/tradebot/pkg/http"
)

type stateResponse struct {
	Status models.OrchestratorState `json:"status"`
}

func (h *Handler) OrchestratorStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.deps.Orchestrator.Status())
}

// Transitions never fail: an illegal action returns the unchanged state.

func (h *Handler) OrchestratorStart(c echo.Context) error {
	return xhttp.SuccessResponse(c, stateResponse{Status: h.deps.Orchestrator.Start(c.Request().Context())})
}

func (h *Handler) OrchestratorPause(c echo.Context) error {
	return xhttp.SuccessResponse(c, stateResponse{Status: h.deps.Orchestrator.Pause(c.Request().Context())})
}

func (h *Handler) OrchestratorStop(c echo.Context) error {
	return xhttp.SuccessResponse(c, stateResponse{Status: h.deps.Orchestrator.Stop(c.Request().Context())})
}

func (h *Handler) OrchestratorReset(c echo.Context) error {
	return xhttp.SuccessResponse(c, stateResponse{Status: h.deps.Orchestrator.Reset(c.Request().Context())})
}

func (h *Handler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	symbols, err := models.ParseSymbols(req.Symbol)
	if err != nil {
		return xhttp.ErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, h.deps.Orchestrator.RunCycle(c.Request().Context(), symbols))
}

func (h *Handler) AnalyzeAll(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.deps.Orchestrator.RunCycle(c.Request().Context(), nil))
}
