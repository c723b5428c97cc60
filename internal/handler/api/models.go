package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/AtashM95/tradebot/internal/domain/errs"
	"github.com/AtashM95/tradebot/internal/domain/models"
	xhttp "github.com/AtashM95/tradebot/pkg/http"
	xlogger "github.com/AtashM95/tradebot/pkg/logger"
)

func (h *Handler) ListModels(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.deps.Registry.List())
}

// ActiveModel returns the active model, or an empty object when none is set.
func (h *Handler) ActiveModel(c echo.Context) error {
	m, err := h.deps.Registry.Active()
	if errors.Is(err, errs.ErrNotFound) {
		return xhttp.SuccessResponse(c, struct{}{})
	}
	if err != nil {
		return xhttp.ErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, m)
}

func (h *Handler) GetModel(c echo.Context) error {
	m, err := h.deps.Registry.Get(c.Param("id"))
	if err != nil {
		return xhttp.ErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, m)
}

func (h *Handler) SetActiveModel(c echo.Context) error {
	req := &models.SetActiveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	m, err := h.deps.Registry.SetActive(c.Request().Context(), req.ModelID)
	if err != nil {
		return xhttp.ErrorResponse(c, err)
	}
	h.logLine(c, "info", "Active model set to "+m.ID+".")
	return xhttp.SuccessResponse(c, m)
}

func (h *Handler) RegisterModel(c echo.Context) error {
	req := &models.RegisterModelRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	m := models.Model{
		ID:             req.ID,
		Algorithm:      req.Algorithm,
		Parameters:     req.Parameters,
		TrainingWindow: req.TrainingWindow,
		Metrics:        req.Metrics,
	}
	if req.CreatedAt != nil {
		m.CreatedAt = req.CreatedAt.UTC()
	}
	out, err := h.deps.Registry.Register(c.Request().Context(), m)
	if err != nil {
		return xhttp.ErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, out)
}

func (h *Handler) DriftCheck(c echo.Context) error {
	req := &models.DriftCheckRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	report, err := h.deps.Drift.DetectCached(c.Request().Context(), req.Baseline, req.Current)
	if err != nil {
		return xhttp.ErrorResponse(c, err)
	}
	if h.deps.Metrics != nil {
		h.deps.Metrics.RecordDriftCheck(report.Drifted)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *Handler) ShadowTest(c echo.Context) error {
	req := &models.ShadowTestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	res, err := h.deps.Shadow.Test(c.Request().Context(), req.CandidateModelID, req.ActiveModelID, req.Features, req.Target)
	if err != nil {
		return xhttp.ErrorResponse(c, err)
	}
	if h.deps.Metrics != nil {
		h.deps.Metrics.RecordShadowTest(string(res.Recommendation))
	}
	h.logger.Info("shadow test",
		xlogger.String("candidate", res.CandidateModelID),
		xlogger.String("active", res.ActiveModelID),
		xlogger.String("recommendation", string(res.Recommendation)),
		xlogger.Float64("delta", res.Delta),
	)
	return xhttp.SuccessResponse(c, res)
}
