package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AtashM95/tradebot/internal/domain/models"
	xhttp "github.com/AtashM95/tradebot/pkg/http"
)

type unlockResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

type liveStatusResponse struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// LiveUnlock never says which factor failed. The session token stays
// server side; callers only learn the expiry.
func (h *Handler) LiveUnlock(c echo.Context) error {
	req := &models.UnlockRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	sess, err := h.deps.Gate.Unlock(req.LiveCheckbox, req.PIN, req.Phrase)
	if err != nil {
		h.logLine(c, "warning", "Live unlock rejected.")
		return xhttp.ErrorResponse(c, err)
	}
	h.logLine(c, "warning", "Live trading unlocked until "+sess.ExpiresAt.Format(time.RFC3339)+".")
	return xhttp.SuccessResponse(c, unlockResponse{ExpiresAt: sess.ExpiresAt})
}

func (h *Handler) LiveLock(c echo.Context) error {
	if h.deps.Gate.Lock() {
		h.logLine(c, "info", "Live session locked.")
	}
	return xhttp.SuccessResponse(c, liveStatusResponse{Active: false})
}

func (h *Handler) LiveStatus(c echo.Context) error {
	active, exp := h.deps.Gate.Status()
	out := liveStatusResponse{Active: active}
	if active {
		out.ExpiresAt = &exp
	}
	return xhttp.SuccessResponse(c, out)
}
