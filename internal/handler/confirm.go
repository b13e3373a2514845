package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/confiado/confiado-api/internal/confirmation"
	"github.com/confiado/confiado-api/internal/model"
)

// ConfirmHandler serves the public, unauthenticated confirmation endpoints.
// The token in the URL or body is the only credential; possession of it is
// authorization.
type ConfirmHandler struct {
	Confirmations *confirmation.Service
}

type confirmDecisionReq struct {
	Token  string `json:"token"`
	Status string `json:"status"` // accepted | rejected
}

// Resolve handles GET /v1/confirmations/:token. It returns the
// confirmation view for a live pending token and a failure-specific status
// code otherwise, so the confirmation page can render the right state
// without guessing.
func (h *ConfirmHandler) Resolve(c echo.Context) error {
	token := strings.TrimSpace(c.Param("token"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	view, err := h.Confirmations.Resolve(ctx, token)
	if err != nil {
		return confirmError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Decide handles POST /v1/confirmations/decision with {token, status}.
func (h *ConfirmHandler) Decide(c echo.Context) error {
	var req confirmDecisionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request body"})
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "token and status are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Confirmations.ApplyDecision(ctx, req.Token, req.Status); err != nil {
		return confirmError(c, err)
	}

	verb := "accepted"
	if req.Status == model.ConfirmationRejected {
		verb = "rejected"
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": fmt.Sprintf("debt agreement %s", verb),
	})
}

// confirmError maps workflow errors onto HTTP status codes. Each failure
// mode gets its own code so clients can distinguish a bad link from a dead
// one from one that was already used.
func confirmError(c echo.Context, err error) error {
	var ap *confirmation.AlreadyProcessedError
	switch {
	case errors.Is(err, confirmation.ErrInvalidDecision):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "status must be accepted or rejected"})
	case errors.Is(err, confirmation.ErrTokenNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "confirmation not found"})
	case errors.As(err, &ap):
		return c.JSON(http.StatusConflict, echo.Map{
			"success": false,
			"error":   "confirmation already processed",
			"status":  ap.Status,
		})
	case errors.Is(err, confirmation.ErrExpired):
		return c.JSON(http.StatusGone, echo.Map{"success": false, "error": "confirmation link has expired"})
	case errors.Is(err, confirmation.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"success": false, "error": "service temporarily unavailable"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal error"})
	}
}
