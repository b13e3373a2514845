package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/confiado/confiado-api/internal/model"
	"github.com/confiado/confiado-api/internal/repository"
)

// PaymentHandler serves payment logging and the creditor's confirm/reject
// decision on logged payments.
type PaymentHandler struct {
	Debts    *repository.DebtRepo
	Payments *repository.PaymentRepo
	Logger   *slog.Logger
}

type logPaymentReq struct {
	AmountMinor int64   `json:"amount_minor"`
	Method      string  `json:"method"`
	PaidOn      string  `json:"paid_on"` // YYYY-MM-DD
	Notes       *string `json:"notes"`
}

type decidePaymentReq struct {
	Status string `json:"status"` // confirmed | rejected
}

type paymentPart struct {
	ID          string    `json:"id"`
	DebtID      string    `json:"debt_id"`
	AmountMinor int64     `json:"amount_minor"`
	Method      string    `json:"method"`
	PaidOn      string    `json:"paid_on"`
	Status      string    `json:"status"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

func toPaymentPart(p model.Payment) paymentPart {
	return paymentPart{
		ID:          p.ID,
		DebtID:      p.DebtID,
		AmountMinor: p.AmountMinor,
		Method:      p.Method,
		PaidOn:      p.PaidOn.UTC().Format("2006-01-02"),
		Status:      p.Status,
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt,
	}
}

func toPaymentParts(ps []model.Payment) []paymentPart {
	out := make([]paymentPart, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPaymentPart(p))
	}
	return out
}

// Log handles POST /v1/debts/:id/payments. Either participant may log a
// payment; it starts pending and only counts toward the paid total once
// the creditor confirms it.
func (h *PaymentHandler) Log(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	debtID := c.Param("id")

	var req logPaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.AmountMinor <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}
	req.Method = strings.TrimSpace(req.Method)
	if req.Method == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "method is required"})
	}
	paidOn, err := time.ParseInLocation("2006-01-02", req.PaidOn, time.UTC)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "paid_on must be YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Debts.GetByID(ctx, debtID)
	if err != nil {
		if errors.Is(err, repository.ErrDebtNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "debt not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load debt"})
	}
	if !isParticipant(d, userID) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "debt not found"})
	}
	if d.Status == model.DebtStatusCompleted {
		return c.JSON(http.StatusConflict, echo.Map{"error": "debt is already completed"})
	}

	p := model.Payment{
		DebtID:      debtID,
		AmountMinor: req.AmountMinor,
		Method:      req.Method,
		PaidOn:      paidOn,
		Notes:       req.Notes,
	}
	id, err := h.Payments.Create(ctx, p)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not log payment"})
	}
	p.ID = id
	p.Status = model.PaymentStatusPending
	p.CreatedAt = time.Now().UTC()

	return c.JSON(http.StatusCreated, echo.Map{"payment": toPaymentPart(p)})
}

// Decide handles POST /v1/payments/:id/decision. Only the creditor of the
// underlying debt may confirm or reject, and only while the payment is
// still pending. Confirming the payment that settles the debt also marks
// the debt completed.
func (h *PaymentHandler) Decide(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	paymentID := c.Param("id")

	var req decidePaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Status != model.PaymentStatusConfirmed && req.Status != model.PaymentStatusRejected {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be confirmed or rejected"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load payment"})
	}
	d, err := h.Debts.GetByID(ctx, p.DebtID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load debt"})
	}
	if d.CreditorID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the creditor can decide on a payment"})
	}

	if err := h.Payments.Decide(ctx, paymentID, req.Status); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "payment already decided", "status": p.Status})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not record decision"})
	}
	p.Status = req.Status

	if req.Status == model.PaymentStatusConfirmed {
		payments, err := h.Payments.ListByDebt(ctx, p.DebtID)
		if err == nil && model.Settled(d, payments) {
			if err := h.Debts.MarkCompleted(ctx, p.DebtID); err != nil && !errors.Is(err, repository.ErrConflict) {
				h.Logger.Warn("could not complete settled debt", "debt_id", p.DebtID, "err", err)
			}
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"payment": toPaymentPart(p)})
}
