package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/confiado/confiado-api/internal/confirmation"
	"github.com/confiado/confiado-api/internal/model"
	"github.com/confiado/confiado-api/internal/queue"
	"github.com/confiado/confiado-api/internal/repository"
	queuepub "github.com/confiado/confiado-api/internal/service"
)

// DebtHandler serves debt creation, listing and detail. Creating a debt
// also issues the confirmation token and publishes the invite event; both
// steps are best-effort relative to the debt row, which is the source of
// truth.
type DebtHandler struct {
	Debts         *repository.DebtRepo
	Payments      *repository.PaymentRepo
	Users         *repository.UserRepo
	Profiles      *repository.ProfileRepo
	Dashboard     *repository.DashboardRepo
	Confirmations *confirmation.Service
	Log           *slog.Logger
}

type createDebtReq struct {
	CounterpartyName  string  `json:"counterparty_name"`
	CounterpartyEmail string  `json:"counterparty_email"`
	AmountMinor       int64   `json:"amount_minor"`
	Currency          string  `json:"currency"`
	DueDate           string  `json:"due_date"` // YYYY-MM-DD
	Description       *string `json:"description"`
}

type debtPart struct {
	ID                  string  `json:"id"`
	CreditorID          uint64  `json:"creditor_id"`
	CounterpartyID      *uint64 `json:"counterparty_id"`
	CounterpartyName    string  `json:"counterparty_name"`
	CounterpartyContact string  `json:"counterparty_contact"`
	AmountMinor         int64   `json:"amount_minor"`
	Currency            string  `json:"currency"`
	DueDate             string  `json:"due_date"`
	Description         *string `json:"description"`
	Status              string  `json:"status"`
	PaidMinor           int64   `json:"paid_minor"`
	RemainingMinor      int64   `json:"remaining_minor"`
	CreatedAt           time.Time `json:"created_at"`
}

func toDebtPart(d model.Debt, payments []model.Payment, now time.Time) debtPart {
	t := model.DeriveTotals(d, payments)
	return debtPart{
		ID:                  d.ID,
		CreditorID:          d.CreditorID,
		CounterpartyID:      d.CounterpartyID,
		CounterpartyName:    d.CounterpartyName,
		CounterpartyContact: d.CounterpartyContact,
		AmountMinor:         d.AmountMinor,
		Currency:            d.Currency,
		DueDate:             d.DueDate.UTC().Format("2006-01-02"),
		Description:         d.Description,
		Status:              model.EffectiveStatus(d, payments, now),
		PaidMinor:           t.PaidMinor,
		RemainingMinor:      t.RemainingMinor,
		CreatedAt:           d.CreatedAt,
	}
}

// Create handles POST /v1/debts. The caller becomes the creditor; when the
// counterparty email matches an existing account the debt is linked to it.
// A confirmation token is issued and its shareable link returned. Token
// issuance failure does not fail the request: the debt stands, the link is
// null and a warning is included so the client can offer a retry.
func (h *DebtHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createDebtReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.CounterpartyName = strings.TrimSpace(req.CounterpartyName)
	req.CounterpartyEmail = strings.TrimSpace(strings.ToLower(req.CounterpartyEmail))
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.CounterpartyName == "" || req.CounterpartyEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "counterparty name and email are required"})
	}
	if req.AmountMinor <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}
	if len(req.Currency) != 3 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "currency must be a 3-letter code"})
	}
	dueDate, err := time.ParseInLocation("2006-01-02", req.DueDate, time.UTC)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "due_date must be YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d := model.Debt{
		CreditorID:          userID,
		CounterpartyName:    req.CounterpartyName,
		CounterpartyContact: req.CounterpartyEmail,
		AmountMinor:         req.AmountMinor,
		Currency:            req.Currency,
		DueDate:             dueDate,
		Description:         req.Description,
	}
	// Counterparty account linking is opportunistic; not having an account
	// is the normal case.
	if cid, err := h.Users.LookupIDByEmail(ctx, req.CounterpartyEmail); err == nil {
		d.CounterpartyID = &cid
	}

	id, err := h.Debts.Create(ctx, d)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create debt"})
	}
	d.ID = id
	d.Status = model.DebtStatusActive
	d.CreatedAt = time.Now().UTC()

	token, err := h.Confirmations.IssueToken(ctx, id)
	if err != nil {
		h.Log.Warn("confirmation issuance failed", "debt_id", id, "err", err)
		return c.JSON(http.StatusCreated, echo.Map{
			"debt":              toDebtPart(d, nil, time.Now().UTC()),
			"confirmation_link": nil,
			"warning":           "debt created but confirmation link could not be issued",
		})
	}
	link := h.Confirmations.Link(token)

	h.publishInvite(c.Request().Context(), d, link)

	return c.JSON(http.StatusCreated, echo.Map{
		"debt":              toDebtPart(d, nil, time.Now().UTC()),
		"confirmation_link": link,
	})
}

// publishInvite sends the invite event to the notification queue. Failures
// are logged only; the debt and its confirmation link already exist.
func (h *DebtHandler) publishInvite(ctx context.Context, d model.Debt, link string) {
	creditorName := ""
	if p, err := h.Profiles.GetByUserID(ctx, d.CreditorID); err == nil && p.Name != nil {
		creditorName = *p.Name
	}
	if creditorName == "" {
		if u, err := h.Users.GetByID(ctx, d.CreditorID); err == nil {
			creditorName = u.Email
		}
	}
	desc := ""
	if d.Description != nil {
		desc = *d.Description
	}
	ev := queue.DebtInviteEvent{
		DebtID:            d.ID,
		CreditorName:      creditorName,
		CounterpartyName:  d.CounterpartyName,
		CounterpartyEmail: d.CounterpartyContact,
		AmountMinor:       d.AmountMinor,
		Currency:          d.Currency,
		DueDate:           d.DueDate.UTC().Format("2006-01-02"),
		Description:       desc,
		ConfirmationLink:  link,
		ExpiresAt:         time.Now().UTC().Add(h.Confirmations.Window()).Format(time.RFC3339),
		CreatedAt:         time.Now().UTC().Format(time.RFC3339),
	}
	if err := queuepub.PublishDebtInvite(ctx, ev); err != nil {
		h.Log.Warn("invite publish failed", "debt_id", d.ID, "err", err)
	}
}

// List handles GET /v1/debts?view=creditor|debtor. Each row carries the
// derived totals and the effective (possibly overdue) status.
func (h *DebtHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	view := c.QueryParam("view")
	if view == "" {
		view = "creditor"
	}
	if view != "creditor" && view != "debtor" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "view must be creditor or debtor"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	debts, paymentsByDebt, err := h.Dashboard.DebtsWithPayments(ctx, userID, view)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list debts"})
	}

	now := time.Now().UTC()
	out := make([]debtPart, 0, len(debts))
	for _, d := range debts {
		out = append(out, toDebtPart(d, paymentsByDebt[d.ID], now))
	}
	return c.JSON(http.StatusOK, echo.Map{"debts": out, "view": view})
}

// Get handles GET /v1/debts/:id. Only the creditor or the linked
// counterparty may view a debt; anyone else gets 404 so the ID space leaks
// nothing.
func (h *DebtHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Debts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDebtNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "debt not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load debt"})
	}
	if !isParticipant(d, userID) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "debt not found"})
	}

	payments, err := h.Payments.ListByDebt(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load payments"})
	}

	now := time.Now().UTC()
	return c.JSON(http.StatusOK, echo.Map{
		"debt":     toDebtPart(d, payments, now),
		"payments": toPaymentParts(payments),
	})
}

// isParticipant reports whether the user is the creditor or the linked
// counterparty of the debt.
func isParticipant(d model.Debt, userID uint64) bool {
	if d.CreditorID == userID {
		return true
	}
	return d.CounterpartyID != nil && *d.CounterpartyID == userID
}
