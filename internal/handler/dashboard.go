package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/confiado/confiado-api/internal/model"
	"github.com/confiado/confiado-api/internal/repository"
)

// DashboardHandler serves the aggregated money figures and KPIs for one
// side of a user's ledger. All figures are derived in-process from the
// debts and their confirmed payments; nothing aggregated is stored.
type DashboardHandler struct {
	Dashboard *repository.DashboardRepo
}

type dashboardSummary struct {
	View           string  `json:"view"`
	TotalMinor     int64   `json:"total_minor"`
	PaidMinor      int64   `json:"paid_minor"`
	RemainingMinor int64   `json:"remaining_minor"`
	ActiveCount    int     `json:"active_count"`
	OverdueCount   int     `json:"overdue_count"`
	CompletedCount int     `json:"completed_count"`
	OverdueMinor   int64   `json:"overdue_minor"`
	NextDueDate    *string `json:"next_due_date"`
}

type dashboardKPIs struct {
	View              string  `json:"view"`
	Range             string  `json:"range"`
	DebtCount         int     `json:"debt_count"`
	CompletionRate    float64 `json:"completion_rate"`
	OnTimePaymentRate float64 `json:"on_time_payment_rate"`
	AvgDebtMinor      int64   `json:"avg_debt_minor"`
}

// Summary handles GET /v1/dashboard/summary?view=creditor|debtor.
func (h *DashboardHandler) Summary(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	view, ok := dashboardView(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "view must be creditor or debtor"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	debts, paymentsByDebt, err := h.Dashboard.DebtsWithPayments(ctx, userID, view)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load dashboard"})
	}

	now := time.Now().UTC()
	s := dashboardSummary{View: view}
	var nextDue *time.Time
	for _, d := range debts {
		payments := paymentsByDebt[d.ID]
		t := model.DeriveTotals(d, payments)
		s.TotalMinor += t.TotalMinor
		s.PaidMinor += t.PaidMinor
		s.RemainingMinor += t.RemainingMinor
		switch model.EffectiveStatus(d, payments, now) {
		case model.DebtStatusCompleted:
			s.CompletedCount++
		case model.DebtStatusOverdue:
			s.OverdueCount++
			s.OverdueMinor += t.RemainingMinor
		default:
			s.ActiveCount++
			if nextDue == nil || d.DueDate.Before(*nextDue) {
				due := d.DueDate
				nextDue = &due
			}
		}
	}
	if nextDue != nil {
		str := nextDue.UTC().Format("2006-01-02")
		s.NextDueDate = &str
	}
	return c.JSON(http.StatusOK, s)
}

// KPIs handles GET /v1/dashboard/kpis?view=&range=30d|90d|all. The
// completion rate is the share of debts in the window that are settled;
// the on-time payment rate is the share of confirmed payments made on or
// before the debt's due date.
func (h *DashboardHandler) KPIs(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	view, ok := dashboardView(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "view must be creditor or debtor"})
	}
	rng := c.QueryParam("range")
	if rng == "" {
		rng = "all"
	}
	var since time.Time
	now := time.Now().UTC()
	switch rng {
	case "30d":
		since = now.AddDate(0, 0, -30)
	case "90d":
		since = now.AddDate(0, 0, -90)
	case "all":
		// zero time, everything qualifies
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "range must be 30d, 90d or all"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	debts, paymentsByDebt, err := h.Dashboard.DebtsWithPayments(ctx, userID, view)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load dashboard"})
	}

	k := dashboardKPIs{View: view, Range: rng}
	var (
		totalMinor     int64
		completed      int
		paymentsTotal  int
		paymentsOnTime int
	)
	for _, d := range debts {
		if !since.IsZero() && d.CreatedAt.Before(since) {
			continue
		}
		payments := paymentsByDebt[d.ID]
		k.DebtCount++
		totalMinor += d.AmountMinor
		if model.Settled(d, payments) {
			completed++
		}
		dueEnd := d.DueDate.UTC().AddDate(0, 0, 1)
		for _, p := range payments {
			if p.Status != model.PaymentStatusConfirmed {
				continue
			}
			paymentsTotal++
			if p.PaidOn.Before(dueEnd) {
				paymentsOnTime++
			}
		}
	}
	if k.DebtCount > 0 {
		k.CompletionRate = float64(completed) / float64(k.DebtCount)
		k.AvgDebtMinor = totalMinor / int64(k.DebtCount)
	}
	if paymentsTotal > 0 {
		k.OnTimePaymentRate = float64(paymentsOnTime) / float64(paymentsTotal)
	}
	return c.JSON(http.StatusOK, k)
}

func dashboardView(c echo.Context) (string, bool) {
	view := c.QueryParam("view")
	if view == "" {
		view = "creditor"
	}
	if view != "creditor" && view != "debtor" {
		return "", false
	}
	return view, true
}
