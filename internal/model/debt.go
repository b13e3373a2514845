package model

import "time"

// Stored debt states. Overdue is never written to the row; it is derived
// from the due date at read time so that a debt becomes overdue the moment
// the clock passes the deadline, not when some job notices.
const (
	DebtStatusActive    = "active"
	DebtStatusCompleted = "completed"
	DebtStatusOverdue   = "overdue" // derived only
)

// Debt mirrors the `debts` table. Amounts are integer minor currency units
// (cents); the counterparty may or may not hold an account, so the row
// carries both a nullable user reference and the free-text name/contact the
// creditor entered.
type Debt struct {
	ID                  string    // debts.id (UUID)
	CreditorID          uint64    // debts.creditor_id
	CounterpartyID      *uint64   // debts.counterparty_id (nullable)
	CounterpartyName    string    // debts.counterparty_name
	CounterpartyContact string    // debts.counterparty_contact (email)
	AmountMinor         int64     // debts.amount_minor
	Currency            string    // debts.currency
	DueDate             time.Time // debts.due_date
	Description         *string   // debts.description (nullable)
	Status              string    // debts.status
	CreatedAt           time.Time // debts.created_at
	UpdatedAt           time.Time // debts.updated_at
}

// Totals carries the derived money figures for one debt.
type Totals struct {
	TotalMinor     int64
	PaidMinor      int64
	RemainingMinor int64
}

// DeriveTotals computes paid (sum of confirmed payments only) and remaining
// (total minus paid, floored at zero) for a debt.
func DeriveTotals(d Debt, payments []Payment) Totals {
	var paid int64
	for _, p := range payments {
		if p.Status == PaymentStatusConfirmed {
			paid += p.AmountMinor
		}
	}
	remaining := d.AmountMinor - paid
	if remaining < 0 {
		remaining = 0
	}
	return Totals{TotalMinor: d.AmountMinor, PaidMinor: paid, RemainingMinor: remaining}
}

// EffectiveStatus reports the debt status as shown to users: a stored
// "active" debt whose due date has passed with money still outstanding is
// overdue. Completed rows are returned unchanged.
func EffectiveStatus(d Debt, payments []Payment, now time.Time) string {
	if d.Status != DebtStatusActive {
		return d.Status
	}
	t := DeriveTotals(d, payments)
	if t.RemainingMinor > 0 && now.After(endOfDay(d.DueDate)) {
		return DebtStatusOverdue
	}
	return d.Status
}

// Settled reports whether confirmed payments cover the full amount.
func Settled(d Debt, payments []Payment) bool {
	return DeriveTotals(d, payments).RemainingMinor == 0
}

// endOfDay returns the last instant of the calendar day of t in UTC. Due
// dates are stored as dates; a debt is not overdue until the day is over.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}
