package model

import "time"

// Payment states. A payment is logged as pending by either party and moves
// exactly once to confirmed or rejected by the creditor. Only confirmed
// payments count toward a debt's paid total.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusRejected  = "rejected"
)

// Payment mirrors the `payments` table.
type Payment struct {
	ID          string    // payments.id (UUID)
	DebtID      string    // payments.debt_id
	AmountMinor int64     // payments.amount_minor
	Method      string    // payments.method (e.g. "Bank Transfer", "Cash")
	PaidOn      time.Time // payments.paid_on
	Status      string    // payments.status
	Notes       *string   // payments.notes (nullable)
	CreatedAt   time.Time // payments.created_at
	UpdatedAt   time.Time // payments.updated_at
}
