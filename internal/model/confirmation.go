package model

import "time"

// Confirmation states. Pending is the only state a decision can be applied
// from; accepted and rejected are terminal and a row never leaves them.
const (
	ConfirmationPending  = "pending"
	ConfirmationAccepted = "accepted"
	ConfirmationRejected = "rejected"
)

// DebtConfirmation mirrors the `debt_confirmations` table: one tokenized
// invitation for a counterparty to accept or reject a debt agreement. The
// token is the sole external lookup key and the sole credential for acting
// on the row.
//
// Fields:
//
//	ID        – opaque UUID, generated at creation, immutable.
//	DebtID    – the debt this confirmation is bound to.
//	Token     – 64-char lowercase hex, unique, unguessable.
//	Status    – pending | accepted | rejected.
//	ExpiresAt – creation time + configured TTL; not renewable.
//	CreatedAt – bookkeeping.
//	UpdatedAt – changes only on the status transition.
type DebtConfirmation struct {
	ID        string    // debt_confirmations.id (UUID)
	DebtID    string    // debt_confirmations.debt_id
	Token     string    // debt_confirmations.token
	Status    string    // debt_confirmations.status
	ExpiresAt time.Time // debt_confirmations.expires_at
	CreatedAt time.Time // debt_confirmations.created_at
	UpdatedAt time.Time // debt_confirmations.updated_at
}

// Expired reports whether the confirmation is past its deadline at now.
// An expired row is non-actionable even while its status is still pending.
func (c DebtConfirmation) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
