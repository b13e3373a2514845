package model

import "time"

// Anchor records one daily batch root over the day's confirmed payments.
// The id doubles as the sequential batch counter; submission of the root to
// the on-chain ledger happens outside this service.
type Anchor struct {
	ID           uint64    // anchors.id (batch counter)
	Root         string    // anchors.root (hex SHA-256 Merkle root)
	Day          time.Time // anchors.day
	PaymentCount int       // anchors.payment_count
	CreatedAt    time.Time // anchors.created_at
}
