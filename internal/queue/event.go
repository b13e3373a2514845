// Package queue defines message payloads exchanged over the message broker.
package queue

// DebtInviteEvent is published after a confirmation token has been issued
// for a new debt. It carries everything the notification consumer needs to
// address the counterparty without querying the primary database. Publish
// failure never rolls the issuance back; the creditor can always copy the
// link out of the API response instead.
type DebtInviteEvent struct {
	DebtID            string `json:"debt_id"`
	CreditorName      string `json:"creditor_name"`
	CounterpartyName  string `json:"counterparty_name"`
	CounterpartyEmail string `json:"counterparty_email"`
	AmountMinor       int64  `json:"amount_minor"`
	Currency          string `json:"currency"`
	DueDate           string `json:"due_date"`
	Description       string `json:"description"`
	ConfirmationLink  string `json:"confirmation_link"`
	ExpiresAt         string `json:"expires_at"`
	CreatedAt         string `json:"created_at"`
}
