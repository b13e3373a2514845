package confirmation

import (
	"errors"
	"fmt"
)

// The workflow's failure modes are all distinct, user-displayable reasons.
// Handlers map each to its own HTTP status; none may collapse into a
// generic failure, and transient storage trouble (ErrUnavailable) must
// never masquerade as an invalid link.
var (
	// ErrInvalidDecision: the submitted decision is not "accepted" or
	// "rejected". Rejected before any storage access.
	ErrInvalidDecision = errors.New("invalid decision")

	// ErrTokenNotFound: the token matches no confirmation row.
	ErrTokenNotFound = errors.New("confirmation token not found")

	// ErrExpired: the token's deadline has passed. Checked at lookup and
	// re-checked at transition time, since the clock keeps moving between
	// the two.
	ErrExpired = errors.New("confirmation token expired")

	// ErrIssuanceFailed: the storage write failed while issuing a token.
	// The creditor can retry by re-running the create-debt flow.
	ErrIssuanceFailed = errors.New("confirmation issuance failed")

	// ErrUnavailable: a storage or network failure during lookup or
	// transition. Retryable, unlike every other kind.
	ErrUnavailable = errors.New("confirmation storage unavailable")
)

// AlreadyProcessedError reports that a decision was already recorded for
// the token. Status carries the terminal state so the caller can tell the
// user which decision stands. Concurrent marks the race case where the row
// was pending at check time but another transition won the write; it is
// the same outcome for the user but logged separately for diagnosis.
type AlreadyProcessedError struct {
	Status     string
	Concurrent bool
}

func (e *AlreadyProcessedError) Error() string {
	if e.Status == "" {
		return "confirmation already processed"
	}
	return fmt.Sprintf("confirmation already %s", e.Status)
}
