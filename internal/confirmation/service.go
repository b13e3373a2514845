// Package confirmation implements the debt-confirmation token workflow:
// issuing an unguessable, time-boxed token when a debt is created,
// resolving a token into a presentation-ready view for the counterparty,
// and applying the one-time accept/reject decision. The decision write is
// the only mutation and runs over the elevated storage handle; possession
// of the token is the counterparty's sole credential.
package confirmation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/confiado/confiado-api/internal/config"
	"github.com/confiado/confiado-api/internal/model"
	"github.com/confiado/confiado-api/internal/repository"
	"github.com/confiado/confiado-api/internal/utils"
)

// minTokenLength guards obviously malformed tokens from reaching storage.
// Advisory only: anything longer still answers not-found through the
// regular lookup, so the check is not a security boundary.
const minTokenLength = 10

// Store is the persistence surface the workflow needs. *repository.
// ConfirmationRepo implements it over the elevated MySQL handle; tests
// substitute an in-memory fake.
type Store interface {
	Insert(ctx context.Context, c model.DebtConfirmation) error
	GetByToken(ctx context.Context, token string) (model.DebtConfirmation, error)
	Transition(ctx context.Context, token, status string) (int64, error)
	GetDebt(ctx context.Context, debtID string) (model.Debt, error)
	GetProfile(ctx context.Context, userID uint64) (model.Profile, error)
}

// Party is the displayable identity of one side of the agreement.
type Party struct {
	Name  string  `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// DebtTerms carries the agreement terms shown on the confirmation page.
type DebtTerms struct {
	ID          string    `json:"id"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	DueDate     time.Time `json:"due_date"`
	Description *string   `json:"description"`
}

// View is the presentation-ready result of resolving a token. When the
// debt or a profile cannot be fetched the view degrades rather than
// failing: Partial is set, Debt/Creditor/Counterparty stay nil, and the
// counterparty can still decide on the bare token. The tag lets callers
// tell "details withheld" apart from a fully assembled view instead of
// guessing from nulled fields.
type View struct {
	ID           string     `json:"id"`
	Token        string     `json:"token"`
	Status       string     `json:"status"`
	ExpiresAt    time.Time  `json:"expires_at"`
	Partial      bool       `json:"partial"`
	Debt         *DebtTerms `json:"debt"`
	Creditor     *Party     `json:"creditor"`
	Counterparty *Party     `json:"counterparty"`
}

// Service is the token issuer, resolver and status transition handler.
type Service struct {
	cfg   config.ConfirmationConfig
	store Store
	log   *slog.Logger
	now   func() time.Time // swapped in tests
}

// NewService builds a Service. Zero or negative config values fall back to
// the workflow's standard parameters (7-day window, 32-byte tokens, 3
// issue attempts).
func NewService(cfg config.ConfirmationConfig, store Store, logger *slog.Logger) *Service {
	if cfg.TTLDays <= 0 {
		cfg.TTLDays = 7
	}
	if cfg.TokenBytes <= 0 {
		cfg.TokenBytes = 32
	}
	if cfg.IssueAttempts <= 0 {
		cfg.IssueAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cfg: cfg, store: store, log: logger, now: time.Now}
}

// IssueToken creates a fresh pending confirmation bound to the given debt
// and returns the raw token. The caller embeds it into a shareable link
// and transmits it out of band; delivery failure never rolls the issuance
// back. Retries a bounded number of times on a token-uniqueness collision;
// any other storage failure aborts with ErrIssuanceFailed.
func (s *Service) IssueToken(ctx context.Context, debtID string) (string, error) {
	for attempt := 0; attempt < s.cfg.IssueAttempts; attempt++ {
		token, err := utils.RandomHex(s.cfg.TokenBytes)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrIssuanceFailed, err)
		}
		now := s.now().UTC()
		c := model.DebtConfirmation{
			ID:        uuid.NewString(),
			DebtID:    debtID,
			Token:     token,
			Status:    model.ConfirmationPending,
			ExpiresAt: now.Add(time.Duration(s.cfg.TTLDays) * 24 * time.Hour),
		}
		err = s.store.Insert(ctx, c)
		if err == nil {
			return token, nil
		}
		if errors.Is(err, repository.ErrDuplicateToken) {
			s.log.Warn("confirmation token collision, regenerating", "attempt", attempt+1)
			continue
		}
		return "", fmt.Errorf("%w: %v", ErrIssuanceFailed, err)
	}
	return "", fmt.Errorf("%w: exhausted %d attempts", ErrIssuanceFailed, s.cfg.IssueAttempts)
}

// Link renders the shareable confirmation URL for a token.
func (s *Service) Link(token string) string {
	return fmt.Sprintf("%s/debt/confirm/%s", strings.TrimRight(s.cfg.BaseURL, "/"), token)
}

// Window returns the configured validity period of new tokens.
func (s *Service) Window() time.Duration {
	return time.Duration(s.cfg.TTLDays) * 24 * time.Hour
}

// Resolve looks a token up and returns a view of the confirmation and the
// underlying agreement. Read-only and idempotent. Decision precedence:
// missing row, then expiry (an expired row is dead even while still
// pending), then terminal status, then view assembly.
func (s *Service) Resolve(ctx context.Context, token string) (View, error) {
	if len(token) < minTokenLength {
		return View{}, ErrTokenNotFound
	}
	c, err := s.store.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrConfirmationNotFound) {
			return View{}, ErrTokenNotFound
		}
		return View{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if c.Expired(s.now().UTC()) {
		return View{}, ErrExpired
	}
	if c.Status != model.ConfirmationPending {
		return View{}, &AlreadyProcessedError{Status: c.Status}
	}
	return s.assembleView(ctx, c), nil
}

// assembleView joins the debt and both party profiles onto the
// confirmation. Any fetch failure degrades to a tagged partial view so a
// secondary read problem never blocks the decision flow.
func (s *Service) assembleView(ctx context.Context, c model.DebtConfirmation) View {
	v := View{
		ID:        c.ID,
		Token:     c.Token,
		Status:    c.Status,
		ExpiresAt: c.ExpiresAt,
	}

	debt, err := s.store.GetDebt(ctx, c.DebtID)
	if err != nil {
		s.log.Warn("confirmation view degraded: debt fetch failed",
			"confirmation_id", c.ID, "error", err)
		v.Partial = true
		return v
	}
	v.Debt = &DebtTerms{
		ID:          debt.ID,
		AmountMinor: debt.AmountMinor,
		Currency:    debt.Currency,
		DueDate:     debt.DueDate,
		Description: debt.Description,
	}

	creditor, err := s.partyFor(ctx, &debt.CreditorID, "")
	if err != nil {
		s.log.Warn("confirmation view degraded: creditor fetch failed",
			"confirmation_id", c.ID, "error", err)
		v.Partial = true
		return v
	}
	v.Creditor = creditor

	// The counterparty may not hold an account; fall back to the contact
	// details the creditor entered on the debt.
	counterparty, err := s.partyFor(ctx, debt.CounterpartyID, debt.CounterpartyName)
	if err != nil {
		s.log.Warn("confirmation view degraded: counterparty fetch failed",
			"confirmation_id", c.ID, "error", err)
		v.Partial = true
		return v
	}
	if counterparty.Name == "" {
		counterparty.Name = debt.CounterpartyName
	}
	if counterparty.Email == nil && debt.CounterpartyContact != "" {
		contact := debt.CounterpartyContact
		counterparty.Email = &contact
	}
	v.Counterparty = counterparty
	return v
}

// partyFor resolves a user reference into a Party. A nil reference or a
// user without a saved profile yields an empty party (the caller fills
// fallbacks); only a real storage failure propagates.
func (s *Service) partyFor(ctx context.Context, userID *uint64, fallbackName string) (*Party, error) {
	if userID == nil {
		return &Party{Name: fallbackName}, nil
	}
	p, err := s.store.GetProfile(ctx, *userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &Party{}, nil
		}
		return nil, err
	}
	party := &Party{Email: p.Email, Phone: p.PhoneE164}
	if p.Name != nil {
		party.Name = *p.Name
	}
	return party, nil
}

// ApplyDecision applies a counterparty's accept/reject decision exactly
// once. Validation order: decision value (no storage touched on a bad
// one), row existence, terminal-status guard, expiry re-check, then the
// conditional write. The write is scoped to the row still being pending;
// zero affected rows after all checks passed means another transition
// committed in between, which is reported as already-processed and logged
// as a concurrent modification.
func (s *Service) ApplyDecision(ctx context.Context, token, decision string) error {
	if decision != model.ConfirmationAccepted && decision != model.ConfirmationRejected {
		return ErrInvalidDecision
	}
	if len(token) < minTokenLength {
		return ErrTokenNotFound
	}

	c, err := s.store.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrConfirmationNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if c.Status != model.ConfirmationPending {
		return &AlreadyProcessedError{Status: c.Status}
	}
	if c.Expired(s.now().UTC()) {
		return ErrExpired
	}

	n, err := s.store.Transition(ctx, token, decision)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		s.log.Warn("concurrent confirmation transition lost the race",
			"confirmation_id", c.ID, "attempted", decision)
		return &AlreadyProcessedError{Status: s.recordedStatus(ctx, token), Concurrent: true}
	}
	return nil
}

// recordedStatus re-reads the terminal status after a lost race, best
// effort: the user message can then name the decision that actually stands.
func (s *Service) recordedStatus(ctx context.Context, token string) string {
	c, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return ""
	}
	return c.Status
}
