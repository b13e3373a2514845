package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/confiado/confiado-api/internal/model"
)

// ErrConfirmationNotFound is returned when a token matches no row.
var ErrConfirmationNotFound = errors.New("confirmation not found")

// ErrDuplicateToken is returned when an insert trips the unique token
// index. With 256 bits of randomness this is effectively unreachable, but
// the issuer still retries a bounded number of times so the contract holds
// by construction rather than by probability.
var ErrDuplicateToken = errors.New("duplicate confirmation token")

// ConfirmationRepo provides data access to the `debt_confirmations` table.
// It is constructed over the elevated database handle: status mutation is
// the trust-sensitive write of the whole application and nothing reachable
// from a browser session holds this handle.
type ConfirmationRepo struct{ DB *sql.DB }

func NewConfirmationRepo(db *sql.DB) *ConfirmationRepo { return &ConfirmationRepo{DB: db} }

// Insert persists a freshly issued confirmation. A duplicate token maps to
// ErrDuplicateToken so the issuer can regenerate; a missing debt trips the
// foreign key and surfaces as a plain error.
func (r *ConfirmationRepo) Insert(ctx context.Context, c model.DebtConfirmation) error {
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO debt_confirmations (id, debt_id, token, status, expires_at)
        VALUES (?,?,?,?,?)`,
		c.ID, c.DebtID, c.Token, c.Status, c.ExpiresAt)
	if isDuplicateEntry(err) {
		return ErrDuplicateToken
	}
	return err
}

// GetByToken fetches a confirmation by exact token equality. Never a prefix
// or fuzzy match: the token is the credential.
func (r *ConfirmationRepo) GetByToken(ctx context.Context, token string) (model.DebtConfirmation, error) {
	var c model.DebtConfirmation
	err := r.DB.QueryRowContext(ctx, `
        SELECT id, debt_id, token, status, expires_at, created_at, updated_at
        FROM debt_confirmations WHERE token=? LIMIT 1`, token).
		Scan(&c.ID, &c.DebtID, &c.Token, &c.Status, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.DebtConfirmation{}, ErrConfirmationNotFound
	}
	return c, err
}

// Transition applies a terminal status to a row that is still pending and
// reports how many rows changed. The WHERE clause is the concurrency
// control: two racing decisions both pass the read-side checks, but only
// one finds the row pending at write time. The loser sees zero affected
// rows.
func (r *ConfirmationRepo) Transition(ctx context.Context, token, status string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE debt_confirmations SET status=?, updated_at=NOW()
        WHERE token=? AND status=?`,
		status, token, model.ConfirmationPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetDebt loads the debt a confirmation points at, for view assembly.
func (r *ConfirmationRepo) GetDebt(ctx context.Context, debtID string) (model.Debt, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+debtColumns+" FROM debts WHERE id=? LIMIT 1", debtID)
	d, err := scanDebt(row)
	if err == sql.ErrNoRows {
		return model.Debt{}, ErrDebtNotFound
	}
	return d, err
}

// GetProfile loads a party's profile for view assembly.
func (r *ConfirmationRepo) GetProfile(ctx context.Context, userID uint64) (model.Profile, error) {
	var p model.Profile
	err := r.DB.QueryRowContext(ctx, `
        SELECT user_id, name, email, phone_e164, ens_label, currency, created_at, updated_at
        FROM profiles WHERE user_id=? LIMIT 1`, userID).
		Scan(&p.UserID, &p.Name, &p.Email, &p.PhoneE164, &p.ENSLabel, &p.Currency, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Profile{}, ErrNotFound
	}
	return p, err
}
