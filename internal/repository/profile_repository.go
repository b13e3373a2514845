package repository

import (
	"context"
	"database/sql"

	"github.com/confiado/confiado-api/internal/model"
)

// ProfileRepo provides access to the `profiles` table. A profile is created
// lazily: the first save after registration inserts the row, later saves
// update it in place.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

// Upsert writes the profile row for a user, creating it when absent. The
// currency falls back to USD when empty so the column constraint holds.
func (r *ProfileRepo) Upsert(ctx context.Context, p model.Profile) error {
	if p.Currency == "" {
		p.Currency = "USD"
	}
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO profiles (user_id, name, email, phone_e164, ens_label, currency)
        VALUES (?,?,?,?,?,?)
        ON DUPLICATE KEY UPDATE
            name=VALUES(name), email=VALUES(email), phone_e164=VALUES(phone_e164),
            ens_label=VALUES(ens_label), currency=VALUES(currency)`,
		p.UserID, p.Name, p.Email, p.PhoneE164, p.ENSLabel, p.Currency)
	return err
}

// GetByUserID fetches a profile by owner. Returns ErrNotFound when the
// user has never saved one.
func (r *ProfileRepo) GetByUserID(ctx context.Context, userID uint64) (model.Profile, error) {
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
