package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/confiado/confiado-api/internal/model"
)

// ErrDebtNotFound is returned when a debt id resolves to no row.
var ErrDebtNotFound = errors.New("debt not found")

// DebtRepo provides data access to the `debts` table.
type DebtRepo struct{ DB *sql.DB }

func NewDebtRepo(db *sql.DB) *DebtRepo { return &DebtRepo{DB: db} }

const debtColumns = `id, creditor_id, counterparty_id, counterparty_name, counterparty_contact,
        amount_minor, currency, due_date, description, status, created_at, updated_at`

// Create inserts a debt row and returns its generated UUID. The debt starts
// active; acceptance of the agreement is tracked on the confirmation row,
// not here.
func (r *DebtRepo) Create(ctx context.Context, d model.Debt) (string, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO debts (id, creditor_id, counterparty_id, counterparty_name, counterparty_contact,
            amount_minor, currency, due_date, description, status)
        VALUES (?,?,?,?,?,?,?,?,?,?)`,
		id, d.CreditorID, d.CounterpartyID, d.CounterpartyName, d.CounterpartyContact,
		d.AmountMinor, d.Currency, d.DueDate.Format("2006-01-02"), d.Description, model.DebtStatusActive)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetByID fetches one debt.
func (r *DebtRepo) GetByID(ctx context.Context, id string) (model.Debt, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+debtColumns+" FROM debts WHERE id=? LIMIT 1", id)
	d, err := scanDebt(row)
	if err == sql.ErrNoRows {
		return model.Debt{}, ErrDebtNotFound
	}
	return d, err
}

// ListForUser returns the debts a user participates in. view selects the
// side: "creditor" lists debts the user issued, anything else lists debts
// where the user is the counterparty.
func (r *DebtRepo) ListForUser(ctx context.Context, userID uint64, view string) ([]model.Debt, error) {
	where := "counterparty_id=?"
	if view == "creditor" {
		where = "creditor_id=?"
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+debtColumns+" FROM debts WHERE "+where+" ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var debts []model.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

// MarkCompleted flips an active debt to completed. The update is
// conditional so a stale caller cannot resurrect a terminal row; zero
// affected rows yields ErrConflict.
func (r *DebtRepo) MarkCompleted(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE debts SET status=? WHERE id=? AND status=?",
		model.DebtStatusCompleted, id, model.DebtStatusActive)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface{ Scan(dest ...any) error }

func scanDebt(s scanner) (model.Debt, error) {
	var (
		d            model.Debt
		counterparty sql.NullInt64
		description  sql.NullString
	)
	err := s.Scan(&d.ID, &d.CreditorID, &counterparty, &d.CounterpartyName, &d.CounterpartyContact,
		&d.AmountMinor, &d.Currency, &d.DueDate, &description, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return model.Debt{}, err
	}
	if counterparty.Valid {
		v := uint64(counterparty.Int64)
		d.CounterpartyID = &v
	}
	if description.Valid {
		v := description.String
		d.Description = &v
	}
	return d, nil
}
