package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/confiado/confiado-api/internal/model"
)

// ErrPaymentNotFound is returned when a payment id resolves to no row.
var ErrPaymentNotFound = errors.New("payment not found")

// PaymentRepo provides data access to the `payments` table.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

const paymentColumns = `id, debt_id, amount_minor, method, paid_on, status, notes, created_at, updated_at`

// Create logs a payment against a debt. The row starts pending and only
// counts toward the debt's paid total once the creditor confirms it.
func (r *PaymentRepo) Create(ctx context.Context, p model.Payment) (string, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO payments (id, debt_id, amount_minor, method, paid_on, status, notes)
        VALUES (?,?,?,?,?,?,?)`,
		id, p.DebtID, p.AmountMinor, p.Method, p.PaidOn.Format("2006-01-02"), model.PaymentStatusPending, p.Notes)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetByID fetches one payment.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (model.Payment, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id=? LIMIT 1", id)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return model.Payment{}, ErrPaymentNotFound
	}
	return p, err
}

// ListByDebt returns all payments logged against a debt, oldest first.
func (r *PaymentRepo) ListByDebt(ctx context.Context, debtID string) ([]model.Payment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE debt_id=? ORDER BY paid_on, created_at", debtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Decide applies the creditor's confirm/reject decision to a pending
// payment. The update is scoped to rows still pending so a double-click or
// a concurrent decision cannot double-apply; zero affected rows yields
// ErrConflict.
func (r *PaymentRepo) Decide(ctx context.Context, id, status string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE payments SET status=?, updated_at=NOW() WHERE id=? AND status=?",
		status, id, model.PaymentStatusPending)
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

// ListConfirmedOnDay returns the confirmed payments dated on the given
// calendar day, ordered by id for a stable batch-root input.
func (r *PaymentRepo) ListConfirmedOnDay(ctx context.Context, day time.Time) ([]model.Payment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE status=? AND paid_on=? ORDER BY id",
		model.PaymentStatusConfirmed, day.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(s scanner) (model.Payment, error) {
	var (
		p     model.Payment
		notes sql.NullString
	)
	err := s.Scan(&p.ID, &p.DebtID, &p.AmountMinor, &p.Method, &p.PaidOn, &p.Status, &notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Payment{}, err
	}
	if notes.Valid {
		v := notes.String
		p.Notes = &v
	}
	return p, nil
}
