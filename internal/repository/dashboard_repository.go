package repository

import (
	"context"
	"database/sql"

	"github.com/confiado/confiado-api/internal/model"
)

// DashboardRepo reads the rows behind the summary and KPI cards: every
// debt a user participates in on one side, with all payments attached.
// The derived figures (paid, remaining, rates) are computed in Go with the
// model helpers so the arithmetic lives in one place.
type DashboardRepo struct{ DB *sql.DB }

func NewDashboardRepo(db *sql.DB) *DashboardRepo { return &DashboardRepo{DB: db} }

// DebtsWithPayments returns the user's debts on the given side ("creditor"
// or "debtor") and a map of debt id to its payments. Two queries total,
// regardless of how many debts the user holds.
func (r *DashboardRepo) DebtsWithPayments(ctx context.Context, userID uint64, view string) ([]model.Debt, map[string][]model.Payment, error) {
	where := "d.counterparty_id=?"
	if view == "creditor" {
		where = "d.creditor_id=?"
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+debtColumns+" FROM debts d WHERE "+where+" ORDER BY d.created_at DESC", userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var debts []model.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, nil, err
		}
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	prows, err := r.DB.QueryContext(ctx, `
        SELECT p.id, p.debt_id, p.amount_minor, p.method, p.paid_on, p.status, p.notes, p.created_at, p.updated_at
        FROM payments p JOIN debts d ON d.id = p.debt_id
        WHERE `+where+` ORDER BY p.paid_on, p.created_at`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer prows.Close()

	payments := make(map[string][]model.Payment)
	for prows.Next() {
		p, err := scanPayment(prows)
		if err != nil {
			return nil, nil, err
		}
		payments[p.DebtID] = append(payments[p.DebtID], p)
	}
	return debts, payments, prows.Err()
}
