package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/confiado/confiado-api/internal/model"
)

// ErrDayAnchored is returned when a batch root for the day already exists.
var ErrDayAnchored = errors.New("day already anchored")

// AnchorRepo provides data access to the `anchors` table. The
// auto-increment id serves as the sequential batch counter that the
// on-chain ledger mirrors.
type AnchorRepo struct{ DB *sql.DB }

func NewAnchorRepo(db *sql.DB) *AnchorRepo { return &AnchorRepo{DB: db} }

// Insert stores a batch root for a day and returns the batch number.
func (r *AnchorRepo) Insert(ctx context.Context, root string, day time.Time, paymentCount int) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO anchors (root, day, payment_count) VALUES (?,?,?)",
		root, day.Format("2006-01-02"), paymentCount)
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, ErrDayAnchored
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// List returns all anchors, newest batch first.
func (r *AnchorRepo) List(ctx context.Context) ([]model.Anchor, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, root, day, payment_count, created_at FROM anchors ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anchors []model.Anchor
	for rows.Next() {
		var a model.Anchor
		if err := rows.Scan(&a.ID, &a.Root, &a.Day, &a.PaymentCount, &a.CreatedAt); err != nil {
			return nil, err
		}
		anchors = append(anchors, a)
	}
	return anchors, rows.Err()
}

// IsRootAnchored reports whether a root has been recorded, mirroring the
// ledger contract's lookup.
func (r *AnchorRepo) IsRootAnchored(ctx context.Context, root string) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx, "SELECT id FROM anchors WHERE root=? LIMIT 1", root).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
