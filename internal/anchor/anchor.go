// Package anchor batches a day's confirmed payments into a Merkle root so
// the batch can later be notarized on an external ledger. Only the root
// and the payment count leave the service; payment data never does.
package anchor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/confiado/confiado-api/internal/model"
	"github.com/confiado/confiado-api/internal/repository"
)

// ErrNoPayments is returned when the day has no confirmed payments and
// there is nothing to anchor.
var ErrNoPayments = errors.New("no confirmed payments for day")

// Service computes and stores daily batch roots.
type Service struct {
	Payments *repository.PaymentRepo
	Anchors  *repository.AnchorRepo
	Log      *slog.Logger
}

func NewService(payments *repository.PaymentRepo, anchors *repository.AnchorRepo, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{Payments: payments, Anchors: anchors, Log: log}
}

// Run computes the Merkle root over the given day's confirmed payments and
// stores it as the next batch. A day with no confirmed payments produces
// no anchor. Running twice for the same day fails with
// repository.ErrDayAnchored; the stored root is immutable.
func (s *Service) Run(ctx context.Context, day time.Time) (model.Anchor, error) {
	payments, err := s.Payments.ListConfirmedOnDay(ctx, day)
	if err != nil {
		return model.Anchor{}, fmt.Errorf("list confirmed payments: %w", err)
	}
	if len(payments) == 0 {
		return model.Anchor{}, ErrNoPayments
	}

	root := MerkleRoot(payments)
	batch, err := s.Anchors.Insert(ctx, root, day, len(payments))
	if err != nil {
		return model.Anchor{}, err
	}
	s.Log.Info("anchored daily batch",
		"batch", batch, "day", day.Format("2006-01-02"),
		"root", root, "payments", len(payments))
	return model.Anchor{
		ID:           batch,
		Root:         root,
		Day:          day,
		PaymentCount: len(payments),
	}, nil
}

// MerkleRoot builds a binary SHA-256 Merkle tree over the payments in the
// order given and returns the hex root. Leaves hash the payment id, amount
// and debt id; an odd node at any level is paired with itself. Recomputing
// over the same ordered set always yields the same root, which is what
// makes the anchor verifiable after the fact.
func MerkleRoot(payments []model.Payment) string {
	if len(payments) == 0 {
		return ""
	}
	level := make([][32]byte, 0, len(payments))
	for _, p := range payments {
		level = append(level, sha256.Sum256(leaf(p)))
	}
	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			j := i + 1
			if j == len(level) {
				j = i
			}
			pair := append(level[i][:], level[j][:]...)
			next = append(next, sha256.Sum256(pair))
		}
		level = next
	}
	return hex.EncodeToString(level[0][:])
}

func leaf(p model.Payment) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d:%s", p.ID, p.DebtID, p.AmountMinor, p.PaidOn.UTC().Format("2006-01-02")))
}
