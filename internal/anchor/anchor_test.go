package anchor

import (
	"regexp"
	"testing"
	"time"

	"github.com/confiado/confiado-api/internal/model"
)

var hexRoot = regexp.MustCompile(`^[0-9a-f]{64}$`)

func pay(id string, amount int64) model.Payment {
	return model.Payment{
		ID:          id,
		DebtID:      "debt-1",
		AmountMinor: amount,
		PaidOn:      time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestMerkleRoot_Deterministic(t *testing.T) {
	payments := []model.Payment{pay("a", 100), pay("b", 200), pay("c", 300)}
	r1 := MerkleRoot(payments)
	r2 := MerkleRoot(payments)
	if r1 != r2 {
		t.Fatalf("same input produced different roots: %s vs %s", r1, r2)
	}
	if !hexRoot.MatchString(r1) {
		t.Fatalf("root %q is not 64 hex chars", r1)
	}
}

func TestMerkleRoot_SingleLeaf(t *testing.T) {
	root := MerkleRoot([]model.Payment{pay("only", 500)})
	if !hexRoot.MatchString(root) {
		t.Fatalf("root %q is not 64 hex chars", root)
	}
}

func TestMerkleRoot_SensitiveToContent(t *testing.T) {
	base := []model.Payment{pay("a", 100), pay("b", 200)}
	changedAmount := []model.Payment{pay("a", 100), pay("b", 201)}
	reordered := []model.Payment{pay("b", 200), pay("a", 100)}

	root := MerkleRoot(base)
	if MerkleRoot(changedAmount) == root {
		t.Errorf("changing an amount must change the root")
	}
	if MerkleRoot(reordered) == root {
		t.Errorf("reordering the batch must change the root")
	}
}

func TestMerkleRoot_EmptyBatch(t *testing.T) {
	if root := MerkleRoot(nil); root != "" {
		t.Fatalf("empty batch has no root, got %q", root)
	}
}

func TestMerkleRoot_OddCountPairsLastWithItself(t *testing.T) {
	two := MerkleRoot([]model.Payment{pay("a", 1), pay("b", 2)})
	three := MerkleRoot([]model.Payment{pay("a", 1), pay("b", 2), pay("c", 3)})
	if two == three {
		t.Errorf("adding a leaf must change the root")
	}
}
