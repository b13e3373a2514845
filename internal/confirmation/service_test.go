package confirmation

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/confiado/confiado-api/internal/config"
	"github.com/confiado/confiado-api/internal/model"
	"github.com/confiado/confiado-api/internal/repository"
)

// fakeStore is an in-memory Store. Error fields inject failures; counters
// record which calls the workflow actually made.
type fakeStore struct {
	rows     map[string]model.DebtConfirmation
	debts    map[string]model.Debt
	profiles map[uint64]model.Profile

	insertErr      error
	insertFailures int // fail this many Inserts with insertErr, then succeed
	getErr         error
	transitionErr  error
	debtErr        error
	profileErr     error

	inserts     int
	gets        int
	transitions int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:     map[string]model.DebtConfirmation{},
		debts:    map[string]model.Debt{},
		profiles: map[uint64]model.Profile{},
	}
}

func (f *fakeStore) Insert(ctx context.Context, c model.DebtConfirmation) error {
	f.inserts++
	if f.insertFailures > 0 {
		f.insertFailures--
		return f.insertErr
	}
	f.rows[c.Token] = c
	return nil
}

func (f *fakeStore) GetByToken(ctx context.Context, token string) (model.DebtConfirmation, error) {
	f.gets++
	if f.getErr != nil {
		return model.DebtConfirmation{}, f.getErr
	}
	c, ok := f.rows[token]
	if !ok {
		return model.DebtConfirmation{}, repository.ErrConfirmationNotFound
	}
	return c, nil
}

func (f *fakeStore) Transition(ctx context.Context, token, status string) (int64, error) {
	f.transitions++
	if f.transitionErr != nil {
		return 0, f.transitionErr
	}
	c, ok := f.rows[token]
	if !ok || c.Status != model.ConfirmationPending {
		return 0, nil
	}
	c.Status = status
	f.rows[token] = c
	return 1, nil
}

func (f *fakeStore) GetDebt(ctx context.Context, debtID string) (model.Debt, error) {
	if f.debtErr != nil {
		return model.Debt{}, f.debtErr
	}
	d, ok := f.debts[debtID]
	if !ok {
		return model.Debt{}, repository.ErrDebtNotFound
	}
	return d, nil
}

func (f *fakeStore) GetProfile(ctx context.Context, userID uint64) (model.Profile, error) {
	if f.profileErr != nil {
		return model.Profile{}, f.profileErr
	}
	p, ok := f.profiles[userID]
	if !ok {
		return model.Profile{}, repository.ErrNotFound
	}
	return p, nil
}

func newTestService(store Store) *Service {
	return NewService(config.ConfirmationConfig{BaseURL: "https://confiado.app"}, store, nil)
}

func seedPending(f *fakeStore, token string, expiresAt time.Time) model.DebtConfirmation {
	c := model.DebtConfirmation{
		ID:        "conf-1",
		DebtID:    "debt-1",
		Token:     token,
		Status:    model.ConfirmationPending,
		ExpiresAt: expiresAt,
	}
	f.rows[token] = c
	return c
}

const testToken = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

var hexToken = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestIssueToken_Format(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)

	tok, err := svc.IssueToken(context.Background(), "debt-1")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !hexToken.MatchString(tok) {
		t.Fatalf("token %q is not 64 lowercase hex chars", tok)
	}
	c, ok := f.rows[tok]
	if !ok {
		t.Fatalf("expected a stored confirmation row")
	}
	if c.Status != model.ConfirmationPending {
		t.Errorf("expected pending status, got %q", c.Status)
	}
	if c.DebtID != "debt-1" {
		t.Errorf("expected debt binding, got %q", c.DebtID)
	}
	window := time.Until(c.ExpiresAt)
	if window < 6*24*time.Hour || window > 8*24*time.Hour {
		t.Errorf("expected roughly 7-day expiry, got %v", window)
	}
}

func TestIssueToken_RetriesOnCollision(t *testing.T) {
	f := newFakeStore()
	f.insertErr = repository.ErrDuplicateToken
	f.insertFailures = 2
	svc := newTestService(f)

	tok, err := svc.IssueToken(context.Background(), "debt-1")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if f.inserts != 3 {
		t.Errorf("expected 3 insert attempts, got %d", f.inserts)
	}
	if _, ok := f.rows[tok]; !ok {
		t.Errorf("expected final token to be stored")
	}
}

func TestIssueToken_ExhaustsAttempts(t *testing.T) {
	f := newFakeStore()
	f.insertErr = repository.ErrDuplicateToken
	f.insertFailures = 10
	svc := newTestService(f)

	_, err := svc.IssueToken(context.Background(), "debt-1")
	if !errors.Is(err, ErrIssuanceFailed) {
		t.Fatalf("expected ErrIssuanceFailed, got %v", err)
	}
	if f.inserts != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", f.inserts)
	}
}

func TestIssueToken_StorageFailureDoesNotRetry(t *testing.T) {
	f := newFakeStore()
	f.insertErr = errors.New("connection refused")
	f.insertFailures = 10
	svc := newTestService(f)

	_, err := svc.IssueToken(context.Background(), "debt-1")
	if !errors.Is(err, ErrIssuanceFailed) {
		t.Fatalf("expected ErrIssuanceFailed, got %v", err)
	}
	if f.inserts != 1 {
		t.Errorf("expected a single attempt on a non-collision failure, got %d", f.inserts)
	}
}

func TestLink(t *testing.T) {
	svc := NewService(config.ConfirmationConfig{BaseURL: "https://confiado.app/"}, newFakeStore(), nil)
	got := svc.Link("abc123def456")
	want := "https://confiado.app/debt/confirm/abc123def456"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestResolve_ShortTokenSkipsStorage(t *testing.T) {
	f := newFakeStore()
	svc := newTestService(f)

	_, err := svc.Resolve(context.Background(), "short")
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
	if f.gets != 0 {
		t.Errorf("expected no storage lookup for an obviously malformed token")
	}
}

func TestResolve_NotFound(t *testing.T) {
	svc := newTestService(newFakeStore())
	_, err := svc.Resolve(context.Background(), testToken)
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestResolve_ExpiredBeatsProcessed(t *testing.T) {
	// An expired row that was also already accepted must still surface as
	// expired: the row is dead regardless of its terminal status.
	f := newFakeStore()
	c := seedPending(f, testToken, time.Now().UTC().Add(-time.Hour))
	c.Status = model.ConfirmationAccepted
	f.rows[testToken] = c
	svc := newTestService(f)

	_, err := svc.Resolve(context.Background(), testToken)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestResolve_AlreadyProcessed(t *testing.T) {
	f := newFakeStore()
	c := seedPending(f, testToken, time.Now().UTC().Add(time.Hour))
	c.Status = model.ConfirmationRejected
	f.rows[testToken] = c
	svc := newTestService(f)

	_, err := svc.Resolve(context.Background(), testToken)
	var ap *AlreadyProcessedError
	if !errors.As(err, &ap) {
		t.Fatalf("expected AlreadyProcessedError, got %v", err)
	}
	if ap.Status != model.ConfirmationRejected {
		t.Errorf("expected recorded status %q, got %q", model.ConfirmationRejected, ap.Status)
	}
	if ap.Concurrent {
		t.Errorf("plain re-resolve is not a concurrent loss")
	}
}

func TestResolve_StorageFailureIsUnavailable(t *testing.T) {
	f := newFakeStore()
	f.getErr = errors.New("timeout")
	svc := newTestService(f)

	_, err := svc.Resolve(context.Background(), testToken)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("storage failure must not look like a bad link")
	}
}

func TestResolve_FullView(t *testing.T) {
	f := newFakeStore()
	seedPending(f, testToken, time.Now().UTC().Add(time.Hour))
	name := "Ana"
	email := "ana@example.com"
	f.debts["debt-1"] = model.Debt{
		ID:                  "debt-1",
		CreditorID:          7,
		CounterpartyName:    "Luis",
		CounterpartyContact: "luis@example.com",
		AmountMinor:         150000,
		Currency:            "MXN",
	}
	f.profiles[7] = model.Profile{UserID: 7, Name: &name, Email: &email}
	svc := newTestService(f)

	v, err := svc.Resolve(context.Background(), testToken)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if v.Partial {
		t.Fatalf("expected a complete view")
	}
	if v.Debt == nil || v.Debt.AmountMinor != 150000 {
		t.Fatalf("expected debt terms in view, got %+v", v.Debt)
	}
	if v.Creditor == nil || v.Creditor.Name != "Ana" {
		t.Errorf("expected creditor profile, got %+v", v.Creditor)
	}
	if v.Counterparty == nil || v.Counterparty.Name != "Luis" {
		t.Errorf("expected counterparty fallback name, got %+v", v.Counterparty)
	}
	if v.Counterparty.Email == nil || *v.Counterparty.Email != "luis@example.com" {
		t.Errorf("expected counterparty contact fallback, got %+v", v.Counterparty)
	}
}

func TestResolve_RepeatedReadsMatch(t *testing.T) {
	f := newFakeStore()
	seedPending(f, testToken, time.Now().UTC().Add(time.Hour))
	name := "Ana"
	f.debts["debt-1"] = model.Debt{
		ID:               "debt-1",
		CreditorID:       7,
		CounterpartyName: "Luis",
		AmountMinor:      150000,
		Currency:         "MXN",
	}
	f.profiles[7] = model.Profile{UserID: 7, Name: &name}
	svc := newTestService(f)

	first, err := svc.Resolve(context.Background(), testToken)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	second, err := svc.Resolve(context.Background(), testToken)
	if err != nil {
		t.Fatalf("expected nil error on second read, got %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated reads must match:\nfirst  %+v\nsecond %+v", first, second)
	}
	if f.transitions != 0 {
		t.Errorf("resolving must not write, got %d transitions", f.transitions)
	}
	if f.rows[testToken].Status != model.ConfirmationPending {
		t.Errorf("row must stay pending after reads")
	}
}

func TestResolve_DegradesToPartialView(t *testing.T) {
	f := newFakeStore()
	seedPending(f, testToken, time.Now().UTC().Add(time.Hour))
	f.debtErr = errors.New("join table gone")
	svc := newTestService(f)

	v, err := svc.Resolve(context.Background(), testToken)
	if err != nil {
		t.Fatalf("expected nil error on degraded view, got %v", err)
	}
	if !v.Partial {
		t.Fatalf("expected Partial to be set")
	}
	if v.Debt != nil || v.Creditor != nil || v.Counterparty != nil {
		t.Errorf("partial view must not carry half-loaded details")
	}
	if v.Token != testToken || v.Status != model.ConfirmationPending {
		t.Errorf("partial view still carries the confirmation itself, got %+v", v)
	}
}

func TestApplyDecision_InvalidDecisionSkipsStorage(t *testing.T) {
	f := newFakeStore()
	seedPending(f, testToken, time.Now().UTC().Add(time.Hour))
	svc := newTestService(f)

	err := svc.ApplyDecision(context.Background(), testToken, "maybe")
	if !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}
	if f.gets != 0 || f.transitions != 0 {
		t.Errorf("invalid decision must not touch storage")
	}
	if f.rows[testToken].Status != model.ConfirmationPending {
		t.Errorf("row must stay pending")
	}
}

func TestApplyDecision_AcceptExactlyOnce(t *testing.T) {
	f := newFakeStore()
	seedPending(f, testToken, time.Now().UTC().Add(time.Hour))
	svc := newTestService(f)

	if err := svc.ApplyDecision(context.Background(), testToken, model.ConfirmationAccepted); err != nil {
		t.Fatalf("first decision should succeed, got %v", err)
	}
	if got := f.rows[testToken].Status; got != model.ConfirmationAccepted {
		t.Fatalf("expected accepted, got %q", got)
	}

	// Second attempt, either value, reports the recorded decision.
	err := svc.ApplyDecision(context.Background(), testToken, model.ConfirmationRejected)
	var ap *AlreadyProcessedError
	if !errors.As(err, &ap) {
		t.Fatalf("expected AlreadyProcessedError, got %v", err)
	}
	if ap.Status != model.ConfirmationAccepted {
		t.Errorf("expected the standing decision %q, got %q", model.ConfirmationAccepted, ap.Status)
	}
	if got := f.rows[testToken].Status; got != model.ConfirmationAccepted {
		t.Errorf("recorded decision must not change, got %q", got)
	}
}

func TestApplyDecision_ExpiredLeavesRowPending(t *testing.T) {
	f := newFakeStore()
	seedPending(f, testToken, time.Now().UTC().Add(-time.Minute))
	svc := newTestService(f)

	err := svc.ApplyDecision(context.Background(), testToken, model.ConfirmationAccepted)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if f.transitions != 0 {
		t.Errorf("expired token must not reach the transition write")
	}
	if f.rows[testToken].Status != model.ConfirmationPending {
		t.Errorf("expired row stays pending, not rejected")
	}
}

func TestApplyDecision_ConcurrentLoserGetsRecordedStatus(t *testing.T) {
	// The row reads as pending but another transition wins before the
	// write; the conditional update affects zero rows.
	f := newFakeStore()
	c := seedPending(f, testToken, time.Now().UTC().Add(time.Hour))
	store := &racingStore{fakeStore: f, winner: model.ConfirmationRejected, row: c}
	svc := newTestService(store)

	err := svc.ApplyDecision(context.Background(), testToken, model.ConfirmationAccepted)
	var ap *AlreadyProcessedError
	if !errors.As(err, &ap) {
		t.Fatalf("expected AlreadyProcessedError, got %v", err)
	}
	if !ap.Concurrent {
		t.Errorf("expected the concurrent flag on a lost race")
	}
	if ap.Status != model.ConfirmationRejected {
		t.Errorf("expected the winning decision %q, got %q", model.ConfirmationRejected, ap.Status)
	}
}

func TestApplyDecision_NotFound(t *testing.T) {
	svc := newTestService(newFakeStore())
	err := svc.ApplyDecision(context.Background(), testToken, model.ConfirmationAccepted)
	if !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

// racingStore simulates losing the transition race: the first read returns
// the pending row, the transition affects zero rows, and later reads show
// the winner's decision.
type racingStore struct {
	*fakeStore
	winner string
	row    model.DebtConfirmation
	reads  int
}

func (r *racingStore) GetByToken(ctx context.Context, token string) (model.DebtConfirmation, error) {
	r.reads++
	c := r.row
	if r.reads > 1 {
		c.Status = r.winner
	}
	return c, nil
}

func (r *racingStore) Transition(ctx context.Context, token, status string) (int64, error) {
	return 0, nil
}
