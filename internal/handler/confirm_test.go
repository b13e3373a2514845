package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/confiado/confiado-api/internal/config"
	"github.com/confiado/confiado-api/internal/confirmation"
	"github.com/confiado/confiado-api/internal/model"
	"github.com/confiado/confiado-api/internal/repository"
)

const confirmTestToken = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

// memStore is a minimal confirmation.Store for exercising the HTTP layer.
type memStore struct {
	rows   map[string]model.DebtConfirmation
	broken bool
}

func (m *memStore) Insert(ctx context.Context, c model.DebtConfirmation) error {
	m.rows[c.Token] = c
	return nil
}

func (m *memStore) GetByToken(ctx context.Context, token string) (model.DebtConfirmation, error) {
	if m.broken {
		return model.DebtConfirmation{}, errors.New("connection reset")
	}
	c, ok := m.rows[token]
	if !ok {
		return model.DebtConfirmation{}, repository.ErrConfirmationNotFound
	}
	return c, nil
}

func (m *memStore) Transition(ctx context.Context, token, status string) (int64, error) {
	c, ok := m.rows[token]
	if !ok || c.Status != model.ConfirmationPending {
		return 0, nil
	}
	c.Status = status
	m.rows[token] = c
	return 1, nil
}

func (m *memStore) GetDebt(ctx context.Context, debtID string) (model.Debt, error) {
	return model.Debt{}, repository.ErrDebtNotFound
}

func (m *memStore) GetProfile(ctx context.Context, userID uint64) (model.Profile, error) {
	return model.Profile{}, repository.ErrNotFound
}

func newConfirmHandler(store *memStore) *ConfirmHandler {
	svc := confirmation.NewService(config.ConfirmationConfig{BaseURL: "https://confiado.app"}, store, nil)
	return &ConfirmHandler{Confirmations: svc}
}

func seedConfirmation(store *memStore, status string, expiresAt time.Time) {
	store.rows[confirmTestToken] = model.DebtConfirmation{
		ID:        "conf-1",
		DebtID:    "debt-1",
		Token:     confirmTestToken,
		Status:    status,
		ExpiresAt: expiresAt,
	}
}

func doResolve(t *testing.T, h *ConfirmHandler, token string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/confirmations/"+token, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/confirmations/:token")
	c.SetParamNames("token")
	c.SetParamValues(token)
	if err := h.Resolve(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func doDecide(t *testing.T, h *ConfirmHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/confirmations/decision", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Decide(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestResolveEndpoint_OK(t *testing.T) {
	store := &memStore{rows: map[string]model.DebtConfirmation{}}
	seedConfirmation(store, model.ConfirmationPending, time.Now().UTC().Add(time.Hour))
	h := newConfirmHandler(store)

	rec := doResolve(t, h, confirmTestToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var v confirmation.View
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if v.Token != confirmTestToken || v.Status != model.ConfirmationPending {
		t.Errorf("unexpected view: %+v", v)
	}
}

func TestResolveEndpoint_NotFound(t *testing.T) {
	h := newConfirmHandler(&memStore{rows: map[string]model.DebtConfirmation{}})
	rec := doResolve(t, h, confirmTestToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestResolveEndpoint_Expired(t *testing.T) {
	store := &memStore{rows: map[string]model.DebtConfirmation{}}
	seedConfirmation(store, model.ConfirmationPending, time.Now().UTC().Add(-time.Hour))
	h := newConfirmHandler(store)

	rec := doResolve(t, h, confirmTestToken)
	if rec.Code != http.StatusGone {
		t.Fatalf("expected 410, got %d", rec.Code)
	}
}

func TestResolveEndpoint_AlreadyProcessed(t *testing.T) {
	store := &memStore{rows: map[string]model.DebtConfirmation{}}
	seedConfirmation(store, model.ConfirmationAccepted, time.Now().UTC().Add(time.Hour))
	h := newConfirmHandler(store)

	rec := doResolve(t, h, confirmTestToken)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["status"] != model.ConfirmationAccepted {
		t.Errorf("expected recorded decision in body, got %v", body)
	}
}

func TestResolveEndpoint_StorageDown(t *testing.T) {
	store := &memStore{rows: map[string]model.DebtConfirmation{}, broken: true}
	seedConfirmation(store, model.ConfirmationPending, time.Now().UTC().Add(time.Hour))
	h := newConfirmHandler(store)

	rec := doResolve(t, h, confirmTestToken)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestDecideEndpoint_Accept(t *testing.T) {
	store := &memStore{rows: map[string]model.DebtConfirmation{}}
	seedConfirmation(store, model.ConfirmationPending, time.Now().UTC().Add(time.Hour))
	h := newConfirmHandler(store)

	rec := doDecide(t, h, `{"token":"`+confirmTestToken+`","status":"accepted"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["success"] != true {
		t.Errorf("expected success true, got %v", body)
	}
	if store.rows[confirmTestToken].Status != model.ConfirmationAccepted {
		t.Errorf("decision was not persisted")
	}
}

func TestDecideEndpoint_InvalidStatus(t *testing.T) {
	store := &memStore{rows: map[string]model.DebtConfirmation{}}
	seedConfirmation(store, model.ConfirmationPending, time.Now().UTC().Add(time.Hour))
	h := newConfirmHandler(store)

	rec := doDecide(t, h, `{"token":"`+confirmTestToken+`","status":"maybe"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if store.rows[confirmTestToken].Status != model.ConfirmationPending {
		t.Errorf("row must stay pending on an invalid decision")
	}
}

func TestDecideEndpoint_SecondDecisionConflicts(t *testing.T) {
	store := &memStore{rows: map[string]model.DebtConfirmation{}}
	seedConfirmation(store, model.ConfirmationPending, time.Now().UTC().Add(time.Hour))
	h := newConfirmHandler(store)

	if rec := doDecide(t, h, `{"token":"`+confirmTestToken+`","status":"rejected"}`); rec.Code != http.StatusOK {
		t.Fatalf("first decision: expected 200, got %d", rec.Code)
	}
	rec := doDecide(t, h, `{"token":"`+confirmTestToken+`","status":"accepted"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second decision: expected 409, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["status"] != model.ConfirmationRejected {
		t.Errorf("conflict must carry the standing decision, got %v", body)
	}
	if store.rows[confirmTestToken].Status != model.ConfirmationRejected {
		t.Errorf("first decision must stand")
	}
}

func TestDecideEndpoint_MissingTokenOrStatus(t *testing.T) {
	store := &memStore{rows: map[string]model.DebtConfirmation{}}
	seedConfirmation(store, model.ConfirmationPending, time.Now().UTC().Add(time.Hour))
	h := newConfirmHandler(store)

	// A blank or absent token is a malformed request, not a dead link.
	for _, body := range []string{
		`{"status":"accepted"}`,
		`{"token":"","status":"accepted"}`,
		`{"token":"  ","status":"accepted"}`,
		`{"token":"` + confirmTestToken + `"}`,
	} {
		rec := doDecide(t, h, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
	if store.rows[confirmTestToken].Status != model.ConfirmationPending {
		t.Errorf("row must stay pending")
	}
}

func TestDecideEndpoint_UnknownToken(t *testing.T) {
	h := newConfirmHandler(&memStore{rows: map[string]model.DebtConfirmation{}})
	rec := doDecide(t, h, `{"token":"`+confirmTestToken+`","status":"accepted"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
