package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tempaccess/internal/account"
	"github.com/daap14/tempaccess/internal/expiry"
	"github.com/daap14/tempaccess/internal/tier"
)

func makeChiRequest(method, path string, body []byte, params map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	return req, httptest.NewRecorder()
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "failed to parse response body")
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseEnvelope(t, w)["error"].(map[string]interface{})
	require.True(t, ok, "response has no error object")
	return errObj["code"].(string)
}

var registry = []tier.Tier{
	{ID: "administrator", Name: "Administrator", Position: 1},
	{ID: "editor", Name: "Editor", Position: 2},
	{ID: "subscriber", Name: "Subscriber", Position: 5},
}

func sampleAccount(id int64, tiers ...string) *account.Account {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &account.Account{ID: id, Name: "jane", Tiers: tiers, CreatedAt: now, UpdatedAt: now}
}

// --- tier repository ---

type mockTierRepo struct {
	createFn  func(ctx context.Context, t *tier.Tier) error
	getByIDFn func(ctx context.Context, id string) (*tier.Tier, error)
	listFn    func(ctx context.Context) ([]tier.Tier, error)
	deleteFn  func(ctx context.Context, id string) error
}

func (m *mockTierRepo) Create(ctx context.Context, t *tier.Tier) error {
	return m.createFn(ctx, t)
}

func (m *mockTierRepo) GetByID(ctx context.Context, id string) (*tier.Tier, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockTierRepo) List(ctx context.Context) ([]tier.Tier, error) {
	if m.listFn == nil {
		return registry, nil
	}
	return m.listFn(ctx)
}

func (m *mockTierRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

// --- account repository ---

type mockAccountRepo struct {
	createFn       func(ctx context.Context, a *account.Account) error
	getByIDFn      func(ctx context.Context, id int64) (*account.Account, error)
	findByPrefixFn func(ctx context.Context, prefix string) ([]account.Account, error)
	listFn         func(ctx context.Context) ([]account.Account, error)
	setTierFn      func(ctx context.Context, id int64, tier string) error
	setTiersFn     func(ctx context.Context, id int64, tiers []string) error
	countAllFn     func(ctx context.Context) (int, error)
}

func (m *mockAccountRepo) Create(ctx context.Context, a *account.Account) error {
	return m.createFn(ctx, a)
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockAccountRepo) FindByPrefix(ctx context.Context, prefix string) ([]account.Account, error) {
	return m.findByPrefixFn(ctx, prefix)
}

func (m *mockAccountRepo) List(ctx context.Context) ([]account.Account, error) {
	return m.listFn(ctx)
}

func (m *mockAccountRepo) SetTier(ctx context.Context, id int64, tier string) error {
	return m.setTierFn(ctx, id, tier)
}

func (m *mockAccountRepo) SetTiers(ctx context.Context, id int64, tiers []string) error {
	return m.setTiersFn(ctx, id, tiers)
}

func (m *mockAccountRepo) CountAll(ctx context.Context) (int, error) {
	return m.countAllFn(ctx)
}

// --- expiry editor ---

type mockEditor struct {
	submitFn func(ctx context.Context, acct *account.Account, req expiry.Request) (*expiry.Spec, error)
	formFn   func(ctx context.Context, acct *account.Account) (expiry.Form, error)
	statusFn func(ctx context.Context, accountID int64, tierNames map[string]string) (expiry.Status, error)
	clearFn  func(ctx context.Context, accountID int64) error

	submitted []expiry.Request
	cleared   []int64
}

func (m *mockEditor) Submit(ctx context.Context, acct *account.Account, req expiry.Request) (*expiry.Spec, error) {
	m.submitted = append(m.submitted, req)
	if m.submitFn == nil {
		return nil, nil
	}
	return m.submitFn(ctx, acct, req)
}

func (m *mockEditor) Form(ctx context.Context, acct *account.Account) (expiry.Form, error) {
	if m.formFn == nil {
		return expiry.Form{Type: expiry.TypeNone}, nil
	}
	return m.formFn(ctx, acct)
}

func (m *mockEditor) Status(ctx context.Context, accountID int64, tierNames map[string]string) (expiry.Status, error) {
	if m.statusFn == nil {
		return expiry.Status{Kind: expiry.StatusPermanent, Text: "Permanent"}, nil
	}
	return m.statusFn(ctx, accountID, tierNames)
}

func (m *mockEditor) Clear(ctx context.Context, accountID int64) error {
	m.cleared = append(m.cleared, accountID)
	if m.clearFn == nil {
		return nil
	}
	return m.clearFn(ctx, accountID)
}

func (m *mockEditor) IsProtected(tiers []string) bool {
	for _, t := range tiers {
		if t == "administrator" {
			return true
		}
	}
	return false
}

// --- key generator ---

type staticKeys struct {
	err error
}

func (k staticKeys) GenerateKey() (string, string, string, error) {
	if k.err != nil {
		return "", "", "", k.err
	}
	return "tak_rawkey-value", "tak_rawk", "$2a$hash", nil
}
