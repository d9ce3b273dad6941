package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/daap14/tempaccess/internal/account"
	"github.com/daap14/tempaccess/internal/api/middleware"
	"github.com/daap14/tempaccess/internal/api/response"
	"github.com/daap14/tempaccess/internal/api/validation"
	"github.com/daap14/tempaccess/internal/expiry"
	"github.com/daap14/tempaccess/internal/tier"
)

// ExpiryEditor reads and changes the expiry of accounts.
type ExpiryEditor interface {
	Submit(ctx context.Context, acct *account.Account, req expiry.Request) (*expiry.Spec, error)
	Form(ctx context.Context, acct *account.Account) (expiry.Form, error)
	Status(ctx context.Context, accountID int64, tierNames map[string]string) (expiry.Status, error)
	Clear(ctx context.Context, accountID int64) error
	IsProtected(tiers []string) bool
}

// TierLister enumerates the tier registry.
type TierLister interface {
	List(ctx context.Context) ([]tier.Tier, error)
}

// KeyGenerator issues API keys for new accounts.
type KeyGenerator interface {
	GenerateKey() (rawKey, prefix, hash string, err error)
}

// createAccountRequest is the request body for POST /accounts.
type createAccountRequest struct {
	Name   string          `json:"name"`
	Tiers  []string        `json:"tiers"`
	Expiry *expiry.Request `json:"expiry"`
}

// setTiersRequest is the request body for PUT /accounts/{id}/tiers.
type setTiersRequest struct {
	Tiers []string `json:"tiers"`
}

type accountResponse struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Tiers     []string      `json:"tiers"`
	Expiry    expiry.Status `json:"expiry"`
	CreatedAt string        `json:"createdAt"`
	UpdatedAt string        `json:"updatedAt"`
}

type createAccountResponse struct {
	accountResponse
	APIKey   string   `json:"apiKey"`
	Warnings []string `json:"warnings,omitempty"`
}

func toAccountResponse(a *account.Account, status expiry.Status) accountResponse {
	tiers := a.Tiers
	if tiers == nil {
		tiers = []string{}
	}
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Tiers:     tiers,
		Expiry:    status,
		CreatedAt: a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt: a.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// AccountHandler handles account endpoints.
type AccountHandler struct {
	accounts account.Repository
	tiers    TierLister
	keys     KeyGenerator
	editor   ExpiryEditor
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts account.Repository, tiers TierLister, keys KeyGenerator, editor ExpiryEditor) *AccountHandler {
	return &AccountHandler{accounts: accounts, tiers: tiers, keys: keys, editor: editor}
}

// List handles GET /accounts. Each account carries its expiry status.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	names, err := h.tierNames(r.Context())
	if err != nil {
		response.Internal(w, "Failed to list accounts", err, requestID)
		return
	}

	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		response.Internal(w, "Failed to list accounts", err, requestID)
		return
	}

	items := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		status, err := h.editor.Status(r.Context(), accounts[i].ID, names)
		if err != nil {
			response.Internal(w, "Failed to list accounts", err, requestID)
			return
		}
		items = append(items, toAccountResponse(&accounts[i], status))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Create handles POST /accounts. The API key is returned once and never stored in clear.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	fieldErrors := validation.ValidateCreateAccountRequest(validation.CreateAccountRequest{
		Name:  req.Name,
		Tiers: req.Tiers,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	names, err := h.tierNames(r.Context())
	if err != nil {
		response.Internal(w, "Failed to create account", err, requestID)
		return
	}
	if unknown := unknownTiers(req.Tiers, names); len(unknown) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", unknown, requestID)
		return
	}

	rawKey, prefix, hash, err := h.keys.GenerateKey()
	if err != nil {
		response.Internal(w, "Failed to create account", err, requestID)
		return
	}

	a := &account.Account{
		Name:         req.Name,
		Tiers:        req.Tiers,
		APIKeyPrefix: prefix,
		APIKeyHash:   hash,
	}
	if err := h.accounts.Create(r.Context(), a); err != nil {
		switch {
		case errors.Is(err, account.ErrDuplicateName):
			response.Err(w, http.StatusConflict, "DUPLICATE_NAME", fmt.Sprintf("An account named %q already exists", req.Name), requestID)
		case errors.Is(err, account.ErrUnknownTier):
			response.Err(w, http.StatusBadRequest, "UNKNOWN_TIER", "One or more tiers do not exist", requestID)
		default:
			response.Internal(w, "Failed to create account", err, requestID)
		}
		return
	}

	resp := createAccountResponse{APIKey: rawKey}
	if req.Expiry != nil {
		if _, err := h.editor.Submit(r.Context(), a, *req.Expiry); err != nil {
			slog.Error("accounts: failed to apply expiry to new account", "accountId", a.ID, "error", err, "requestId", requestID)
			resp.Warnings = append(resp.Warnings, "expiry could not be scheduled; the account is permanent")
		}
	}

	status, err := h.editor.Status(r.Context(), a.ID, names)
	if err != nil {
		slog.Error("accounts: failed to read expiry of new account", "accountId", a.ID, "error", err, "requestId", requestID)
		status = expiry.Status{}
	}
	resp.accountResponse = toAccountResponse(a, status)

	response.Success(w, http.StatusCreated, resp, requestID)
}

// GetByID handles GET /accounts/{id}.
func (h *AccountHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := accountID(w, r)
	if !ok {
		return
	}

	a, ok := fetchAccount(w, r, h.accounts, id)
	if !ok {
		return
	}

	names, err := h.tierNames(r.Context())
	if err != nil {
		response.Internal(w, "Failed to get account", err, requestID)
		return
	}
	status, err := h.editor.Status(r.Context(), a.ID, names)
	if err != nil {
		response.Internal(w, "Failed to get account", err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toAccountResponse(a, status), requestID)
}

// SetTiers handles PUT /accounts/{id}/tiers. Promoting an account to a
// protected tier removes its expiry and pending fire-event.
func (h *AccountHandler) SetTiers(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := accountID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req setTiersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	if fieldErrors := validation.ValidateSetTiersRequest(validation.SetTiersRequest{Tiers: req.Tiers}); len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	names, err := h.tierNames(r.Context())
	if err != nil {
		response.Internal(w, "Failed to update tiers", err, requestID)
		return
	}
	if unknown := unknownTiers(req.Tiers, names); len(unknown) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", unknown, requestID)
		return
	}

	if err := h.accounts.SetTiers(r.Context(), id, req.Tiers); err != nil {
		switch {
		case errors.Is(err, account.ErrAccountNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Account not found", requestID)
		case errors.Is(err, account.ErrUnknownTier):
			response.Err(w, http.StatusBadRequest, "UNKNOWN_TIER", "One or more tiers do not exist", requestID)
		default:
			response.Internal(w, "Failed to update tiers", err, requestID)
		}
		return
	}

	if h.editor.IsProtected(req.Tiers) {
		if err := h.editor.Clear(r.Context(), id); err != nil {
			response.Internal(w, "Failed to remove expiry of promoted account", err, requestID)
			return
		}
	}

	a, ok := fetchAccount(w, r, h.accounts, id)
	if !ok {
		return
	}
	status, err := h.editor.Status(r.Context(), id, names)
	if err != nil {
		response.Internal(w, "Failed to update tiers", err, requestID)
		return
	}

	response.Success(w, http.StatusOK, toAccountResponse(a, status), requestID)
}

func (h *AccountHandler) tierNames(ctx context.Context) (map[string]string, error) {
	tiers, err := h.tiers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tiers: %w", err)
	}
	return tier.Names(tiers), nil
}

// AccountGetter loads a single account.
type AccountGetter interface {
	GetByID(ctx context.Context, id int64) (*account.Account, error)
}

func fetchAccount(w http.ResponseWriter, r *http.Request, accounts AccountGetter, id int64) (*account.Account, bool) {
	requestID := middleware.GetRequestID(r.Context())

	a, err := accounts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Account not found", requestID)
			return nil, false
		}
		response.Internal(w, "Failed to get account", err, requestID)
		return nil, false
	}
	return a, true
}

func accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a positive integer", middleware.GetRequestID(r.Context()))
		return 0, false
	}
	return id, true
}

func unknownTiers(ids []string, names map[string]string) []validation.FieldError {
	var errs []validation.FieldError
	for i, id := range ids {
		if _, ok := names[id]; !ok {
			errs = append(errs, validation.FieldError{
				Field:   fmt.Sprintf("tiers[%d]", i),
				Message: fmt.Sprintf("tier %q does not exist", id),
			})
		}
	}
	return errs
}
