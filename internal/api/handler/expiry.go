package handler

import (
	"encoding/json"
	"net/http"

	"github.com/daap14/tempaccess/internal/api/middleware"
	"github.com/daap14/tempaccess/internal/api/response"
	"github.com/daap14/tempaccess/internal/expiry"
)

// ExpiryHandler serves the expiry editor of a single account.
type ExpiryHandler struct {
	accounts AccountGetter
	editor   ExpiryEditor
}

// NewExpiryHandler creates a new ExpiryHandler.
func NewExpiryHandler(accounts AccountGetter, editor ExpiryEditor) *ExpiryHandler {
	return &ExpiryHandler{accounts: accounts, editor: editor}
}

// Get handles GET /accounts/{id}/expiry and returns the re-edit form state.
func (h *ExpiryHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := accountID(w, r)
	if !ok {
		return
	}
	a, ok := fetchAccount(w, r, h.accounts, id)
	if !ok {
		return
	}

	form, err := h.editor.Form(r.Context(), a)
	if err != nil {
		response.Internal(w, "Failed to read expiry", err, requestID)
		return
	}

	response.Success(w, http.StatusOK, form, requestID)
}

// Put handles PUT /accounts/{id}/expiry. Invalid or incomplete input leaves
// the account permanent rather than failing the request.
func (h *ExpiryHandler) Put(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, ok := accountID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req expiry.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	a, ok := fetchAccount(w, r, h.accounts, id)
	if !ok {
		return
	}

	if _, err := h.editor.Submit(r.Context(), a, req); err != nil {
		response.Internal(w, "Failed to apply expiry", err, requestID)
		return
	}

	form, err := h.editor.Form(r.Context(), a)
	if err != nil {
		response.Internal(w, "Failed to read expiry", err, requestID)
		return
	}

	response.Success(w, http.StatusOK, form, requestID)
}
