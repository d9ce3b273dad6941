package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/daap14/tempaccess/internal/api/middleware"
	"github.com/daap14/tempaccess/internal/api/response"
	"github.com/daap14/tempaccess/internal/api/validation"
	"github.com/daap14/tempaccess/internal/tier"
)

// createTierRequest is the request body for POST /tiers.
type createTierRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type tierResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	CreatedAt string `json:"createdAt"`
}

func toTierResponse(t *tier.Tier) tierResponse {
	return tierResponse{
		ID:        t.ID,
		Name:      t.Name,
		Position:  t.Position,
		CreatedAt: t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// TierHandler handles tier registry endpoints.
type TierHandler struct {
	repo     tier.Repository
	reserved []string
}

// NewTierHandler creates a new TierHandler. Reserved tiers cannot be deleted.
func NewTierHandler(repo tier.Repository, reserved ...string) *TierHandler {
	return &TierHandler{repo: repo, reserved: reserved}
}

// List handles GET /tiers.
func (h *TierHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	tiers, err := h.repo.List(r.Context())
	if err != nil {
		response.Internal(w, "Failed to list tiers", err, requestID)
		return
	}

	items := make([]tierResponse, 0, len(tiers))
	for i := range tiers {
		items = append(items, toTierResponse(&tiers[i]))
	}
	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// Create handles POST /tiers.
func (h *TierHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	fieldErrors := validation.ValidateCreateTierRequest(validation.CreateTierRequest{
		ID:       req.ID,
		Name:     req.Name,
		Position: req.Position,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	t := &tier.Tier{ID: req.ID, Name: req.Name, Position: req.Position}
	if err := h.repo.Create(r.Context(), t); err != nil {
		if errors.Is(err, tier.ErrDuplicateTier) {
			response.Err(w, http.StatusConflict, "DUPLICATE_TIER", fmt.Sprintf("A tier with id %q already exists", req.ID), requestID)
			return
		}
		response.Internal(w, "Failed to create tier", err, requestID)
		return
	}

	response.Success(w, http.StatusCreated, toTierResponse(t), requestID)
}

// Delete handles DELETE /tiers/{id}.
func (h *TierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id := chi.URLParam(r, "id")
	if slices.Contains(h.reserved, id) {
		response.Err(w, http.StatusConflict, "TIER_RESERVED", fmt.Sprintf("Tier %q is required by the expiry engine", id), requestID)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, tier.ErrTierNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Tier not found", requestID)
		case errors.Is(err, tier.ErrTierInUse):
			response.Err(w, http.StatusConflict, "TIER_IN_USE", "Cannot delete a tier held by accounts", requestID)
		default:
			response.Internal(w, "Failed to delete tier", err, requestID)
		}
		return
	}

	response.NoContent(w)
}
