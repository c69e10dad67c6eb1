package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/enum"
	"github.com/brewtab/api/internal/middleware"
	"github.com/brewtab/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// HelpRequestStore defines the database methods needed by help request handlers.
// Satisfied by *database.Queries.
type HelpRequestStore interface {
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	CreateHelpRequest(ctx context.Context, arg database.CreateHelpRequestParams) (database.HelpRequest, error)
	GetHelpRequest(ctx context.Context, id uuid.UUID) (database.HelpRequest, error)
	ListHelpRequestsByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.HelpRequest, error)
	ListPendingHelpRequests(ctx context.Context, cafeID uuid.UUID) ([]database.HelpRequest, error)
	UpdateHelpRequestStatus(ctx context.Context, arg database.UpdateHelpRequestStatusParams) (database.HelpRequest, error)
}

// HelpRequestHandler handles waiter-call endpoints.
type HelpRequestHandler struct {
	store HelpRequestStore
	hub   Broadcaster
}

// NewHelpRequestHandler creates a new HelpRequestHandler.
func NewHelpRequestHandler(store HelpRequestStore, hub Broadcaster) *HelpRequestHandler {
	return &HelpRequestHandler{store: store, hub: hub}
}

// RegisterPublicRoutes registers the customer-facing help request endpoints.
func (h *HelpRequestHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/help-requests", h.Create)
}

// RegisterStaffRoutes registers the staff help request endpoints.
// Mounted inside the cafe-scoped subrouter: /cafes/{cid}/...
func (h *HelpRequestHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/help-requests", h.List)
	r.Patch("/help-requests/{id}", h.UpdateStatus)
}

// helpRequestTransitions: pending can be acknowledged or closed directly,
// responded can only close.
var helpRequestTransitions = map[string][]string{
	enum.HelpRequestStatusPending:   {enum.HelpRequestStatusResponded, enum.HelpRequestStatusResolved},
	enum.HelpRequestStatusResponded: {enum.HelpRequestStatusResolved},
}

// --- Request / Response types ---

type createHelpRequest struct {
	CafeID  string `json:"cafe_id"`
	TableID string `json:"table_id"`
	Message string `json:"message"`
}

type updateHelpRequestStatus struct {
	Status string `json:"status"`
}

type helpRequestResponse struct {
	ID          uuid.UUID  `json:"id"`
	CafeID      uuid.UUID  `json:"cafe_id"`
	TableID     uuid.UUID  `json:"table_id"`
	TableNumber int32      `json:"table_number"`
	Status      string     `json:"status"`
	Message     *string    `json:"message"`
	RespondedBy *string    `json:"responded_by"`
	RespondedAt *time.Time `json:"responded_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toHelpRequestResponse(hr database.HelpRequest) helpRequestResponse {
	return helpRequestResponse{
		ID:          hr.ID,
		CafeID:      hr.CafeID,
		TableID:     hr.TableID,
		TableNumber: hr.TableNumber,
		Status:      hr.Status,
		Message:     textPtr(hr.Message),
		RespondedBy: textPtr(hr.RespondedBy),
		RespondedAt: timePtr(hr.RespondedAt),
		CreatedAt:   hr.CreatedAt,
	}
}

// --- Handlers ---

// Create handles POST /help-requests (public, the call-waiter button).
func (h *HelpRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createHelpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cafeID, err := uuid.Parse(req.CafeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe_id")
		return
	}
	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}

	table, err := h.store.GetTable(r.Context(), tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		log.Printf("ERROR: get table for help request: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if table.CafeID != cafeID {
		writeError(w, http.StatusBadRequest, "table does not belong to cafe")
		return
	}

	message := pgtype.Text{}
	if req.Message != "" {
		message = pgtype.Text{String: req.Message, Valid: true}
	}

	hr, err := h.store.CreateHelpRequest(r.Context(), database.CreateHelpRequestParams{
		CafeID:      cafeID,
		TableID:     tableID,
		TableNumber: table.Number,
		Message:     message,
	})
	if err != nil {
		log.Printf("ERROR: create help request: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.hub.BroadcastToCafe(cafeID, ws.NewEvent(ws.EventHelpRequest, toHelpRequestResponse(hr)))
	writeJSON(w, http.StatusCreated, toHelpRequestResponse(hr))
}

// List handles GET /cafes/{cid}/help-requests?status=pending.
func (h *HelpRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	var (
		requests []database.HelpRequest
	)
	if r.URL.Query().Get("status") == enum.HelpRequestStatusPending {
		requests, err = h.store.ListPendingHelpRequests(r.Context(), cafeID)
	} else {
		requests, err = h.store.ListHelpRequestsByCafe(r.Context(), cafeID)
	}
	if err != nil {
		log.Printf("ERROR: list help requests: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]helpRequestResponse, len(requests))
	for i, hr := range requests {
		resp[i] = toHelpRequestResponse(hr)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /cafes/{cid}/help-requests/{id}. Acknowledging
// stamps who responded and when, which also stops re-alerts. Requests from
// other cafes read as not found.
func (h *HelpRequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid help request ID")
		return
	}

	var req updateHelpRequestStatus
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !enum.IsValidHelpRequestStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	current, err := h.store.GetHelpRequest(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "help request not found")
			return
		}
		log.Printf("ERROR: get help request: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if current.CafeID != cafeID {
		writeError(w, http.StatusNotFound, "help request not found")
		return
	}

	allowed := false
	for _, s := range helpRequestTransitions[current.Status] {
		if s == req.Status {
			allowed = true
			break
		}
	}
	if !allowed {
		writeError(w, http.StatusConflict, "status transition not allowed")
		return
	}

	params := database.UpdateHelpRequestStatusParams{
		ID:     requestID,
		Status: req.Status,
	}
	if req.Status == enum.HelpRequestStatusResponded {
		if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
			params.RespondedBy = pgtype.Text{String: claims.EmployeeID.String(), Valid: true}
		}
		params.RespondedAt = pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
	}

	updated, err := h.store.UpdateHelpRequestStatus(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "help request not found")
			return
		}
		log.Printf("ERROR: update help request: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.hub.BroadcastToCafe(updated.CafeID, ws.NewEvent(ws.EventHelpRequest, toHelpRequestResponse(updated)))
	writeJSON(w, http.StatusOK, toHelpRequestResponse(updated))
}
