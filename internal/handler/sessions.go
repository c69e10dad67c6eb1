package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/brewtab/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SessionServicer defines the service methods needed by session handlers.
// Satisfied by *service.TableService.
type SessionServicer interface {
	OpenSession(ctx context.Context, cafeID, tableID uuid.UUID, customerName, customerEmail string) (database.TableSession, error)
	CloseSession(ctx context.Context, tableID uuid.UUID) error
	CloseSessionByID(ctx context.Context, cafeID, sessionID uuid.UUID) error
}

// SessionStore defines the database methods needed by session read handlers.
// Satisfied by *database.Queries.
type SessionStore interface {
	GetActiveSessionByTable(ctx context.Context, tableID uuid.UUID) (database.TableSession, error)
	ListActiveSessionsByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.TableSession, error)
	ListSessionsByCustomer(ctx context.Context, arg database.ListSessionsByCustomerParams) ([]database.TableSession, error)
}

// SessionHandler handles table session endpoints.
type SessionHandler struct {
	svc   SessionServicer
	store SessionStore
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(svc SessionServicer, store SessionStore) *SessionHandler {
	return &SessionHandler{svc: svc, store: store}
}

// RegisterPublicRoutes registers the customer-facing session endpoints.
func (h *SessionHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/table-sessions", h.Create)
	r.Get("/table-sessions", h.GetActive)
	r.Delete("/table-sessions", h.Close)
}

// RegisterStaffRoutes registers the staff session endpoints.
// Mounted inside the cafe-scoped subrouter: /cafes/{cid}/...
func (h *SessionHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/table-sessions", h.ListActive)
	r.Delete("/table-sessions/{id}", h.CloseByID)
}

// --- Request / Response types ---

type createSessionRequest struct {
	CafeID        string `json:"cafe_id"`
	TableID       string `json:"table_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

type sessionResponse struct {
	ID            uuid.UUID  `json:"id"`
	CafeID        uuid.UUID  `json:"cafe_id"`
	TableID       uuid.UUID  `json:"table_id"`
	TableNumber   int32      `json:"table_number"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at"`
	IsActive      bool       `json:"is_active"`
}

func toSessionResponse(s database.TableSession) sessionResponse {
	return sessionResponse{
		ID:            s.ID,
		CafeID:        s.CafeID,
		TableID:       s.TableID,
		TableNumber:   s.TableNumber,
		CustomerName:  s.CustomerName,
		CustomerEmail: s.CustomerEmail,
		StartedAt:     s.StartedAt,
		EndedAt:       timePtr(s.EndedAt),
		IsActive:      s.IsActive,
	}
}

// --- Handlers ---

// Create handles POST /table-sessions. A new diner at an occupied table
// takes the seat over: the previous session ends.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
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

	session, err := h.svc.OpenSession(r.Context(), cafeID, tableID, req.CustomerName, req.CustomerEmail)
	if err != nil {
		respondServiceError(w, "open session", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// GetActive handles GET /table-sessions?table_id=...
func (h *SessionHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(r.URL.Query().Get("table_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}

	session, err := h.store.GetActiveSessionByTable(r.Context(), tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "no active session for table")
			return
		}
		respondServiceError(w, "get active session", err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// Close handles DELETE /table-sessions?table_id=... Closing an already
// closed table succeeds.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(r.URL.Query().Get("table_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}

	if err := h.svc.CloseSession(r.Context(), tableID); err != nil {
		respondServiceError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListActive handles GET /cafes/{cid}/table-sessions (staff). With
// ?customer_email=... the cafe's full session history for that customer is
// returned instead, ended sessions included.
func (h *SessionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	var sessions []database.TableSession
	if email := r.URL.Query().Get("customer_email"); email != "" {
		sessions, err = h.store.ListSessionsByCustomer(r.Context(), database.ListSessionsByCustomerParams{
			CustomerEmail: email,
			CafeID:        cafeID,
		})
	} else {
		sessions, err = h.store.ListActiveSessionsByCafe(r.Context(), cafeID)
	}
	if err != nil {
		respondServiceError(w, "list sessions", err)
		return
	}

	resp := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = toSessionResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CloseByID handles DELETE /cafes/{cid}/table-sessions/{id} (staff).
func (h *SessionHandler) CloseByID(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}

	if err := h.svc.CloseSessionByID(r.Context(), cafeID, sessionID); err != nil {
		respondServiceError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
