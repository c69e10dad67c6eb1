package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/service"
	"github.com/brewtab/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TableServicer defines the service methods needed by table handlers.
// Satisfied by *service.TableService.
type TableServicer interface {
	View(ctx context.Context, cafeID, tableID uuid.UUID) (*service.TableView, error)
	ListViews(ctx context.Context, cafeID uuid.UUID) ([]service.TableView, error)
	SetStatus(ctx context.Context, cafeID, tableID uuid.UUID, status string) (database.Table, error)
	ResetTable(ctx context.Context, cafeID, tableID uuid.UUID) (database.Table, error)
	ResetAll(ctx context.Context, cafeID uuid.UUID) (int, error)
	Seat(ctx context.Context, req service.SeatRequest) (*service.SeatResult, error)
}

// TableStore defines the database methods needed by table CRUD handlers.
// Satisfied by *database.Queries.
type TableStore interface {
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	ListTablesByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.Table, error)
	UpdateTable(ctx context.Context, arg database.UpdateTableParams) (database.Table, error)
	DeleteTable(ctx context.Context, id uuid.UUID) error
	GetCafe(ctx context.Context, id uuid.UUID) (database.Cafe, error)
}

// TableHandler handles table endpoints.
type TableHandler struct {
	svc   TableServicer
	store TableStore
	hub   Broadcaster
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(svc TableServicer, store TableStore, hub Broadcaster) *TableHandler {
	return &TableHandler{svc: svc, store: store, hub: hub}
}

// RegisterPublicRoutes registers the customer-facing table endpoints.
func (h *TableHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/tables/{id}/validate", h.Validate)
}

// RegisterStaffRoutes registers the staff table endpoints.
// Mounted inside the cafe-scoped subrouter: /cafes/{cid}/...
func (h *TableHandler) RegisterStaffRoutes(r chi.Router) {
	r.Post("/tables", h.Create)
	r.Get("/tables", h.List)
	r.Get("/tables/{id}", h.Get)
	r.Put("/tables/{id}", h.Update)
	r.Delete("/tables/{id}", h.Delete)
	r.Patch("/tables/{id}/status", h.UpdateStatus)
	r.Post("/tables/{id}/reset", h.Reset)
	r.Post("/tables/reset-all", h.ResetAll)
	r.Post("/tables/update-all-qr", h.UpdateAllQR)
	r.Post("/tables/{id}/seat", h.Seat)
}

// --- Request / Response types ---

type createTableRequest struct {
	Number   int32 `json:"number"`
	Capacity int32 `json:"capacity"`
}

type updateTableRequest struct {
	Number   int32 `json:"number"`
	Capacity int32 `json:"capacity"`
	IsActive bool  `json:"is_active"`
}

type updateTableStatusRequest struct {
	Status string `json:"status"`
}

type seatRequest struct {
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	Notes         string             `json:"notes"`
	Items         []orderLineRequest `json:"items"`
}

type tableResponse struct {
	ID        uuid.UUID `json:"id"`
	CafeID    uuid.UUID `json:"cafe_id"`
	Number    int32     `json:"number"`
	Capacity  int32     `json:"capacity"`
	IsActive  bool      `json:"is_active"`
	Status    string    `json:"status"`
	QrCode    string    `json:"qr_code"`
	CreatedAt time.Time `json:"created_at"`
}

type tableViewResponse struct {
	tableResponse
	ActiveSession *sessionResponse `json:"active_session"`
	OpenOrders    []orderResponse  `json:"open_orders"`
}

type seatResponse struct {
	Order         orderResponse   `json:"order"`
	Session       sessionResponse `json:"session"`
	OrderCreated  bool            `json:"order_created"`
	TableOccupied bool            `json:"table_occupied"`
	SessionOpened bool            `json:"session_opened"`
}

type validateTableResponse struct {
	Valid bool          `json:"valid"`
	Table tableResponse `json:"table"`
}

func toTableResponse(t database.Table) tableResponse {
	return tableResponse{
		ID:        t.ID,
		CafeID:    t.CafeID,
		Number:    t.Number,
		Capacity:  t.Capacity,
		IsActive:  t.IsActive,
		Status:    t.Status,
		QrCode:    t.QrCode,
		CreatedAt: t.CreatedAt,
	}
}

func toTableViewResponse(v service.TableView) tableViewResponse {
	resp := tableViewResponse{tableResponse: toTableResponse(v.Table)}
	resp.Status = v.Status // derived, not stored
	if v.ActiveSession != nil {
		s := toSessionResponse(*v.ActiveSession)
		resp.ActiveSession = &s
	}
	resp.OpenOrders = make([]orderResponse, len(v.OpenOrders))
	for i, o := range v.OpenOrders {
		resp.OpenOrders[i] = toOrderResponse(&service.OrderResult{Order: o})
	}
	return resp
}

// qrCodePath builds the deep-link path baked into a table's QR code.
func qrCodePath(cafeSlug string, tableID uuid.UUID) string {
	return fmt.Sprintf("/menu/%s/%s", cafeSlug, tableID)
}

// --- Handlers ---

// Create handles POST /cafes/{cid}/tables.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Number <= 0 {
		writeError(w, http.StatusBadRequest, "number must be > 0")
		return
	}
	if req.Capacity <= 0 {
		req.Capacity = 2
	}

	cafe, err := h.store.GetCafe(r.Context(), cafeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "cafe not found")
			return
		}
		log.Printf("ERROR: get cafe: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// The QR path needs the table id, which does not exist until insert.
	// Insert with a placeholder, then set the final path.
	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		CafeID:   cafeID,
		Number:   req.Number,
		Capacity: req.Capacity,
		QrCode:   "",
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "table number already exists")
			return
		}
		log.Printf("ERROR: create table: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	table, err = h.store.UpdateTable(r.Context(), database.UpdateTableParams{
		ID:       table.ID,
		Number:   table.Number,
		Capacity: table.Capacity,
		IsActive: table.IsActive,
		QrCode:   qrCodePath(cafe.Slug, table.ID),
	})
	if err != nil {
		log.Printf("ERROR: set table qr code: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

// List handles GET /cafes/{cid}/tables. Every table carries its derived
// status for the floor dashboard.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	views, err := h.svc.ListViews(r.Context(), cafeID)
	if err != nil {
		respondServiceError(w, "list tables", err)
		return
	}

	resp := make([]tableViewResponse, len(views))
	for i, v := range views {
		resp[i] = toTableViewResponse(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /cafes/{cid}/tables/{id}.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	view, err := h.svc.View(r.Context(), cafeID, tableID)
	if err != nil {
		respondServiceError(w, "get table", err)
		return
	}
	writeJSON(w, http.StatusOK, toTableViewResponse(*view))
}

// Update handles PUT /cafes/{cid}/tables/{id}. The QR path is regenerated so
// a renumbered table keeps a working deep link.
func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	var req updateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Number <= 0 {
		writeError(w, http.StatusBadRequest, "number must be > 0")
		return
	}

	cafe, err := h.store.GetCafe(r.Context(), cafeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "cafe not found")
			return
		}
		log.Printf("ERROR: get cafe: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	existing, err := h.store.GetTable(r.Context(), tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if existing.CafeID != cafeID {
		writeError(w, http.StatusNotFound, "table not found")
		return
	}

	table, err := h.store.UpdateTable(r.Context(), database.UpdateTableParams{
		ID:       tableID,
		Number:   req.Number,
		Capacity: req.Capacity,
		IsActive: req.IsActive,
		QrCode:   qrCodePath(cafe.Slug, tableID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "table number already exists")
			return
		}
		log.Printf("ERROR: update table: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Delete handles DELETE /cafes/{cid}/tables/{id}. Tables from other cafes
// read as not found.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	existing, err := h.store.GetTable(r.Context(), tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if existing.CafeID != cafeID {
		writeError(w, http.StatusNotFound, "table not found")
		return
	}

	if err := h.store.DeleteTable(r.Context(), tableID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		log.Printf("ERROR: delete table: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles PATCH /cafes/{cid}/tables/{id}/status (staff override).
func (h *TableHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	var req updateTableStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	table, err := h.svc.SetStatus(r.Context(), cafeID, tableID, req.Status)
	if err != nil {
		respondServiceError(w, "update table status", err)
		return
	}

	h.hub.BroadcastToCafe(cafeID, ws.NewEvent(ws.EventTableStatus, toTableResponse(table)))
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Reset handles POST /cafes/{cid}/tables/{id}/reset.
func (h *TableHandler) Reset(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	table, err := h.svc.ResetTable(r.Context(), cafeID, tableID)
	if err != nil {
		respondServiceError(w, "reset table", err)
		return
	}

	h.hub.BroadcastToCafe(cafeID, ws.NewEvent(ws.EventTableStatus, toTableResponse(table)))
	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// ResetAll handles POST /cafes/{cid}/tables/reset-all.
func (h *TableHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	n, err := h.svc.ResetAll(r.Context(), cafeID)
	if err != nil {
		respondServiceError(w, "reset all tables", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reset": n})
}

// UpdateAllQR handles POST /cafes/{cid}/tables/update-all-qr. Regenerates
// every table's QR deep link, for when the cafe slug changes.
func (h *TableHandler) UpdateAllQR(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	cafe, err := h.store.GetCafe(r.Context(), cafeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "cafe not found")
			return
		}
		log.Printf("ERROR: get cafe: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	tables, err := h.store.ListTablesByCafe(r.Context(), cafeID)
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	for _, t := range tables {
		if _, err := h.store.UpdateTable(r.Context(), database.UpdateTableParams{
			ID:       t.ID,
			Number:   t.Number,
			Capacity: t.Capacity,
			IsActive: t.IsActive,
			QrCode:   qrCodePath(cafe.Slug, t.ID),
		}); err != nil {
			log.Printf("ERROR: update table qr code: %v", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": len(tables)})
}

// Seat handles POST /cafes/{cid}/tables/{id}/seat: first order, occupancy,
// and session in one step for walk-ins.
func (h *TableHandler) Seat(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	var req seatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Seat(r.Context(), service.SeatRequest{
		CafeID:        cafeID,
		TableID:       tableID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Notes:         req.Notes,
		Items:         toServiceLines(req.Items),
	})
	if err != nil {
		respondServiceError(w, "seat table", err)
		return
	}

	h.hub.BroadcastToCafe(cafeID, ws.NewEvent(ws.EventOrderStatus, toOrderResponse(result.Order)))
	h.hub.BroadcastToCafe(cafeID, ws.NewEvent(ws.EventTableStatus, toTableResponse(result.Table)))
	writeJSON(w, http.StatusCreated, seatResponse{
		Order:         toOrderResponse(result.Order),
		Session:       toSessionResponse(result.Session),
		OrderCreated:  result.OrderCreated,
		TableOccupied: result.TableOccupied,
		SessionOpened: result.SessionOpened,
	})
}

// Validate handles GET /tables/{id}/validate (public, for scanned QR codes).
func (h *TableHandler) Validate(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	table, err := h.store.GetTable(r.Context(), tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		log.Printf("ERROR: validate table: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !table.IsActive {
		writeError(w, http.StatusNotFound, "table not found")
		return
	}

	writeJSON(w, http.StatusOK, validateTableResponse{Valid: true, Table: toTableResponse(table)})
}
