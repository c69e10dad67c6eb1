package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/enum"
	"github.com/brewtab/api/internal/service"
	"github.com/brewtab/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Create(ctx context.Context, req service.CreateOrderRequest) (*service.OrderResult, error)
	Get(ctx context.Context, orderID uuid.UUID) (*service.OrderResult, error)
	AddItems(ctx context.Context, orderID uuid.UUID, items []service.OrderLineRequest) (*service.OrderResult, error)
	RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*service.OrderResult, error)
	AdvanceStatus(ctx context.Context, cafeID, orderID uuid.UUID, next string) (database.Order, error)
	Delete(ctx context.Context, cafeID, orderID uuid.UUID) error
	ListActive(ctx context.Context, cafeID uuid.UUID) ([]service.OrderResult, error)
	ListAll(ctx context.Context, cafeID uuid.UUID) ([]service.OrderResult, error)
	ListByTable(ctx context.Context, cafeID, tableID uuid.UUID) ([]service.OrderResult, error)
	ListForCustomer(ctx context.Context, customerEmail string, tableID uuid.UUID) ([]service.OrderResult, error)
}

// Broadcaster pushes realtime events to staff dashboards.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToCafe(cafeID uuid.UUID, event ws.Event)
}

// ReadyMarker records ready alerts the handler has already pushed, so the
// alert sweep does not announce the same order again. Satisfied by
// *alert.Tracker.
type ReadyMarker interface {
	MarkReady(cafeID, orderID uuid.UUID)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	hub   Broadcaster
	ready ReadyMarker
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, hub Broadcaster, ready ReadyMarker) *OrderHandler {
	return &OrderHandler{svc: svc, hub: hub, ready: ready}
}

// RegisterPublicRoutes registers the customer-facing order endpoints.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders", h.ListForCustomer)
	r.Get("/orders/{id}", h.Get)
	r.Post("/orders/{id}/items", h.AddItems)
	r.Delete("/orders/{id}/items/{itemId}", h.RemoveItem)
}

// RegisterStaffRoutes registers the staff order endpoints.
// Mounted inside the cafe-scoped subrouter: /cafes/{cid}/...
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/orders", h.ListActive)
	r.Get("/tables/{tableId}/orders", h.ListByTable)
}

// RegisterStatusRoute registers the staff status transition endpoint.
func (h *OrderHandler) RegisterStatusRoute(r chi.Router) {
	r.Patch("/orders/{id}/status", h.UpdateStatus)
}

// RegisterAdminRoutes registers the admin-only order endpoints.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Delete("/orders/{id}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CafeID        string                   `json:"cafe_id"`
	TableID       string                   `json:"table_id"`
	CustomerName  string                   `json:"customer_name"`
	CustomerEmail string                   `json:"customer_email"`
	Notes         string                   `json:"notes"`
	Items         []orderLineRequest       `json:"items"`
}

// orderLineRequest is what customers send. Any client-side price is ignored;
// the kitchen charges menu prices.
type orderLineRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int32  `json:"quantity"`
	Notes      string `json:"notes"`
}

type addItemsRequest struct {
	Items []orderLineRequest `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	CafeID        uuid.UUID           `json:"cafe_id"`
	TableID       uuid.UUID           `json:"table_id"`
	TableNumber   int32               `json:"table_number"`
	Status        string              `json:"status"`
	Total         string              `json:"total"`
	CustomerName  string              `json:"customer_name"`
	CustomerEmail string              `json:"customer_email"`
	Notes         *string             `json:"notes"`
	PaymentMethod *string             `json:"payment_method"`
	PaidAt        *time.Time          `json:"paid_at"`
	BillNumber    *string             `json:"bill_number"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Items         []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ID           uuid.UUID `json:"id"`
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	MenuItemName string    `json:"menu_item_name"`
	Price        string    `json:"price"`
	Quantity     int32     `json:"quantity"`
	Notes        *string   `json:"notes"`
}

func toOrderResponse(res *service.OrderResult) orderResponse {
	o := res.Order
	items := make([]orderItemResponse, len(res.Items))
	for i, item := range res.Items {
		items[i] = orderItemResponse{
			ID:           item.ID,
			MenuItemID:   item.MenuItemID,
			MenuItemName: item.MenuItemName,
			Price:        numericString(item.Price),
			Quantity:     item.Quantity,
			Notes:        textPtr(item.Notes),
		}
	}
	return orderResponse{
		ID:            o.ID,
		CafeID:        o.CafeID,
		TableID:       o.TableID,
		TableNumber:   o.TableNumber,
		Status:        o.Status,
		Total:         numericString(o.Total),
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		Notes:         textPtr(o.Notes),
		PaymentMethod: textPtr(o.PaymentMethod),
		PaidAt:        timePtr(o.PaidAt),
		BillNumber:    textPtr(o.BillNumber),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Items:         items,
	}
}

func toOrderResponses(results []service.OrderResult) []orderResponse {
	out := make([]orderResponse, len(results))
	for i := range results {
		out[i] = toOrderResponse(&results[i])
	}
	return out
}

func toServiceLines(items []orderLineRequest) []service.OrderLineRequest {
	lines := make([]service.OrderLineRequest, len(items))
	for i, item := range items {
		lines[i] = service.OrderLineRequest{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Notes:      item.Notes,
		}
	}
	return lines
}

// --- Handlers ---

// Create handles POST /orders (public, from the customer menu page).
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
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

	result, err := h.svc.Create(r.Context(), service.CreateOrderRequest{
		CafeID:        cafeID,
		TableID:       tableID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Notes:         req.Notes,
		Items:         toServiceLines(req.Items),
	})
	if err != nil {
		respondServiceError(w, "create order", err)
		return
	}

	h.hub.BroadcastToCafe(cafeID, ws.NewEvent(ws.EventOrderStatus, toOrderResponse(result)))
	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	result, err := h.svc.Get(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// ListForCustomer handles GET /orders?table_id=...&customer_email=...
// A customer sees only their own orders on the table they are seated at.
func (h *OrderHandler) ListForCustomer(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(r.URL.Query().Get("table_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}
	email := r.URL.Query().Get("customer_email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "customer_email is required")
		return
	}

	results, err := h.svc.ListForCustomer(r.Context(), email, tableID)
	if err != nil {
		respondServiceError(w, "list customer orders", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(results))
}

// AddItems handles POST /orders/{id}/items.
func (h *OrderHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req addItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.AddItems(r.Context(), orderID, toServiceLines(req.Items))
	if err != nil {
		respondServiceError(w, "add order items", err)
		return
	}

	h.hub.BroadcastToCafe(result.Order.CafeID, ws.NewEvent(ws.EventOrderStatus, toOrderResponse(result)))
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// RemoveItem handles DELETE /orders/{id}/items/{itemId}.
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	result, err := h.svc.RemoveItem(r.Context(), orderID, itemID)
	if err != nil {
		respondServiceError(w, "remove order item", err)
		return
	}

	h.hub.BroadcastToCafe(result.Order.CafeID, ws.NewEvent(ws.EventOrderStatus, toOrderResponse(result)))
	writeJSON(w, http.StatusOK, toOrderResponse(result))
}

// UpdateStatus handles PATCH /cafes/{cid}/orders/{id}/status (staff).
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	order, err := h.svc.AdvanceStatus(r.Context(), cafeID, orderID, req.Status)
	if err != nil {
		respondServiceError(w, "update order status", err)
		return
	}

	eventType := ws.EventOrderStatus
	if order.Status == enum.OrderStatusReady {
		eventType = ws.EventOrderReady
		h.ready.MarkReady(order.CafeID, order.ID)
	}
	h.hub.BroadcastToCafe(order.CafeID, ws.NewEvent(eventType, toOrderResponse(&service.OrderResult{Order: order})))

	writeJSON(w, http.StatusOK, toOrderResponse(&service.OrderResult{Order: order}))
}

// ListActive handles GET /cafes/{cid}/orders (staff dashboard). With
// ?all=true the full history is returned, terminal orders included.
func (h *OrderHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	var results []service.OrderResult
	if r.URL.Query().Get("all") == "true" {
		results, err = h.svc.ListAll(r.Context(), cafeID)
	} else {
		results, err = h.svc.ListActive(r.Context(), cafeID)
	}
	if err != nil {
		respondServiceError(w, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(results))
}

// ListByTable handles GET /cafes/{cid}/tables/{tableId}/orders (staff).
func (h *OrderHandler) ListByTable(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}
	tableID, err := uuid.Parse(chi.URLParam(r, "tableId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	results, err := h.svc.ListByTable(r.Context(), cafeID, tableID)
	if err != nil {
		respondServiceError(w, "list table orders", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(results))
}

// Delete handles DELETE /cafes/{cid}/orders/{id} (admin).
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	if err := h.svc.Delete(r.Context(), cafeID, orderID); err != nil {
		respondServiceError(w, "delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
