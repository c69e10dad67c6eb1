package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/brewtab/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// BillingServicer defines the service methods needed by billing handlers.
// Satisfied by *service.BillingService.
type BillingServicer interface {
	ListBillable(ctx context.Context, tableID uuid.UUID, customerEmail string) ([]service.OrderResult, error)
	Assemble(ctx context.Context, cafeID, tableID uuid.UUID, orderIDs []uuid.UUID, paymentMethod string) (*service.Bill, error)
}

// BillingHandler handles bill endpoints.
type BillingHandler struct {
	svc BillingServicer
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(svc BillingServicer) *BillingHandler {
	return &BillingHandler{svc: svc}
}

// RegisterPublicRoutes registers the customer-facing billing endpoints.
func (h *BillingHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/bills/billable", h.ListBillable)
}

// RegisterStaffRoutes registers the staff billing endpoints.
// Mounted inside the cafe-scoped subrouter: /cafes/{cid}/...
func (h *BillingHandler) RegisterStaffRoutes(r chi.Router) {
	r.Post("/bills", h.Assemble)
}

// --- Request / Response types ---

type assembleBillRequest struct {
	TableID       string   `json:"table_id"`
	OrderIDs      []string `json:"order_ids"`
	PaymentMethod string   `json:"payment_method"`
}

type billLineResponse struct {
	orderResponse
	BillNumber string `json:"bill_number"`
	Subtotal   string `json:"subtotal"`
}

type billResponse struct {
	Number        string             `json:"number"`
	PaymentMethod string             `json:"payment_method"`
	PaidAt        time.Time          `json:"paid_at"`
	Orders        []billLineResponse `json:"orders"`
	Total         string             `json:"total"`
}

func toBillResponse(b *service.Bill) billResponse {
	lines := make([]billLineResponse, len(b.Lines))
	for i, l := range b.Lines {
		lines[i] = billLineResponse{
			orderResponse: toOrderResponse(&service.OrderResult{Order: l.Order, Items: l.Items}),
			BillNumber:    l.BillNumber,
			Subtotal:      l.Subtotal.StringFixed(2),
		}
	}
	return billResponse{
		Number:        b.Number,
		PaymentMethod: b.PaymentMethod,
		PaidAt:        b.PaidAt,
		Orders:        lines,
		Total:         b.Total.StringFixed(2),
	}
}

// --- Handlers ---

// ListBillable handles GET /bills/billable?table_id=...&customer_email=...
// Customers pass their email and see only their own tab; staff omit it.
func (h *BillingHandler) ListBillable(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(r.URL.Query().Get("table_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}

	results, err := h.svc.ListBillable(r.Context(), tableID, r.URL.Query().Get("customer_email"))
	if err != nil {
		respondServiceError(w, "list billable orders", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(results))
}

// Assemble handles POST /cafes/{cid}/bills.
func (h *BillingHandler) Assemble(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	var req assembleBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tableID, err := uuid.Parse(req.TableID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table_id")
		return
	}

	orderIDs := make([]uuid.UUID, len(req.OrderIDs))
	for i, s := range req.OrderIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid order id: "+s)
			return
		}
		orderIDs[i] = id
	}

	bill, err := h.svc.Assemble(r.Context(), cafeID, tableID, orderIDs, req.PaymentMethod)
	if err != nil {
		respondServiceError(w, "assemble bill", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBillResponse(bill))
}
