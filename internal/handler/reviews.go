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
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ReviewStore defines the database methods needed by review handlers.
// Satisfied by *database.Queries.
type ReviewStore interface {
	CreateReview(ctx context.Context, arg database.CreateReviewParams) (database.Review, error)
	GetReviewByOrder(ctx context.Context, orderID uuid.UUID) (database.Review, error)
	ListReviewsByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.Review, error)
	DeleteReview(ctx context.Context, id uuid.UUID) error
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// ReviewHandler handles customer review endpoints.
type ReviewHandler struct {
	store ReviewStore
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(store ReviewStore) *ReviewHandler {
	return &ReviewHandler{store: store}
}

// RegisterPublicRoutes registers the customer-facing review endpoint.
func (h *ReviewHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/reviews", h.Create)
}

// RegisterStaffRoutes registers review routes on the cafe-scoped subrouter.
func (h *ReviewHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/reviews", h.List)
	r.Delete("/reviews/{id}", h.Delete)
}

// --- Request / Response types ---

type createReviewRequest struct {
	OrderID string `json:"order_id"`
	Rating  int32  `json:"rating"`
	Comment string `json:"comment"`
}

type reviewResponse struct {
	ID        uuid.UUID `json:"id"`
	CafeID    uuid.UUID `json:"cafe_id"`
	TableID   uuid.UUID `json:"table_id"`
	OrderID   uuid.UUID `json:"order_id"`
	Rating    int32     `json:"rating"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func toReviewResponse(rv database.Review) reviewResponse {
	return reviewResponse{
		ID:        rv.ID,
		CafeID:    rv.CafeID,
		TableID:   rv.TableID,
		OrderID:   rv.OrderID,
		Rating:    rv.Rating,
		Comment:   textPtr(rv.Comment),
		CreatedAt: rv.CreatedAt,
	}
}

// --- Handlers ---

// Create handles POST /reviews (public). One review per order, and only
// after the order is completed.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order_id")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order for review: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order.Status != enum.OrderStatusCompleted {
		writeError(w, http.StatusConflict, "order is not completed")
		return
	}

	// The unique index on order_id is the real guard; this read just gives
	// the common duplicate a clean answer without burning an insert.
	if _, err := h.store.GetReviewByOrder(r.Context(), orderID); err == nil {
		writeError(w, http.StatusConflict, "order already reviewed")
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: get review for order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	review, err := h.store.CreateReview(r.Context(), database.CreateReviewParams{
		CafeID:  order.CafeID,
		TableID: order.TableID,
		OrderID: order.ID,
		Rating:  req.Rating,
		Comment: textOrNull(req.Comment),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "order already reviewed")
			return
		}
		log.Printf("ERROR: create review: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, toReviewResponse(review))
}

// List handles GET /cafes/{cid}/reviews.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	reviews, err := h.store.ListReviewsByCafe(r.Context(), cafeID)
	if err != nil {
		log.Printf("ERROR: list reviews: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]reviewResponse, len(reviews))
	for i, rv := range reviews {
		resp[i] = toReviewResponse(rv)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /cafes/{cid}/reviews/{id}.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	reviewID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid review ID")
		return
	}

	if err := h.store.DeleteReview(r.Context(), reviewID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
		log.Printf("ERROR: delete review: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
