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
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// CafeStore defines the database methods needed by cafe handlers.
// Satisfied by *database.Queries.
type CafeStore interface {
	CreateCafe(ctx context.Context, arg database.CreateCafeParams) (database.Cafe, error)
	GetCafe(ctx context.Context, id uuid.UUID) (database.Cafe, error)
	GetCafeBySlug(ctx context.Context, slug string) (database.Cafe, error)
	ListCafes(ctx context.Context) ([]database.Cafe, error)
	UpdateCafe(ctx context.Context, arg database.UpdateCafeParams) (database.Cafe, error)
	DeleteCafe(ctx context.Context, id uuid.UUID) error
}

// CafeHandler handles tenant (cafe) endpoints.
type CafeHandler struct {
	store CafeStore
}

// NewCafeHandler creates a new CafeHandler.
func NewCafeHandler(store CafeStore) *CafeHandler {
	return &CafeHandler{store: store}
}

// RegisterPublicRoutes registers the unauthenticated cafe lookup. The menu
// page resolves a slug from the QR URL before it knows any cafe id.
func (h *CafeHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/cafes/by-slug/{slug}", h.GetBySlug)
}

// RegisterAdminRoutes registers tenant list/create routes, admin only.
func (h *CafeHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/cafes", h.Create)
	r.Get("/cafes", h.List)
}

// --- Request / Response types ---

type cafeRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Currency string `json:"currency"`
	IsActive *bool  `json:"is_active"`
}

type cafeResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Address   string    `json:"address"`
	Phone     *string   `json:"phone"`
	Email     *string   `json:"email"`
	Currency  string    `json:"currency"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toCafeResponse(c database.Cafe) cafeResponse {
	return cafeResponse{
		ID:        c.ID,
		Name:      c.Name,
		Slug:      c.Slug,
		Address:   c.Address,
		Phone:     textPtr(c.Phone),
		Email:     textPtr(c.Email),
		Currency:  c.Currency,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt,
	}
}

func (req *cafeRequest) currencyOrDefault() string {
	if req.Currency == "" {
		return enum.CurrencyUSD
	}
	return req.Currency
}

// --- Handlers ---

// Create handles POST /cafes. The creating admin becomes the cafe owner.
func (h *CafeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req cafeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "name and slug are required")
		return
	}

	adminID := pgtype.UUID{}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		adminID = pgUUID(claims.EmployeeID)
	}

	cafe, err := h.store.CreateCafe(r.Context(), database.CreateCafeParams{
		Name:     req.Name,
		Slug:     req.Slug,
		Address:  req.Address,
		Phone:    textOrNull(req.Phone),
		Email:    textOrNull(req.Email),
		Currency: req.currencyOrDefault(),
		AdminID:  adminID,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "slug already in use")
			return
		}
		log.Printf("ERROR: create cafe: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, toCafeResponse(cafe))
}

// List handles GET /cafes.
func (h *CafeHandler) List(w http.ResponseWriter, r *http.Request) {
	cafes, err := h.store.ListCafes(r.Context())
	if err != nil {
		log.Printf("ERROR: list cafes: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]cafeResponse, len(cafes))
	for i, c := range cafes {
		resp[i] = toCafeResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /cafes/{cid}.
func (h *CafeHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, toCafeResponse(cafe))
}

// GetBySlug handles GET /cafes/by-slug/{slug} (public). Inactive cafes 404.
func (h *CafeHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "slug is required")
		return
	}

	cafe, err := h.store.GetCafeBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "cafe not found")
			return
		}
		log.Printf("ERROR: get cafe by slug: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !cafe.IsActive {
		writeError(w, http.StatusNotFound, "cafe not found")
		return
	}
	writeJSON(w, http.StatusOK, toCafeResponse(cafe))
}

// Update handles PUT /cafes/{cid}.
func (h *CafeHandler) Update(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	var req cafeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "name and slug are required")
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	cafe, err := h.store.UpdateCafe(r.Context(), database.UpdateCafeParams{
		ID:       cafeID,
		Name:     req.Name,
		Slug:     req.Slug,
		Address:  req.Address,
		Phone:    textOrNull(req.Phone),
		Email:    textOrNull(req.Email),
		Currency: req.currencyOrDefault(),
		IsActive: isActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "cafe not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "slug already in use")
			return
		}
		log.Printf("ERROR: update cafe: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toCafeResponse(cafe))
}

// Delete handles DELETE /cafes/{cid}.
func (h *CafeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	if err := h.store.DeleteCafe(r.Context(), cafeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "cafe not found")
			return
		}
		log.Printf("ERROR: delete cafe: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
