package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/brewtab/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MenuStore defines the database methods needed by menu handlers.
// Satisfied by *database.Queries.
type MenuStore interface {
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (database.Category, error)
	ListCategoriesByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error)
	ListMenuItemsByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id uuid.UUID) error
}

// MenuHandler handles category and menu item endpoints.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterStaffRoutes registers the staff menu management endpoints.
// Mounted inside the cafe-scoped subrouter: /cafes/{cid}/...
func (h *MenuHandler) RegisterStaffRoutes(r chi.Router) {
	r.Post("/categories", h.CreateCategory)
	r.Get("/categories", h.ListCategories)
	r.Put("/categories/{id}", h.UpdateCategory)
	r.Delete("/categories/{id}", h.DeleteCategory)

	r.Post("/menu-items", h.CreateMenuItem)
	r.Get("/menu-items", h.ListMenuItems)
	r.Get("/menu-items/{id}", h.GetMenuItem)
	r.Put("/menu-items/{id}", h.UpdateMenuItem)
	r.Delete("/menu-items/{id}", h.DeleteMenuItem)
}

// --- Request / Response types ---

type categoryRequest struct {
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	DisplayOrder int32  `json:"display_order"`
}

type categoryResponse struct {
	ID           uuid.UUID `json:"id"`
	CafeID       uuid.UUID `json:"cafe_id"`
	Name         string    `json:"name"`
	Icon         string    `json:"icon"`
	DisplayOrder int32     `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

type menuItemRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	Available   *bool  `json:"available"`
}

type menuItemResponse struct {
	ID          uuid.UUID `json:"id"`
	CafeID      uuid.UUID `json:"cafe_id"`
	CategoryID  *string   `json:"category_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Image       *string   `json:"image"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type menuResponse struct {
	Categories []categoryResponse `json:"categories"`
	Items      []menuItemResponse `json:"items"`
}

func toCategoryResponse(c database.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		CafeID:       c.CafeID,
		Name:         c.Name,
		Icon:         c.Icon,
		DisplayOrder: c.DisplayOrder,
		CreatedAt:    c.CreatedAt,
	}
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          m.ID,
		CafeID:      m.CafeID,
		CategoryID:  uuidPtr(m.CategoryID),
		Name:        m.Name,
		Description: m.Description,
		Price:       numericString(m.Price),
		Image:       textPtr(m.Image),
		Available:   m.Available,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// parsePrice validates a non-negative money amount with at most 2 decimals.
func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errors.New("price must be >= 0")
	}
	if d.Exponent() < -2 {
		return pgtype.Numeric{}, errors.New("price has too many decimal places")
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func (req *menuItemRequest) toParams() (categoryID pgtype.UUID, price pgtype.Numeric, image pgtype.Text, available bool, err error) {
	if req.CategoryID != "" {
		id, perr := uuid.Parse(req.CategoryID)
		if perr != nil {
			err = errors.New("invalid category_id")
			return
		}
		categoryID = pgUUID(id)
	}
	price, err = parsePrice(req.Price)
	if err != nil {
		return
	}
	if req.Image != "" {
		image = pgtype.Text{String: req.Image, Valid: true}
	}
	available = true
	if req.Available != nil {
		available = *req.Available
	}
	return
}

// checkCategory verifies a referenced category exists and belongs to the
// cafe. Writes the error response and reports false when it does not.
func (h *MenuHandler) checkCategory(w http.ResponseWriter, r *http.Request, cafeID uuid.UUID, categoryID pgtype.UUID) bool {
	if !categoryID.Valid {
		return true
	}
	category, err := h.store.GetCategory(r.Context(), uuid.UUID(categoryID.Bytes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "category not found")
			return false
		}
		log.Printf("ERROR: get category: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return false
	}
	if category.CafeID != cafeID {
		writeError(w, http.StatusBadRequest, "category does not belong to cafe")
		return false
	}
	return true
}

// --- Handlers ---

// Menu handles GET /cafes/{cid}/menu (public). Only available items show.
func (h *MenuHandler) Menu(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	categories, err := h.store.ListCategoriesByCafe(r.Context(), cafeID)
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	items, err := h.store.ListMenuItemsByCafe(r.Context(), cafeID)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := menuResponse{
		Categories: make([]categoryResponse, len(categories)),
		Items:      make([]menuItemResponse, 0, len(items)),
	}
	for i, c := range categories {
		resp.Categories[i] = toCategoryResponse(c)
	}
	for _, m := range items {
		if !m.Available {
			continue
		}
		resp.Items = append(resp.Items, toMenuItemResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCategory handles POST /cafes/{cid}/categories.
func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	category, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		CafeID:       cafeID,
		Name:         req.Name,
		Icon:         req.Icon,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		log.Printf("ERROR: create category: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// ListCategories handles GET /cafes/{cid}/categories.
func (h *MenuHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	categories, err := h.store.ListCategoriesByCafe(r.Context(), cafeID)
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategoryResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateCategory handles PUT /cafes/{cid}/categories/{id}.
func (h *MenuHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	category, err := h.store.UpdateCategory(r.Context(), database.UpdateCategoryParams{
		ID:           categoryID,
		Name:         req.Name,
		Icon:         req.Icon,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		log.Printf("ERROR: update category: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// DeleteCategory handles DELETE /cafes/{cid}/categories/{id}. Items in the
// category survive with category_id reset by the FK.
func (h *MenuHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	if err := h.store.DeleteCategory(r.Context(), categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "category not found")
			return
		}
		log.Printf("ERROR: delete category: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateMenuItem handles POST /cafes/{cid}/menu-items.
func (h *MenuHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	categoryID, price, image, available, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.checkCategory(w, r, cafeID, categoryID) {
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		CafeID:      cafeID,
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Image:       image,
		Available:   available,
	})
	if err != nil {
		log.Printf("ERROR: create menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

// ListMenuItems handles GET /cafes/{cid}/menu-items (staff: includes
// unavailable items).
func (h *MenuHandler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	items, err := h.store.ListMenuItemsByCafe(r.Context(), cafeID)
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMenuItem handles GET /cafes/{cid}/menu-items/{id}.
func (h *MenuHandler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		log.Printf("ERROR: get menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// UpdateMenuItem handles PUT /cafes/{cid}/menu-items/{id}. Orders in flight
// keep the prices they were placed at; new orders see the new price.
func (h *MenuHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	var req menuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	categoryID, price, image, available, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.checkCategory(w, r, cafeID, categoryID) {
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:          itemID,
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Image:       image,
		Available:   available,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		log.Printf("ERROR: update menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

// DeleteMenuItem handles DELETE /cafes/{cid}/menu-items/{id}.
func (h *MenuHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu item ID")
		return
	}

	if err := h.store.DeleteMenuItem(r.Context(), itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		log.Printf("ERROR: delete menu item: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
