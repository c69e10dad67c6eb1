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
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// EmployeeStore defines the database methods needed by employee handlers.
// Satisfied by *database.Queries.
type EmployeeStore interface {
	CreateEmployee(ctx context.Context, arg database.CreateEmployeeParams) (database.Employee, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (database.Employee, error)
	ListEmployeesByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.Employee, error)
	UpdateEmployee(ctx context.Context, arg database.UpdateEmployeeParams) (database.Employee, error)
	DeleteEmployee(ctx context.Context, id uuid.UUID) error
}

// EmployeeHandler handles staff management endpoints. All routes require the
// admin role.
type EmployeeHandler struct {
	store EmployeeStore
}

// NewEmployeeHandler creates a new EmployeeHandler.
func NewEmployeeHandler(store EmployeeStore) *EmployeeHandler {
	return &EmployeeHandler{store: store}
}

// RegisterRoutes registers employee routes on the cafe-scoped subrouter.
func (h *EmployeeHandler) RegisterRoutes(r chi.Router) {
	r.Post("/employees", h.Create)
	r.Get("/employees", h.List)
	r.Get("/employees/{id}", h.Get)
	r.Put("/employees/{id}", h.Update)
	r.Delete("/employees/{id}", h.Delete)
}

// --- Request / Response types ---

type createEmployeeRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Salary   string `json:"salary"`
}

type updateEmployeeRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Salary   string `json:"salary"`
	IsActive *bool  `json:"is_active"`
}

type employeeResponse struct {
	ID        uuid.UUID `json:"id"`
	CafeID    uuid.UUID `json:"cafe_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Salary    string    `json:"salary"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toEmployeeResponse(e database.Employee) employeeResponse {
	return employeeResponse{
		ID:        e.ID,
		CafeID:    e.CafeID,
		Name:      e.Name,
		Email:     e.Email,
		Role:      e.Role,
		Salary:    numericString(e.Salary),
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
	}
}

func parseSalary(s string) (pgtype.Numeric, error) {
	if s == "" {
		var n pgtype.Numeric
		if err := n.Scan("0"); err != nil {
			return pgtype.Numeric{}, err
		}
		return n, nil
	}
	return parsePrice(s)
}

// --- Handlers ---

// Create handles POST /cafes/{cid}/employees.
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	var req createEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	role := req.Role
	if role == "" {
		role = enum.RoleEmployee
	}
	if !enum.IsValidRole(role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}
	salary, err := parseSalary(req.Salary)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid salary")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	employee, err := h.store.CreateEmployee(r.Context(), database.CreateEmployeeParams{
		CafeID:       cafeID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		Salary:       salary,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		log.Printf("ERROR: create employee: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeResponse(employee))
}

// List handles GET /cafes/{cid}/employees.
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	cafeID, err := uuid.Parse(chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cafe ID")
		return
	}

	employees, err := h.store.ListEmployeesByCafe(r.Context(), cafeID)
	if err != nil {
		log.Printf("ERROR: list employees: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]employeeResponse, len(employees))
	for i, e := range employees {
		resp[i] = toEmployeeResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /cafes/{cid}/employees/{id}.
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	employeeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid employee ID")
		return
	}

	employee, err := h.store.GetEmployee(r.Context(), employeeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "employee not found")
			return
		}
		log.Printf("ERROR: get employee: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeResponse(employee))
}

// Update handles PUT /cafes/{cid}/employees/{id}. Role changes are not
// supported; deactivate and recreate instead.
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	employeeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid employee ID")
		return
	}

	var req updateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	salary, err := parseSalary(req.Salary)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid salary")
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	employee, err := h.store.UpdateEmployee(r.Context(), database.UpdateEmployeeParams{
		ID:       employeeID,
		Name:     req.Name,
		Email:    req.Email,
		Salary:   salary,
		IsActive: isActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "employee not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		log.Printf("ERROR: update employee: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeResponse(employee))
}

// Delete handles DELETE /cafes/{cid}/employees/{id}.
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	employeeID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid employee ID")
		return
	}

	if err := h.store.DeleteEmployee(r.Context(), employeeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "employee not found")
			return
		}
		log.Printf("ERROR: delete employee: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
