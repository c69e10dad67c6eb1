package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/enum"
	"github.com/brewtab/api/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type mockCafeStore struct {
	createFn    func(ctx context.Context, arg database.CreateCafeParams) (database.Cafe, error)
	getFn       func(ctx context.Context, id uuid.UUID) (database.Cafe, error)
	getBySlugFn func(ctx context.Context, slug string) (database.Cafe, error)
	listFn      func(ctx context.Context) ([]database.Cafe, error)
	updateFn    func(ctx context.Context, arg database.UpdateCafeParams) (database.Cafe, error)
	deleteFn    func(ctx context.Context, id uuid.UUID) error
}

func (m *mockCafeStore) CreateCafe(ctx context.Context, arg database.CreateCafeParams) (database.Cafe, error) {
	if m.createFn != nil {
		return m.createFn(ctx, arg)
	}
	return database.Cafe{}, pgx.ErrNoRows
}

func (m *mockCafeStore) GetCafe(ctx context.Context, id uuid.UUID) (database.Cafe, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return database.Cafe{}, pgx.ErrNoRows
}

func (m *mockCafeStore) GetCafeBySlug(ctx context.Context, slug string) (database.Cafe, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slug)
	}
	return database.Cafe{}, pgx.ErrNoRows
}

func (m *mockCafeStore) ListCafes(ctx context.Context) ([]database.Cafe, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockCafeStore) UpdateCafe(ctx context.Context, arg database.UpdateCafeParams) (database.Cafe, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, arg)
	}
	return database.Cafe{}, pgx.ErrNoRows
}

func (m *mockCafeStore) DeleteCafe(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return pgx.ErrNoRows
}

func sampleCafe(slug string) database.Cafe {
	return database.Cafe{
		ID:        uuid.New(),
		Name:      "Corner Brew",
		Slug:      slug,
		Address:   "12 Bean St",
		Currency:  enum.CurrencyUSD,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}

func newCafeRouter(store handler.CafeStore) chi.Router {
	h := handler.NewCafeHandler(store)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	h.RegisterAdminRoutes(r)
	r.Route("/cafes/{cid}", func(sr chi.Router) {
		sr.Get("/", h.Get)
		sr.Put("/", h.Update)
		sr.Delete("/", h.Delete)
	})
	return r
}

func TestCreateCafe_Success(t *testing.T) {
	store := &mockCafeStore{
		createFn: func(ctx context.Context, arg database.CreateCafeParams) (database.Cafe, error) {
			if arg.Currency != enum.CurrencyUSD {
				t.Errorf("currency: got %q, want default USD", arg.Currency)
			}
			cafe := sampleCafe(arg.Slug)
			cafe.Name = arg.Name
			return cafe, nil
		},
	}
	r := newCafeRouter(store)

	rr := postJSON(t, r, "/cafes", map[string]interface{}{
		"name": "Corner Brew",
		"slug": "corner-brew",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["slug"] != "corner-brew" {
		t.Errorf("slug: got %v", resp["slug"])
	}
}

func TestCreateCafe_DuplicateSlug(t *testing.T) {
	store := &mockCafeStore{
		createFn: func(ctx context.Context, arg database.CreateCafeParams) (database.Cafe, error) {
			return database.Cafe{}, &pgconn.PgError{Code: "23505"}
		},
	}
	r := newCafeRouter(store)

	rr := postJSON(t, r, "/cafes", map[string]interface{}{
		"name": "Corner Brew",
		"slug": "corner-brew",
	})

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCreateCafe_MissingSlug(t *testing.T) {
	r := newCafeRouter(&mockCafeStore{})

	rr := postJSON(t, r, "/cafes", map[string]interface{}{"name": "Corner Brew"})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetCafeBySlug_Active(t *testing.T) {
	cafe := sampleCafe("corner-brew")
	store := &mockCafeStore{
		getBySlugFn: func(ctx context.Context, slug string) (database.Cafe, error) {
			if slug != "corner-brew" {
				t.Errorf("slug: got %q", slug)
			}
			return cafe, nil
		},
	}
	r := newCafeRouter(store)

	rr := doRequest(t, r, "GET", "/cafes/by-slug/corner-brew", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["id"] != cafe.ID.String() {
		t.Errorf("id: got %v", resp["id"])
	}
}

func TestGetCafeBySlug_InactiveHidden(t *testing.T) {
	cafe := sampleCafe("corner-brew")
	cafe.IsActive = false
	store := &mockCafeStore{
		getBySlugFn: func(ctx context.Context, slug string) (database.Cafe, error) {
			return cafe, nil
		},
	}
	r := newCafeRouter(store)

	rr := doRequest(t, r, "GET", "/cafes/by-slug/corner-brew", nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUpdateCafe_NotFound(t *testing.T) {
	r := newCafeRouter(&mockCafeStore{})

	rr := doRequest(t, r, "PUT", "/cafes/"+uuid.New().String(), map[string]interface{}{
		"name": "Corner Brew",
		"slug": "corner-brew",
	})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDeleteCafe_Success(t *testing.T) {
	store := &mockCafeStore{
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			return nil
		},
	}
	r := newCafeRouter(store)

	rr := doRequest(t, r, "DELETE", "/cafes/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestListCafes(t *testing.T) {
	store := &mockCafeStore{
		listFn: func(ctx context.Context) ([]database.Cafe, error) {
			return []database.Cafe{sampleCafe("a"), sampleCafe("b")}, nil
		},
	}
	r := newCafeRouter(store)

	rr := doRequest(t, r, "GET", "/cafes", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if list := decodeList(t, rr); len(list) != 2 {
		t.Errorf("expected 2 cafes, got %d", len(list))
	}
}
