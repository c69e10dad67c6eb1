package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/enum"
	"github.com/brewtab/api/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type mockReviewStore struct {
	createFn     func(ctx context.Context, arg database.CreateReviewParams) (database.Review, error)
	listFn       func(ctx context.Context, cafeID uuid.UUID) ([]database.Review, error)
	deleteFn     func(ctx context.Context, id uuid.UUID) error
	getOrderFn   func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getByOrderFn func(ctx context.Context, orderID uuid.UUID) (database.Review, error)
}

func (m *mockReviewStore) CreateReview(ctx context.Context, arg database.CreateReviewParams) (database.Review, error) {
	if m.createFn != nil {
		return m.createFn(ctx, arg)
	}
	return database.Review{}, pgx.ErrNoRows
}

func (m *mockReviewStore) ListReviewsByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.Review, error) {
	if m.listFn != nil {
		return m.listFn(ctx, cafeID)
	}
	return nil, nil
}

func (m *mockReviewStore) DeleteReview(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return pgx.ErrNoRows
}

func (m *mockReviewStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	if m.getOrderFn != nil {
		return m.getOrderFn(ctx, id)
	}
	return database.Order{}, pgx.ErrNoRows
}

func (m *mockReviewStore) GetReviewByOrder(ctx context.Context, orderID uuid.UUID) (database.Review, error) {
	if m.getByOrderFn != nil {
		return m.getByOrderFn(ctx, orderID)
	}
	return database.Review{}, pgx.ErrNoRows
}

func newReviewRouter(store handler.ReviewStore) chi.Router {
	h := handler.NewReviewHandler(store)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Route("/cafes/{cid}", h.RegisterStaffRoutes)
	return r
}

func TestCreateReview_Success(t *testing.T) {
	order := sampleOrder(t, enum.OrderStatusCompleted)
	store := &mockReviewStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return order, nil
		},
		createFn: func(ctx context.Context, arg database.CreateReviewParams) (database.Review, error) {
			if arg.CafeID != order.CafeID || arg.TableID != order.TableID {
				t.Error("review not linked to order's cafe and table")
			}
			return database.Review{
				ID: uuid.New(), CafeID: arg.CafeID, TableID: arg.TableID,
				OrderID: arg.OrderID, Rating: arg.Rating, Comment: arg.Comment,
			}, nil
		},
	}
	r := newReviewRouter(store)

	rr := postJSON(t, r, "/reviews", map[string]interface{}{
		"order_id": order.ID.String(),
		"rating":   5,
		"comment":  "great flat white",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["rating"] != float64(5) {
		t.Errorf("rating: got %v", resp["rating"])
	}
	if resp["comment"] != "great flat white" {
		t.Errorf("comment: got %v", resp["comment"])
	}
}

func TestCreateReview_RatingOutOfRange(t *testing.T) {
	r := newReviewRouter(&mockReviewStore{})

	for _, rating := range []int{0, 6, -1} {
		rr := postJSON(t, r, "/reviews", map[string]interface{}{
			"order_id": uuid.New().String(),
			"rating":   rating,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("rating %d: got %d, want %d", rating, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestCreateReview_OrderNotCompleted(t *testing.T) {
	order := sampleOrder(t, enum.OrderStatusPreparing)
	store := &mockReviewStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return order, nil
		},
	}
	r := newReviewRouter(store)

	rr := postJSON(t, r, "/reviews", map[string]interface{}{
		"order_id": order.ID.String(),
		"rating":   4,
	})

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCreateReview_SecondReviewRejected(t *testing.T) {
	order := sampleOrder(t, enum.OrderStatusCompleted)
	store := &mockReviewStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return order, nil
		},
		createFn: func(ctx context.Context, arg database.CreateReviewParams) (database.Review, error) {
			return database.Review{}, &pgconn.PgError{Code: "23505"}
		},
	}
	r := newReviewRouter(store)

	rr := postJSON(t, r, "/reviews", map[string]interface{}{
		"order_id": order.ID.String(),
		"rating":   4,
	})

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCreateReview_DuplicateCaughtBeforeInsert(t *testing.T) {
	order := sampleOrder(t, enum.OrderStatusCompleted)
	store := &mockReviewStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return order, nil
		},
		getByOrderFn: func(ctx context.Context, orderID uuid.UUID) (database.Review, error) {
			return database.Review{ID: uuid.New(), OrderID: orderID, Rating: 5}, nil
		},
		createFn: func(ctx context.Context, arg database.CreateReviewParams) (database.Review, error) {
			t.Fatal("duplicate review must not reach the insert")
			return database.Review{}, nil
		},
	}
	r := newReviewRouter(store)

	rr := postJSON(t, r, "/reviews", map[string]interface{}{
		"order_id": order.ID.String(),
		"rating":   4,
	})

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCreateReview_UnknownOrder(t *testing.T) {
	r := newReviewRouter(&mockReviewStore{})

	rr := postJSON(t, r, "/reviews", map[string]interface{}{
		"order_id": uuid.New().String(),
		"rating":   4,
	})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestListReviews(t *testing.T) {
	cafeID := uuid.New()
	store := &mockReviewStore{
		listFn: func(ctx context.Context, cid uuid.UUID) ([]database.Review, error) {
			return []database.Review{
				{ID: uuid.New(), CafeID: cid, Rating: 5},
				{ID: uuid.New(), CafeID: cid, Rating: 3},
			}, nil
		},
	}
	r := newReviewRouter(store)

	rr := doRequest(t, r, "GET", "/cafes/"+cafeID.String()+"/reviews", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if list := decodeList(t, rr); len(list) != 2 {
		t.Errorf("expected 2 reviews, got %d", len(list))
	}
}

func TestDeleteReview_NotFound(t *testing.T) {
	r := newReviewRouter(&mockReviewStore{})

	rr := doRequest(t, r, "DELETE", "/cafes/"+uuid.New().String()+"/reviews/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
