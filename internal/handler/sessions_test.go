package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/handler"
	"github.com/brewtab/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockSessionService struct {
	openFn      func(ctx context.Context, cafeID, tableID uuid.UUID, name, email string) (database.TableSession, error)
	closeFn     func(ctx context.Context, tableID uuid.UUID) error
	closeByIDFn func(ctx context.Context, cafeID, sessionID uuid.UUID) error
}

func (m *mockSessionService) OpenSession(ctx context.Context, cafeID, tableID uuid.UUID, name, email string) (database.TableSession, error) {
	if m.openFn != nil {
		return m.openFn(ctx, cafeID, tableID, name, email)
	}
	return database.TableSession{}, service.ErrTableNotFound
}

func (m *mockSessionService) CloseSession(ctx context.Context, tableID uuid.UUID) error {
	if m.closeFn != nil {
		return m.closeFn(ctx, tableID)
	}
	return nil
}

func (m *mockSessionService) CloseSessionByID(ctx context.Context, cafeID, sessionID uuid.UUID) error {
	if m.closeByIDFn != nil {
		return m.closeByIDFn(ctx, cafeID, sessionID)
	}
	return nil
}

type mockSessionStore struct {
	getActiveFn      func(ctx context.Context, tableID uuid.UUID) (database.TableSession, error)
	listActiveFn     func(ctx context.Context, cafeID uuid.UUID) ([]database.TableSession, error)
	listByCustomerFn func(ctx context.Context, arg database.ListSessionsByCustomerParams) ([]database.TableSession, error)
}

func (m *mockSessionStore) GetActiveSessionByTable(ctx context.Context, tableID uuid.UUID) (database.TableSession, error) {
	if m.getActiveFn != nil {
		return m.getActiveFn(ctx, tableID)
	}
	return database.TableSession{}, pgx.ErrNoRows
}

func (m *mockSessionStore) ListActiveSessionsByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.TableSession, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, cafeID)
	}
	return nil, nil
}

func (m *mockSessionStore) ListSessionsByCustomer(ctx context.Context, arg database.ListSessionsByCustomerParams) ([]database.TableSession, error) {
	if m.listByCustomerFn != nil {
		return m.listByCustomerFn(ctx, arg)
	}
	return nil, nil
}

func sampleSession(cafeID, tableID uuid.UUID) database.TableSession {
	return database.TableSession{
		ID:            uuid.New(),
		CafeID:        cafeID,
		TableID:       tableID,
		TableNumber:   4,
		CustomerName:  "Ben",
		CustomerEmail: "ben@example.com",
		StartedAt:     time.Now(),
		IsActive:      true,
	}
}

func newSessionRouter(svc handler.SessionServicer, store handler.SessionStore) chi.Router {
	h := handler.NewSessionHandler(svc, store)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Route("/cafes/{cid}", h.RegisterStaffRoutes)
	return r
}

func TestCreateSession_Success(t *testing.T) {
	cafeID, tableID := uuid.New(), uuid.New()
	svc := &mockSessionService{
		openFn: func(ctx context.Context, cid, tid uuid.UUID, name, email string) (database.TableSession, error) {
			if cid != cafeID || tid != tableID {
				t.Errorf("ids: got %v/%v", cid, tid)
			}
			return sampleSession(cid, tid), nil
		},
	}
	r := newSessionRouter(svc, &mockSessionStore{})

	rr := postJSON(t, r, "/table-sessions", map[string]string{
		"cafe_id":        cafeID.String(),
		"table_id":       tableID.String(),
		"customer_name":  "Ben",
		"customer_email": "ben@example.com",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["is_active"] != true {
		t.Errorf("is_active: got %v", resp["is_active"])
	}
	if resp["customer_name"] != "Ben" {
		t.Errorf("customer_name: got %v", resp["customer_name"])
	}
}

func TestCreateSession_InvalidTableID(t *testing.T) {
	r := newSessionRouter(&mockSessionService{}, &mockSessionStore{})

	rr := postJSON(t, r, "/table-sessions", map[string]string{
		"cafe_id":  uuid.New().String(),
		"table_id": "not-a-uuid",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetActiveSession_NoneOpen(t *testing.T) {
	r := newSessionRouter(&mockSessionService{}, &mockSessionStore{})

	rr := doRequest(t, r, "GET", "/table-sessions?table_id="+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCloseSession_IdempotentWhenNoneOpen(t *testing.T) {
	svc := &mockSessionService{
		closeFn: func(ctx context.Context, tableID uuid.UUID) error {
			return nil
		},
	}
	r := newSessionRouter(svc, &mockSessionStore{})

	rr := doRequest(t, r, "DELETE", "/table-sessions?table_id="+uuid.New().String(), nil)

	if rr.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestListActiveSessions(t *testing.T) {
	cafeID := uuid.New()
	store := &mockSessionStore{
		listActiveFn: func(ctx context.Context, cid uuid.UUID) ([]database.TableSession, error) {
			return []database.TableSession{
				sampleSession(cid, uuid.New()),
				sampleSession(cid, uuid.New()),
			}, nil
		},
	}
	r := newSessionRouter(&mockSessionService{}, store)

	rr := doRequest(t, r, "GET", "/cafes/"+cafeID.String()+"/table-sessions", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	list := decodeList(t, rr)
	if len(list) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(list))
	}
}

func TestListSessions_CustomerHistoryFilter(t *testing.T) {
	cafeID := uuid.New()
	store := &mockSessionStore{
		listActiveFn: func(ctx context.Context, cid uuid.UUID) ([]database.TableSession, error) {
			t.Error("customer_email filter must use the customer listing")
			return nil, nil
		},
		listByCustomerFn: func(ctx context.Context, arg database.ListSessionsByCustomerParams) ([]database.TableSession, error) {
			if arg.CafeID != cafeID || arg.CustomerEmail != "ben@example.com" {
				t.Errorf("unexpected filter: %+v", arg)
			}
			return []database.TableSession{sampleSession(cafeID, uuid.New())}, nil
		},
	}
	r := newSessionRouter(&mockSessionService{}, store)

	rr := doRequest(t, r, "GET", "/cafes/"+cafeID.String()+"/table-sessions?customer_email=ben@example.com", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	list := decodeList(t, rr)
	if len(list) != 1 {
		t.Errorf("expected 1 session, got %d", len(list))
	}
}

func TestCloseSessionByID_NotFound(t *testing.T) {
	cafeID := uuid.New()
	svc := &mockSessionService{
		closeByIDFn: func(ctx context.Context, cid, sessionID uuid.UUID) error {
			if cid != cafeID {
				t.Errorf("cafe id: got %v, want %v", cid, cafeID)
			}
			return service.ErrSessionNotFound
		},
	}
	r := newSessionRouter(svc, &mockSessionStore{})

	rr := doRequest(t, r, "DELETE", "/cafes/"+cafeID.String()+"/table-sessions/"+uuid.New().String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
