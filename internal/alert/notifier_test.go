package alert

import (
	"context"
	"testing"
	"time"

	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/enum"
	"github.com/brewtab/api/internal/ws"
	"github.com/google/uuid"
)

type mockNotifierStore struct {
	listCafesFn               func(ctx context.Context) ([]database.Cafe, error)
	listActiveOrdersByCafeFn  func(ctx context.Context, cafeID uuid.UUID) ([]database.Order, error)
	listPendingHelpRequestsFn func(ctx context.Context, cafeID uuid.UUID) ([]database.HelpRequest, error)
}

func (m *mockNotifierStore) ListCafes(ctx context.Context) ([]database.Cafe, error) {
	return m.listCafesFn(ctx)
}

func (m *mockNotifierStore) ListActiveOrdersByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.Order, error) {
	return m.listActiveOrdersByCafeFn(ctx, cafeID)
}

func (m *mockNotifierStore) ListPendingHelpRequests(ctx context.Context, cafeID uuid.UUID) ([]database.HelpRequest, error) {
	return m.listPendingHelpRequestsFn(ctx, cafeID)
}

type capturedEvent struct {
	cafeID uuid.UUID
	event  ws.Event
}

type mockBroadcaster struct {
	events []capturedEvent
}

func (m *mockBroadcaster) BroadcastToCafe(cafeID uuid.UUID, event ws.Event) {
	m.events = append(m.events, capturedEvent{cafeID: cafeID, event: event})
}

func notifierStoreFor(cafe database.Cafe, orders []database.Order, help []database.HelpRequest) *mockNotifierStore {
	return &mockNotifierStore{
		listCafesFn: func(ctx context.Context) ([]database.Cafe, error) {
			return []database.Cafe{cafe}, nil
		},
		listActiveOrdersByCafeFn: func(ctx context.Context, cafeID uuid.UUID) ([]database.Order, error) {
			return orders, nil
		},
		listPendingHelpRequestsFn: func(ctx context.Context, cafeID uuid.UUID) ([]database.HelpRequest, error) {
			return help, nil
		},
	}
}

func eventTypes(events []capturedEvent) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.event.Type
	}
	return types
}

func TestSweep_BroadcastsReadyOrdersOnce(t *testing.T) {
	cafe := database.Cafe{ID: uuid.New(), IsActive: true}
	orders := []database.Order{
		{ID: uuid.New(), CafeID: cafe.ID, TableNumber: 3, Status: enum.OrderStatusReady},
		{ID: uuid.New(), CafeID: cafe.ID, TableNumber: 5, Status: enum.OrderStatusPreparing},
	}
	hub := &mockBroadcaster{}
	n := NewNotifier(notifierStoreFor(cafe, orders, nil), hub, NewTracker(time.Minute), 0)

	n.Sweep(context.Background())

	if got := eventTypes(hub.events); len(got) != 1 || got[0] != ws.EventOrderReady {
		t.Fatalf("expected one %s event, got %v", ws.EventOrderReady, got)
	}
	if hub.events[0].cafeID != cafe.ID {
		t.Errorf("event routed to wrong cafe: %v", hub.events[0].cafeID)
	}

	// Second sweep with the same snapshot: nothing new.
	n.Sweep(context.Background())
	if len(hub.events) != 1 {
		t.Errorf("expected no repeat alert, got %d events", len(hub.events))
	}
}

func TestSweep_HelpRequestRemindersPaced(t *testing.T) {
	cafe := database.Cafe{ID: uuid.New(), IsActive: true}
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	help := []database.HelpRequest{
		{ID: uuid.New(), CafeID: cafe.ID, TableNumber: 2, Status: enum.HelpRequestStatusPending, CreatedAt: created},
	}
	hub := &mockBroadcaster{}
	n := NewNotifier(notifierStoreFor(cafe, nil, help), hub, NewTracker(time.Minute), 0)

	clock := created
	n.now = func() time.Time { return clock }

	n.Sweep(context.Background())
	if len(hub.events) != 1 {
		t.Fatalf("expected first-sight alert, got %d events", len(hub.events))
	}

	// 30s later: within the interval, no reminder.
	clock = created.Add(30 * time.Second)
	n.Sweep(context.Background())
	if len(hub.events) != 1 {
		t.Fatalf("expected no reminder inside interval, got %d events", len(hub.events))
	}

	// 60s after the first alert: reminder fires.
	clock = created.Add(time.Minute)
	n.Sweep(context.Background())
	if len(hub.events) != 2 {
		t.Fatalf("expected reminder after interval, got %d events", len(hub.events))
	}
}

func TestSweep_AcknowledgedHelpRequestStopsAlerting(t *testing.T) {
	cafe := database.Cafe{ID: uuid.New(), IsActive: true}
	hub := &mockBroadcaster{}
	store := notifierStoreFor(cafe, nil, []database.HelpRequest{
		{ID: uuid.New(), CafeID: cafe.ID, Status: enum.HelpRequestStatusPending, CreatedAt: time.Now()},
	})
	n := NewNotifier(store, hub, NewTracker(time.Minute), 0)

	n.Sweep(context.Background())
	if len(hub.events) != 1 {
		t.Fatalf("expected first-sight alert, got %d events", len(hub.events))
	}

	// Staff responded: the request leaves the pending list.
	store.listPendingHelpRequestsFn = func(ctx context.Context, cafeID uuid.UUID) ([]database.HelpRequest, error) {
		return nil, nil
	}
	n.Sweep(context.Background())
	n.Sweep(context.Background())
	if len(hub.events) != 1 {
		t.Errorf("expected no alerts after acknowledgement, got %d events", len(hub.events))
	}
}

func TestSweep_InactiveCafeSkipped(t *testing.T) {
	cafe := database.Cafe{ID: uuid.New(), IsActive: false}
	hub := &mockBroadcaster{}
	store := notifierStoreFor(cafe, []database.Order{
		{ID: uuid.New(), CafeID: cafe.ID, Status: enum.OrderStatusReady},
	}, nil)
	n := NewNotifier(store, hub, NewTracker(time.Minute), 0)

	n.Sweep(context.Background())
	if len(hub.events) != 0 {
		t.Errorf("expected no events for inactive cafe, got %d", len(hub.events))
	}
}
