package alert

import (
	"context"
	"log"
	"time"

	"github.com/brewtab/api/internal/database"
	"github.com/brewtab/api/internal/enum"
	"github.com/brewtab/api/internal/ws"
	"github.com/google/uuid"
)

// NotifierStore defines the database methods the sweep needs.
// Satisfied by *database.Queries.
type NotifierStore interface {
	ListCafes(ctx context.Context) ([]database.Cafe, error)
	ListActiveOrdersByCafe(ctx context.Context, cafeID uuid.UUID) ([]database.Order, error)
	ListPendingHelpRequests(ctx context.Context, cafeID uuid.UUID) ([]database.HelpRequest, error)
}

// Broadcaster is the hub surface the notifier pushes events through.
type Broadcaster interface {
	BroadcastToCafe(cafeID uuid.UUID, event ws.Event)
}

// DefaultSweepInterval is how often the notifier polls for alert-worthy state.
const DefaultSweepInterval = 5 * time.Second

// Notifier periodically sweeps all active cafes and re-broadcasts alerts the
// tracker says are due. Handlers already push events on mutation; the sweep
// catches staff dashboards that connected after the fact and paces
// unacknowledged help request reminders.
type Notifier struct {
	store    NotifierStore
	hub      Broadcaster
	tracker  *Tracker
	interval time.Duration
	now      func() time.Time
}

func NewNotifier(store NotifierStore, hub Broadcaster, tracker *Tracker, interval time.Duration) *Notifier {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Notifier{store: store, hub: hub, tracker: tracker, interval: interval, now: time.Now}
}

// Run sweeps until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.Sweep(ctx)
		}
	}
}

type readyAlertPayload struct {
	OrderID     uuid.UUID `json:"order_id"`
	TableID     uuid.UUID `json:"table_id"`
	TableNumber int32     `json:"table_number"`
}

type helpAlertPayload struct {
	HelpRequestID uuid.UUID `json:"help_request_id"`
	TableID       uuid.UUID `json:"table_id"`
	TableNumber   int32     `json:"table_number"`
	Message       *string   `json:"message"`
	Reminder      bool      `json:"reminder"`
}

// Sweep runs one pass over every cafe. Errors are logged and skipped; a bad
// cafe must not starve the rest.
func (n *Notifier) Sweep(ctx context.Context) {
	cafes, err := n.store.ListCafes(ctx)
	if err != nil {
		log.Printf("ERROR: alert sweep list cafes: %v", err)
		return
	}

	for _, cafe := range cafes {
		if !cafe.IsActive {
			n.tracker.Forget(cafe.ID)
			continue
		}
		n.sweepCafe(ctx, cafe.ID)
	}
}

func (n *Notifier) sweepCafe(ctx context.Context, cafeID uuid.UUID) {
	orders, err := n.store.ListActiveOrdersByCafe(ctx, cafeID)
	if err != nil {
		log.Printf("ERROR: alert sweep orders for cafe %s: %v", cafeID, err)
		return
	}

	byID := make(map[uuid.UUID]database.Order)
	var readyIDs []uuid.UUID
	for _, o := range orders {
		if o.Status == enum.OrderStatusReady {
			readyIDs = append(readyIDs, o.ID)
			byID[o.ID] = o
		}
	}
	for _, id := range n.tracker.ReadyAlerts(cafeID, readyIDs) {
		o := byID[id]
		n.hub.BroadcastToCafe(cafeID, ws.NewEvent(ws.EventOrderReady, readyAlertPayload{
			OrderID:     o.ID,
			TableID:     o.TableID,
			TableNumber: o.TableNumber,
		}))
	}

	pending, err := n.store.ListPendingHelpRequests(ctx, cafeID)
	if err != nil {
		log.Printf("ERROR: alert sweep help requests for cafe %s: %v", cafeID, err)
		return
	}

	helpByID := make(map[uuid.UUID]database.HelpRequest, len(pending))
	pendingIDs := make([]uuid.UUID, 0, len(pending))
	for _, hr := range pending {
		helpByID[hr.ID] = hr
		pendingIDs = append(pendingIDs, hr.ID)
	}
	now := n.now()
	for _, id := range n.tracker.HelpAlerts(cafeID, pendingIDs, now) {
		hr := helpByID[id]
		var msg *string
		if hr.Message.Valid {
			msg = &hr.Message.String
		}
		n.hub.BroadcastToCafe(cafeID, ws.NewEvent(ws.EventHelpRequest, helpAlertPayload{
			HelpRequestID: hr.ID,
			TableID:       hr.TableID,
			TableNumber:   hr.TableNumber,
			Message:       msg,
			Reminder:      now.Sub(hr.CreatedAt) >= n.tracker.interval,
		}))
	}
}
