// Package alert decides when staff-facing notifications fire. The tracker
// holds in-memory signaling state per cafe; delivery is the caller's problem.
package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultReAlertInterval is how long a help request may sit unacknowledged
// before it alerts again.
const DefaultReAlertInterval = 60 * time.Second

// Tracker deduplicates ready-order alerts and paces help-request re-alerts.
// An order alerts once per stay in ready; a help request alerts on first
// sight and again every interval until it leaves pending. Safe for
// concurrent use.
type Tracker struct {
	mu       sync.Mutex
	interval time.Duration

	// per cafe: ready order ids already announced
	seenReady map[uuid.UUID]map[uuid.UUID]struct{}
	// per cafe: help request id -> last alert time
	helpAlerted map[uuid.UUID]map[uuid.UUID]time.Time
}

func NewTracker(interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultReAlertInterval
	}
	return &Tracker{
		interval:    interval,
		seenReady:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
		helpAlerted: make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

// ReadyAlerts returns the order ids in readyIDs that have not been announced
// yet, and marks them announced. Ids no longer in readyIDs are forgotten, so
// an order that leaves ready and comes back alerts again.
func (t *Tracker) ReadyAlerts(cafeID uuid.UUID, readyIDs []uuid.UUID) []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := t.seenReady[cafeID]
	if seen == nil {
		seen = make(map[uuid.UUID]struct{})
	}

	next := make(map[uuid.UUID]struct{}, len(readyIDs))
	var fresh []uuid.UUID
	for _, id := range readyIDs {
		next[id] = struct{}{}
		if _, ok := seen[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	if len(next) == 0 {
		delete(t.seenReady, cafeID)
	} else {
		t.seenReady[cafeID] = next
	}
	return fresh
}

// MarkReady records that an order's ready alert was already delivered, so
// the next sweep does not announce it a second time. Handlers call this when
// they push the alert themselves on a status change.
func (t *Tracker) MarkReady(cafeID, orderID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	seen := t.seenReady[cafeID]
	if seen == nil {
		seen = make(map[uuid.UUID]struct{})
		t.seenReady[cafeID] = seen
	}
	seen[orderID] = struct{}{}
}

// HelpAlerts returns the help request ids due for an alert at now: first
// sight, or last alert older than the interval. Ids absent from pendingIDs
// (acknowledged or resolved) are dropped and will not re-alert.
func (t *Tracker) HelpAlerts(cafeID uuid.UUID, pendingIDs []uuid.UUID, now time.Time) []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	alerted := t.helpAlerted[cafeID]
	if alerted == nil {
		alerted = make(map[uuid.UUID]time.Time)
	}

	next := make(map[uuid.UUID]time.Time, len(pendingIDs))
	var due []uuid.UUID
	for _, id := range pendingIDs {
		last, ok := alerted[id]
		if !ok || now.Sub(last) >= t.interval {
			due = append(due, id)
			next[id] = now
		} else {
			next[id] = last
		}
	}
	if len(next) == 0 {
		delete(t.helpAlerted, cafeID)
	} else {
		t.helpAlerted[cafeID] = next
	}
	return due
}

// Forget drops all signaling state for a cafe.
func (t *Tracker) Forget(cafeID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seenReady, cafeID)
	delete(t.helpAlerted, cafeID)
}
