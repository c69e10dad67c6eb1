package alert

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestReadyAlerts_OncePerStay(t *testing.T) {
	tr := NewTracker(time.Minute)
	cafe := uuid.New()
	a, b := uuid.New(), uuid.New()

	fresh := tr.ReadyAlerts(cafe, []uuid.UUID{a})
	if len(fresh) != 1 || fresh[0] != a {
		t.Fatalf("expected first sight of a, got %v", fresh)
	}

	// Same snapshot again: nothing new.
	if fresh := tr.ReadyAlerts(cafe, []uuid.UUID{a}); len(fresh) != 0 {
		t.Errorf("expected no repeat alert, got %v", fresh)
	}

	// b joins a: only b is new.
	fresh = tr.ReadyAlerts(cafe, []uuid.UUID{a, b})
	if len(fresh) != 1 || fresh[0] != b {
		t.Errorf("expected only b, got %v", fresh)
	}
}

func TestMarkReady_SuppressesNextSweep(t *testing.T) {
	tr := NewTracker(time.Minute)
	cafe := uuid.New()
	a, b := uuid.New(), uuid.New()

	// a's alert was already pushed on the status change.
	tr.MarkReady(cafe, a)

	fresh := tr.ReadyAlerts(cafe, []uuid.UUID{a, b})
	if len(fresh) != 1 || fresh[0] != b {
		t.Errorf("expected only b to alert, got %v", fresh)
	}
}

func TestReadyAlerts_ForgetsDepartedIDs(t *testing.T) {
	tr := NewTracker(time.Minute)
	cafe := uuid.New()
	a := uuid.New()

	tr.ReadyAlerts(cafe, []uuid.UUID{a})
	// a served, leaves ready.
	tr.ReadyAlerts(cafe, nil)
	// a bounced back to ready: alert again.
	fresh := tr.ReadyAlerts(cafe, []uuid.UUID{a})
	if len(fresh) != 1 || fresh[0] != a {
		t.Errorf("expected re-alert after departure, got %v", fresh)
	}
}

func TestReadyAlerts_CafesIsolated(t *testing.T) {
	tr := NewTracker(time.Minute)
	a := uuid.New()

	tr.ReadyAlerts(uuid.New(), []uuid.UUID{a})
	fresh := tr.ReadyAlerts(uuid.New(), []uuid.UUID{a})
	if len(fresh) != 1 {
		t.Errorf("expected separate state per cafe, got %v", fresh)
	}
}

func TestHelpAlerts_ReAlertAfterInterval(t *testing.T) {
	tr := NewTracker(time.Minute)
	cafe := uuid.New()
	h := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if due := tr.HelpAlerts(cafe, []uuid.UUID{h}, now); len(due) != 1 {
		t.Fatalf("expected first-sight alert, got %v", due)
	}
	if due := tr.HelpAlerts(cafe, []uuid.UUID{h}, now.Add(30*time.Second)); len(due) != 0 {
		t.Errorf("expected silence inside interval, got %v", due)
	}
	if due := tr.HelpAlerts(cafe, []uuid.UUID{h}, now.Add(time.Minute)); len(due) != 1 {
		t.Errorf("expected re-alert at interval, got %v", due)
	}
}

func TestHelpAlerts_AcknowledgedStopsAlerting(t *testing.T) {
	tr := NewTracker(time.Minute)
	cafe := uuid.New()
	h := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tr.HelpAlerts(cafe, []uuid.UUID{h}, now)
	// Staff acknowledged; request no longer pending.
	tr.HelpAlerts(cafe, nil, now.Add(10*time.Second))
	// Hours later nothing fires for it.
	if due := tr.HelpAlerts(cafe, nil, now.Add(2*time.Hour)); len(due) != 0 {
		t.Errorf("expected no alerts after acknowledge, got %v", due)
	}
}

func TestHelpAlerts_NewRequestAfterAcknowledge(t *testing.T) {
	tr := NewTracker(time.Minute)
	cafe := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := uuid.New()
	tr.HelpAlerts(cafe, []uuid.UUID{first}, now)
	tr.HelpAlerts(cafe, nil, now.Add(time.Second))

	second := uuid.New()
	if due := tr.HelpAlerts(cafe, []uuid.UUID{second}, now.Add(2*time.Second)); len(due) != 1 {
		t.Errorf("expected fresh request to alert, got %v", due)
	}
}

func TestNewTracker_DefaultInterval(t *testing.T) {
	tr := NewTracker(0)
	if tr.interval != DefaultReAlertInterval {
		t.Errorf("expected default interval, got %v", tr.interval)
	}
}
