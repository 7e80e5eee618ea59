package service

import (
	"context"
	"errors"
	"testing"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/store"
)

func TestCreateCrusher_SerialUniqueness(t *testing.T) {
	s := newTestStore(t)
	fl := NewFleet(s)
	ctx := context.Background()

	created, err := fl.Create(ctx, CrusherInput{Name: "Lobby", Serial: "BB-1001"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != "ok" {
		t.Errorf("default status = %q, want ok", created.Status)
	}

	// Serials collide case-insensitively.
	if _, err := fl.Create(ctx, CrusherInput{Name: "Copy", Serial: "bb-1001"}); !errors.Is(err, ErrDuplicateSerial) {
		t.Errorf("duplicate serial: got %v, want ErrDuplicateSerial", err)
	}

	// Registration leaves an audit trail.
	events, err := NewEvents(s).List(ctx, EventFilter{CrusherID: created.ID})
	if err != nil {
		t.Fatalf("List events: %v", err)
	}
	if len(events) != 1 || events[0].Type != model.EventCreated {
		t.Errorf("events after create = %+v, want one CREATED", events)
	}
}

func TestGetBySerial(t *testing.T) {
	s := newTestStore(t)
	fl := NewFleet(s)
	ctx := context.Background()

	created, err := fl.Create(ctx, CrusherInput{Name: "Dock", Serial: "BB-2002"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := fl.GetBySerial(ctx, "bb-2002")
	if err != nil {
		t.Fatalf("GetBySerial: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetBySerial found %q, want %q", got.ID, created.ID)
	}
	if _, err := fl.GetBySerial(ctx, "BB-9999"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown serial: got %v, want ErrNotFound", err)
	}
}

func TestUpdateCrusher_PartialPatchAndSerialConflict(t *testing.T) {
	s := newTestStore(t)
	fl := NewFleet(s)
	ctx := context.Background()

	a, _ := fl.Create(ctx, CrusherInput{Name: "A", Serial: "BB-1", Location: "Dublin"})
	_, _ = fl.Create(ctx, CrusherInput{Name: "B", Serial: "BB-2"})

	name := "A renamed"
	got, err := fl.Update(ctx, a.ID, CrusherPatch{Name: &name})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != "A renamed" || got.Location != "Dublin" {
		t.Errorf("patch result = %q/%q, want renamed with location untouched", got.Name, got.Location)
	}

	serial := "bb-2"
	if _, err := fl.Update(ctx, a.ID, CrusherPatch{Serial: &serial}); !errors.Is(err, ErrDuplicateSerial) {
		t.Errorf("serial conflict: got %v, want ErrDuplicateSerial", err)
	}

	// Re-casing a crusher's own serial is not a conflict.
	own := "bb-1"
	if _, err := fl.Update(ctx, a.ID, CrusherPatch{Serial: &own}); err != nil {
		t.Errorf("re-case own serial: %v", err)
	}
}

func TestLockAndUnlock(t *testing.T) {
	s := newTestStore(t)
	fl := NewFleet(s)
	ctx := context.Background()

	c, _ := fl.Create(ctx, CrusherInput{Name: "L", Serial: "BB-3"})

	locked, err := fl.Lock(ctx, c.ID, 4, "ops@example.com")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if locked.LockedUntil == nil {
		t.Fatal("expected lockedUntil to be set")
	}

	unlocked, err := fl.Lock(ctx, c.ID, 0, "ops@example.com")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if unlocked.LockedUntil != nil {
		t.Error("zero hours must clear the lock")
	}

	events, _ := NewEvents(s).List(ctx, EventFilter{CrusherID: c.ID, Types: []string{model.EventLock}})
	if len(events) != 2 {
		t.Errorf("lock events = %d, want 2", len(events))
	}
}

func TestDeleteCrusher_KeepsEvents(t *testing.T) {
	s := newTestStore(t)
	fl := NewFleet(s)
	ev := NewEvents(s)
	ctx := context.Background()

	c, _ := fl.Create(ctx, CrusherInput{Name: "D", Serial: "BB-4"})
	if err := fl.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := fl.Delete(ctx, c.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("double delete: got %v, want ErrNotFound", err)
	}

	events, _ := ev.List(ctx, EventFilter{CrusherID: c.ID})
	if len(events) == 0 {
		t.Error("events must survive their crusher for auditability")
	}
}
