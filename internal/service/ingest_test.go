package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/store"
)

func seedCrusher(t *testing.T, fl *Fleet, serial string) *model.CrusherView {
	t.Helper()
	c, err := fl.Create(context.Background(), CrusherInput{Name: "Ingest " + serial, Serial: serial})
	if err != nil {
		t.Fatalf("Create crusher: %v", err)
	}
	return c
}

func TestCrush_AdvancesFillAndCounters(t *testing.T) {
	s := newTestStore(t)
	fl := NewFleet(s)
	g := NewIngest(s)
	ctx := context.Background()
	c := seedCrusher(t, fl, "BB-10")

	view, err := g.Crush(ctx, c.ID, 10)
	if err != nil {
		t.Fatalf("Crush: %v", err)
	}
	if got := *view.FillLevel; math.Abs(got-0.05) > 1e-9 {
		t.Errorf("fill level = %v, want 0.05", got)
	}
	if view.CrushedToday != 10 {
		t.Errorf("crushedToday = %d, want 10", view.CrushedToday)
	}
	if view.LastSync == nil {
		t.Error("crush must advance the sync timestamp")
	}

	// Non-positive quantities count as one bottle.
	view, err = g.Crush(ctx, c.ID, 0)
	if err != nil {
		t.Fatalf("Crush qty 0: %v", err)
	}
	if view.CrushedToday != 11 {
		t.Errorf("crushedToday = %d, want 11", view.CrushedToday)
	}

	if _, err := g.Crush(ctx, "missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown crusher: got %v, want ErrNotFound", err)
	}
}

func TestCrush_RaisesAlertOnceAtThreshold(t *testing.T) {
	s := newTestStore(t)
	fl := NewFleet(s)
	g := NewIngest(s)
	ev := NewEvents(s)
	ctx := context.Background()
	c := seedCrusher(t, fl, "BB-11")

	high := 0.84
	if _, err := g.Telemetry(ctx, c.ID, TelemetryInput{FillLevel: &high}); err != nil {
		t.Fatalf("Telemetry: %v", err)
	}

	view, err := g.Crush(ctx, c.ID, 5)
	if err != nil {
		t.Fatalf("Crush: %v", err)
	}
	if view.AlertsCount != 1 {
		t.Fatalf("alerts after crossing threshold = %d, want 1", view.AlertsCount)
	}

	// Further crushing above the threshold does not re-alert.
	view, err = g.Crush(ctx, c.ID, 5)
	if err != nil {
		t.Fatalf("second Crush: %v", err)
	}
	if view.AlertsCount != 1 {
		t.Errorf("alerts = %d, want still 1", view.AlertsCount)
	}

	alerts, _ := ev.Alerts(ctx, 0)
	if len(alerts) != 1 || alerts[0].Source != c.ID {
		t.Errorf("alerts = %+v, want one sourced from the crusher", alerts)
	}
}

func TestCrush_FillLevelCapsAtFull(t *testing.T) {
	s := newTestStore(t)
	fl := NewFleet(s)
	g := NewIngest(s)
	ctx := context.Background()
	c := seedCrusher(t, fl, "BB-12")

	view, err := g.Crush(ctx, c.ID, 500)
	if err != nil {
		t.Fatalf("Crush: %v", err)
	}
	if *view.FillLevel != 1.0 {
		t.Errorf("fill level = %v, want capped at 1.0", *view.FillLevel)
	}
}

func TestEmpty_ResetsFillAndClearsAlerts(t *testing.T) {
	s := newTestStore(t)
	fl := NewFleet(s)
	g := NewIngest(s)
	ev := NewEvents(s)
	ctx := context.Background()
	c := seedCrusher(t, fl, "BB-13")
	other := seedCrusher(t, fl, "BB-14")

	if _, err := g.Crush(ctx, c.ID, 200); err != nil {
		t.Fatalf("Crush: %v", err)
	}
	if _, err := g.RaiseAlert(ctx, other.ID, "error", "jam detected"); err != nil {
		t.Fatalf("RaiseAlert: %v", err)
	}

	view, err := g.Empty(ctx, c.ID, "Driver")
	if err != nil {
		t.Fatalf("Empty: %v", err)
	}
	if *view.FillLevel != 0.05 {
		t.Errorf("fill after empty = %v, want residual 0.05", *view.FillLevel)
	}
	if view.LastEmptied == nil {
		t.Error("empty must record the pickup time")
	}
	if view.AlertsCount != 0 {
		t.Errorf("alerts for emptied crusher = %d, want 0", view.AlertsCount)
	}

	// The other crusher's alert is untouched.
	alerts, _ := ev.Alerts(ctx, 0)
	if len(alerts) != 1 || alerts[0].Source != other.ID {
		t.Errorf("alerts = %+v, want only the other crusher's", alerts)
	}

	events, _ := ev.List(ctx, EventFilter{CrusherID: c.ID, Types: []string{model.EventMaintenance}})
	if len(events) != 1 || events[0].Source != "Driver" {
		t.Errorf("maintenance events = %+v, want one from Driver", events)
	}
}

func TestTelemetry_PartialReportsAndClamping(t *testing.T) {
	s := newTestStore(t)
	fl := NewFleet(s)
	g := NewIngest(s)
	ctx := context.Background()
	c := seedCrusher(t, fl, "BB-15")

	vib := 0.3
	temp := 22.5
	if _, err := g.Telemetry(ctx, c.ID, TelemetryInput{Vibration: &vib, Temperature: &temp}); err != nil {
		t.Fatalf("Telemetry: %v", err)
	}

	// A later report that omits a sensor leaves the stored reading alone.
	over := 1.7
	view, err := g.Telemetry(ctx, c.ID, TelemetryInput{FillLevel: &over})
	if err != nil {
		t.Fatalf("Telemetry: %v", err)
	}
	if *view.FillLevel != 1.0 {
		t.Errorf("fill level = %v, want clamped to 1.0", *view.FillLevel)
	}
	if *view.Metrics.Vibration != 0.3 || *view.Metrics.Temperature != 22.5 {
		t.Errorf("metrics = %v/%v, want earlier readings preserved", *view.Metrics.Vibration, *view.Metrics.Temperature)
	}
}

func TestRaiseAlert_MirrorsIntoEventLog(t *testing.T) {
	s := newTestStore(t)
	fl := NewFleet(s)
	g := NewIngest(s)
	ev := NewEvents(s)
	ctx := context.Background()
	c := seedCrusher(t, fl, "BB-16")

	alert, err := g.RaiseAlert(ctx, c.ID, "", "door open")
	if err != nil {
		t.Fatalf("RaiseAlert: %v", err)
	}
	if alert.Level != "warning" {
		t.Errorf("default level = %q, want warning", alert.Level)
	}

	events, _ := ev.List(ctx, EventFilter{CrusherID: c.ID, Types: []string{model.EventAlert}})
	if len(events) != 1 || events[0].Message != "door open" {
		t.Errorf("alert events = %+v, want one mirror entry", events)
	}

	if _, err := g.RaiseAlert(ctx, "missing", "error", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown crusher: got %v, want ErrNotFound", err)
	}
}
