package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/store"
)

// Fill level thresholds used by the ingest path. Each crush nudges the fill
// level by a fixed fraction per bottle; crossing the high-water mark raises
// an alert.
const (
	fillPerBottle  = 0.005
	fillAlertAt    = 0.85
	fillAfterEmpty = 0.05
)

// Ingest accepts device-originated telemetry and events. It is the write
// path for crushers themselves (and the simulator), as opposed to the
// operator-facing Fleet service.
type Ingest struct {
	store *store.Store
}

// NewIngest creates the device ingest service.
func NewIngest(st *store.Store) *Ingest {
	return &Ingest{store: st}
}

// Crush records qty crushed bottles: the fill level rises, the daily
// counter advances, and a crush event is appended. Crossing the high fill
// threshold raises a warning alert.
func (g *Ingest) Crush(ctx context.Context, crusherID string, qty int) (*model.CrusherView, error) {
	if qty <= 0 {
		qty = 1
	}
	var view model.CrusherView
	err := g.store.Update(func(doc *store.Document) error {
		c := findCrusher(doc, crusherID)
		if c == nil {
			return store.ErrNotFound
		}
		now := time.Now().UTC()
		wasBelow := c.FillLevel < fillAlertAt

		c.FillLevel += float64(qty) * fillPerBottle
		if c.FillLevel > 1.0 {
			c.FillLevel = 1.0
		}
		c.CrushedToday += qty
		c.LastSync = &now

		doc.Events = append(doc.Events, model.Event{
			ID:        uuid.NewString(),
			CrusherID: crusherID,
			TS:        now,
			Type:      model.EventCrush,
			Qty:       qty,
			Source:    c.Name,
		})
		if wasBelow && c.FillLevel >= fillAlertAt {
			doc.Alerts = append(doc.Alerts, model.Alert{
				ID:      uuid.NewString(),
				Level:   "warning",
				Source:  c.ID,
				Message: "High fill level (>85%)",
				TS:      now,
			})
		}
		view = enrichCrusher(c, doc.Alerts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Empty records a pickup: the fill level resets to a small residual, the
// last-emptied timestamp advances, and alerts sourced from this crusher
// are cleared.
func (g *Ingest) Empty(ctx context.Context, crusherID, source string) (*model.CrusherView, error) {
	var view model.CrusherView
	err := g.store.Update(func(doc *store.Document) error {
		c := findCrusher(doc, crusherID)
		if c == nil {
			return store.ErrNotFound
		}
		now := time.Now().UTC()
		c.FillLevel = fillAfterEmpty
		c.LastEmptied = &now
		c.LastSync = &now

		kept := doc.Alerts[:0]
		for _, a := range doc.Alerts {
			if a.Source != c.ID {
				kept = append(kept, a)
			}
		}
		doc.Alerts = kept

		doc.Events = append(doc.Events, model.Event{
			ID:        uuid.NewString(),
			CrusherID: crusherID,
			TS:        now,
			Type:      model.EventMaintenance,
			Message:   "Emptied",
			Source:    source,
		})
		view = enrichCrusher(c, doc.Alerts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// TelemetryInput is one sensor report. Nil fields leave the stored reading
// unchanged, so devices can report sensors independently.
type TelemetryInput struct {
	FillLevel    *float64 `json:"fillLevel"`
	Vibration    *float64 `json:"vibration"`
	Temperature  *float64 `json:"temperature"`
	MainsVoltage *float64 `json:"mainsVoltage"`
	Status       *string  `json:"status"`
}

// Telemetry applies a sensor report and advances the sync timestamp.
func (g *Ingest) Telemetry(ctx context.Context, crusherID string, in TelemetryInput) (*model.CrusherView, error) {
	var view model.CrusherView
	err := g.store.Update(func(doc *store.Document) error {
		c := findCrusher(doc, crusherID)
		if c == nil {
			return store.ErrNotFound
		}
		now := time.Now().UTC()
		if in.FillLevel != nil {
			c.FillLevel = clamp01(*in.FillLevel)
		}
		if in.Vibration != nil {
			c.Vibration = *in.Vibration
		}
		if in.Temperature != nil {
			c.Temperature = *in.Temperature
		}
		if in.MainsVoltage != nil {
			c.MainsVoltage = *in.MainsVoltage
		}
		if in.Status != nil {
			c.Status = *in.Status
		}
		c.LastSync = &now
		view = enrichCrusher(c, doc.Alerts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// RaiseAlert records a device-reported alert and mirrors it into the
// crusher's event log.
func (g *Ingest) RaiseAlert(ctx context.Context, crusherID, level, message string) (*model.Alert, error) {
	if level == "" {
		level = "warning"
	}
	alert := model.Alert{
		ID:      uuid.NewString(),
		Level:   level,
		Source:  crusherID,
		Message: message,
		TS:      time.Now().UTC(),
	}
	err := g.store.Update(func(doc *store.Document) error {
		c := findCrusher(doc, crusherID)
		if c == nil {
			return store.ErrNotFound
		}
		doc.Alerts = append(doc.Alerts, alert)
		doc.Events = append(doc.Events, model.Event{
			ID:        uuid.NewString(),
			CrusherID: crusherID,
			TS:        alert.TS,
			Type:      model.EventAlert,
			Level:     level,
			Message:   message,
			Source:    c.Name,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
