package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/store"
)

// Events serves the event log, alerts, routes, and the dashboard summary.
type Events struct {
	store *store.Store
}

// NewEvents creates the event log service.
func NewEvents(st *store.Store) *Events {
	return &Events{store: st}
}

// EventFilter selects a slice of the event log.
type EventFilter struct {
	CrusherID string
	Types     []string
	Before    *time.Time
	Limit     int
}

// List returns events newest first, filtered and capped. A zero limit means
// 50 entries.
func (e *Events) List(ctx context.Context, filter EventFilter) ([]model.Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	types := map[string]bool{}
	for _, t := range filter.Types {
		if t != "" {
			types[t] = true
		}
	}

	var out []model.Event
	err := e.store.View(func(doc *store.Document) error {
		for _, ev := range doc.Events {
			if filter.CrusherID != "" && ev.CrusherID != filter.CrusherID {
				continue
			}
			if len(types) > 0 && !types[ev.Type] {
				continue
			}
			if filter.Before != nil && !ev.TS.Before(*filter.Before) {
				continue
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TS.After(out[j].TS) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Append adds a lifecycle event to a crusher's log. Unknown types are
// recorded as NOTE rather than rejected, so a client with a stale type list
// never loses an entry.
func (e *Events) Append(ctx context.Context, crusherID, eventType, message, source string, meta map[string]any) (*model.Event, error) {
	if !model.ValidEventType(eventType) {
		eventType = model.EventNote
	}
	event := model.Event{
		ID:        uuid.NewString(),
		CrusherID: crusherID,
		TS:        time.Now().UTC(),
		Type:      eventType,
		Message:   message,
		Source:    source,
		Meta:      meta,
	}
	err := e.store.Update(func(doc *store.Document) error {
		if findCrusher(doc, crusherID) == nil {
			return store.ErrNotFound
		}
		doc.Events = append(doc.Events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Alerts returns the newest alerts, capped at limit (default 50).
func (e *Events) Alerts(ctx context.Context, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []model.Alert
	err := e.store.View(func(doc *store.Document) error {
		out = append(out, doc.Alerts...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS.After(out[j].TS) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Routes returns all collection routes.
func (e *Events) Routes(ctx context.Context) ([]model.Route, error) {
	var out []model.Route
	err := e.store.View(func(doc *store.Document) error {
		out = append(out, doc.Routes...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Summary computes the dashboard counters: bottles crushed since midnight
// UTC, the pickup queue weight, open alerts, and crushers that synced in
// the last 24 hours.
func (e *Events) Summary(ctx context.Context) (*model.DashboardSummary, error) {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	activeSince := now.Add(-24 * time.Hour)

	var summary model.DashboardSummary
	err := e.store.View(func(doc *store.Document) error {
		for _, ev := range doc.Events {
			if ev.Type == model.EventCrush && !ev.TS.Before(midnight) {
				summary.CrushedToday += ev.Qty
			}
		}
		for i := range doc.Crushers {
			c := &doc.Crushers[i]
			if c.FillLevel > 0.8 {
				summary.Queue += 3
			}
			if c.LastSync != nil && c.LastSync.After(activeSince) {
				summary.ActiveCrushers++
			}
		}
		summary.AlertsOpen = len(doc.Alerts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
