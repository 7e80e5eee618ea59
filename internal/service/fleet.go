package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/store"
)

// Fleet manages crusher records and their enriched client views.
type Fleet struct {
	store *store.Store
}

// NewFleet creates the crusher fleet service.
func NewFleet(st *store.Store) *Fleet {
	return &Fleet{store: st}
}

// CrusherInput carries the writable fields of a crusher.
type CrusherInput struct {
	Name     string  `json:"name" validate:"required"`
	Type     string  `json:"type"`
	Serial   string  `json:"serial" validate:"required"`
	Location string  `json:"location"`
	Customer string  `json:"customer"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Status   string  `json:"status"`
}

// List returns the enriched view of every crusher, unmasked. Masking is the
// caller's concern; it depends on the requesting role.
func (f *Fleet) List(ctx context.Context) ([]model.CrusherView, error) {
	var out []model.CrusherView
	err := f.store.View(func(doc *store.Document) error {
		for i := range doc.Crushers {
			out = append(out, enrichCrusher(&doc.Crushers[i], doc.Alerts))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one crusher's enriched view.
func (f *Fleet) Get(ctx context.Context, id string) (*model.CrusherView, error) {
	var view model.CrusherView
	err := f.store.View(func(doc *store.Document) error {
		c := findCrusher(doc, id)
		if c == nil {
			return store.ErrNotFound
		}
		view = enrichCrusher(c, doc.Alerts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// GetBySerial looks a crusher up by its serial, case-insensitively.
func (f *Fleet) GetBySerial(ctx context.Context, serial string) (*model.CrusherView, error) {
	var view model.CrusherView
	err := f.store.View(func(doc *store.Document) error {
		for i := range doc.Crushers {
			if strings.EqualFold(doc.Crushers[i].Serial, serial) {
				view = enrichCrusher(&doc.Crushers[i], doc.Alerts)
				return nil
			}
		}
		return store.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Create registers a new crusher and logs a CREATED event. Serials are
// unique across the fleet, compared case-insensitively.
func (f *Fleet) Create(ctx context.Context, in CrusherInput) (*model.CrusherView, error) {
	now := time.Now().UTC()
	crusher := model.Crusher{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Type:      in.Type,
		Serial:    in.Serial,
		Location:  in.Location,
		Customer:  in.Customer,
		Lat:       in.Lat,
		Lng:       in.Lng,
		Status:    in.Status,
		CreatedAt: now,
	}
	if crusher.Status == "" {
		crusher.Status = "ok"
	}

	var view model.CrusherView
	err := f.store.Update(func(doc *store.Document) error {
		for i := range doc.Crushers {
			if strings.EqualFold(doc.Crushers[i].Serial, in.Serial) {
				return ErrDuplicateSerial
			}
		}
		doc.Crushers = append(doc.Crushers, crusher)
		doc.Events = append(doc.Events, model.Event{
			ID:        uuid.NewString(),
			CrusherID: crusher.ID,
			TS:        now,
			Type:      model.EventCreated,
			Message:   "Crusher registered",
			Source:    "System",
		})
		view = enrichCrusher(&crusher, doc.Alerts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// CrusherPatch is a partial crusher update. Nil fields are left unchanged.
type CrusherPatch struct {
	Name     *string  `json:"name"`
	Type     *string  `json:"type"`
	Serial   *string  `json:"serial"`
	Location *string  `json:"location"`
	Customer *string  `json:"customer"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Status   *string  `json:"status"`
}

// Update merges a patch into a crusher record.
func (f *Fleet) Update(ctx context.Context, id string, patch CrusherPatch) (*model.CrusherView, error) {
	var view model.CrusherView
	err := f.store.Update(func(doc *store.Document) error {
		c := findCrusher(doc, id)
		if c == nil {
			return store.ErrNotFound
		}
		if patch.Serial != nil && !strings.EqualFold(*patch.Serial, c.Serial) {
			for i := range doc.Crushers {
				if doc.Crushers[i].ID != id && strings.EqualFold(doc.Crushers[i].Serial, *patch.Serial) {
					return ErrDuplicateSerial
				}
			}
			c.Serial = *patch.Serial
		}
		if patch.Name != nil {
			c.Name = *patch.Name
		}
		if patch.Type != nil {
			c.Type = *patch.Type
		}
		if patch.Location != nil {
			c.Location = *patch.Location
		}
		if patch.Customer != nil {
			c.Customer = *patch.Customer
		}
		if patch.Lat != nil {
			c.Lat = *patch.Lat
		}
		if patch.Lng != nil {
			c.Lng = *patch.Lng
		}
		if patch.Status != nil {
			c.Status = *patch.Status
		}
		view = enrichCrusher(c, doc.Alerts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Delete removes a crusher. Its events stay in the log for auditability.
func (f *Fleet) Delete(ctx context.Context, id string) error {
	return f.store.Update(func(doc *store.Document) error {
		for i := range doc.Crushers {
			if doc.Crushers[i].ID == id {
				doc.Crushers = append(doc.Crushers[:i], doc.Crushers[i+1:]...)
				return nil
			}
		}
		return store.ErrNotFound
	})
}

// Lock disables a crusher for the given number of hours and logs a LOCK
// event. Zero or negative hours clears the lock.
func (f *Fleet) Lock(ctx context.Context, id string, hours int, actor string) (*model.CrusherView, error) {
	var view model.CrusherView
	err := f.store.Update(func(doc *store.Document) error {
		c := findCrusher(doc, id)
		if c == nil {
			return store.ErrNotFound
		}
		now := time.Now().UTC()
		if hours > 0 {
			until := now.Add(time.Duration(hours) * time.Hour)
			c.LockedUntil = &until
		} else {
			c.LockedUntil = nil
		}
		doc.Events = append(doc.Events, model.Event{
			ID:        uuid.NewString(),
			CrusherID: id,
			TS:        now,
			Type:      model.EventLock,
			Message:   lockMessage(hours),
			Source:    actor,
		})
		view = enrichCrusher(c, doc.Alerts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func lockMessage(hours int) string {
	if hours > 0 {
		return "Crusher locked"
	}
	return "Crusher unlocked"
}

func findCrusher(doc *store.Document, id string) *model.Crusher {
	for i := range doc.Crushers {
		if doc.Crushers[i].ID == id {
			return &doc.Crushers[i]
		}
	}
	return nil
}

// enrichCrusher builds the client view: telemetry moves behind pointers so
// the view filter can redact per role, and open alerts sourced from this
// crusher are counted in.
func enrichCrusher(c *model.Crusher, alerts []model.Alert) model.CrusherView {
	fill := c.FillLevel
	vib := c.Vibration
	temp := c.Temperature

	count := 0
	for i := range alerts {
		if alerts[i].Source == c.ID {
			count++
		}
	}

	return model.CrusherView{
		ID:           c.ID,
		Name:         c.Name,
		Type:         c.Type,
		Serial:       c.Serial,
		Location:     c.Location,
		Customer:     c.Customer,
		Lat:          c.Lat,
		Lng:          c.Lng,
		Status:       c.Status,
		MainsVoltage: c.MainsVoltage,
		CrushedToday: c.CrushedToday,
		AlertsCount:  count,
		LastEmptied:  c.LastEmptied,
		LastSync:     c.LastSync,
		LockedUntil:  c.LockedUntil,
		FillLevel:    &fill,
		Metrics:      &model.TelemetryMetrics{Vibration: &vib, Temperature: &temp},
	}
}
