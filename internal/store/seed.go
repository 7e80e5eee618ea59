package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/rbac"
)

// SeedOptions controls the content of a freshly created document.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	// DemoData seeds a handful of crushers, events, alerts, and routes so
	// the dashboard is not empty on a first install.
	DemoData bool
}

// seedDocument builds the first-boot document: default roles, one approved
// administrator on the highest-power role, and optional demo fleet data.
func seedDocument(opts SeedOptions) (*Document, error) {
	roles := rbac.DefaultRoles()
	super := roles[0]

	doc := &Document{
		SchemaVersion:  SchemaVersion,
		Roles:          roles,
		Users:          []model.User{},
		Crushers:       []model.Crusher{},
		Events:         []model.Event{},
		Alerts:         []model.Alert{},
		PasswordResets: []model.PasswordReset{},
		Routes:         []model.Route{},
	}

	if opts.AdminEmail != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		approved := true
		doc.Users = append(doc.Users, model.User{
			ID:           uuid.NewString(),
			Name:         "Admin",
			Email:        opts.AdminEmail,
			PasswordHash: string(hash),
			RoleID:       super.ID,
			Approved:     &approved,
			Profile:      model.Profile{}.Normalized(),
		})
	}

	if opts.DemoData {
		seedDemoFleet(doc)
	}

	return doc, nil
}

func seedDemoFleet(doc *Document) {
	now := time.Now().UTC()
	day := 24 * time.Hour
	emptied1 := now.Add(-1 * day)
	emptied2 := now.Add(-2 * day)
	emptied3 := now.Add(-3 * day)

	doc.Crushers = []model.Crusher{
		{
			ID: "c-101", Name: "Dublin Central", Type: "BB01", Serial: "PEL-DC-000101",
			Location: "Dublin, IE", Customer: "PEL", Lat: 53.3498, Lng: -6.2603,
			Status: "ok", FillLevel: 0.32, Vibration: 0.1, Temperature: 21.5,
			MainsVoltage: 230, CrushedToday: 184, LastEmptied: &emptied1, CreatedAt: now,
		},
		{
			ID: "c-102", Name: "Cork City", Type: "BB01", Serial: "PEL-CC-000102",
			Location: "Cork, IE", Customer: "PEL", Lat: 51.8985, Lng: -8.4756,
			Status: "ok", FillLevel: 0.61, Vibration: 0.2, Temperature: 22.0,
			MainsVoltage: 230, CrushedToday: 223, LastEmptied: &emptied2, CreatedAt: now,
		},
		{
			ID: "c-103", Name: "Galway Harbour", Type: "BB06", Serial: "PEL-GH-000103",
			Location: "Galway, IE", Customer: "PEL", Lat: 53.2707, Lng: -9.0568,
			Status: "warning", FillLevel: 0.87, Vibration: 0.5, Temperature: 24.1,
			MainsVoltage: 230, CrushedToday: 301, LastEmptied: &emptied3, CreatedAt: now,
		},
	}

	doc.Events = []model.Event{
		{ID: uuid.NewString(), Type: model.EventCrush, CrusherID: "c-101", Qty: 12, TS: now, Source: "System"},
		{ID: uuid.NewString(), Type: model.EventCrush, CrusherID: "c-102", Qty: 9, TS: now, Source: "System"},
		{ID: uuid.NewString(), Type: model.EventMaintenance, CrusherID: "c-103", Message: "Routine check", TS: now, Source: "System"},
	}

	doc.Alerts = []model.Alert{
		{ID: uuid.NewString(), Level: "warning", Source: "c-103", Message: "High fill level (>85%)", TS: now},
	}

	doc.Routes = []model.Route{
		{
			ID: "r-1", Name: "Dublin Loop",
			Path:  [][2]float64{{53.3498, -6.2603}, {53.343, -6.271}, {53.36, -6.29}},
			Stops: []model.RouteStop{{CrusherID: "c-101"}},
		},
		{
			ID: "r-2", Name: "Southwest",
			Path:  [][2]float64{{53.3498, -6.2603}, {51.8985, -8.4756}},
			Stops: []model.RouteStop{{CrusherID: "c-102"}},
		},
	}
}
