package model

import "time"

// Event is one entry in a crusher's event log.
type Event struct {
	ID        string         `json:"id"`
	CrusherID string         `json:"crusherId"`
	TS        time.Time      `json:"ts"`
	Type      string         `json:"type"`
	Level     string         `json:"level,omitempty"`
	Message   string         `json:"message,omitempty"`
	Source    string         `json:"source,omitempty"`
	Qty       int            `json:"qty,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Lifecycle event types accepted on the append endpoint. Anything else is
// coerced to EventNote.
const (
	EventCreated      = "CREATED"
	EventInstall      = "INSTALL"
	EventService      = "SERVICE"
	EventAlert        = "ALERT"
	EventLock         = "LOCK"
	EventSubscription = "SUBSCRIPTION"
	EventNote         = "NOTE"
)

// Ingest event types emitted by devices and the simulator.
const (
	EventCrush       = "crush"
	EventMaintenance = "maintenance"
)

// ValidEventType reports whether t is one of the accepted lifecycle types.
func ValidEventType(t string) bool {
	switch t {
	case EventCreated, EventInstall, EventService, EventAlert, EventLock, EventSubscription:
		return true
	}
	return false
}
