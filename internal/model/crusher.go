package model

import "time"

// Crusher is the persisted record for one BriteBottle device.
type Crusher struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`   // hardware model, e.g. BB01
	Serial       string     `json:"serial"` // unique, case-insensitive
	Location     string     `json:"location"`
	Customer     string     `json:"customer"`
	Lat          float64    `json:"lat"`
	Lng          float64    `json:"lng"`
	Status       string     `json:"status"`
	FillLevel    float64    `json:"fillLevel"` // 0..1
	Vibration    float64    `json:"vibration"`
	Temperature  float64    `json:"temperature"`
	MainsVoltage float64    `json:"mainsVoltage"`
	CrushedToday int        `json:"crushedToday"`
	LastEmptied  *time.Time `json:"lastEmptied,omitempty"`
	LastSync     *time.Time `json:"lastSync,omitempty"`
	LockedUntil  *time.Time `json:"lockedUntil,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// CrusherView is the enriched, client-facing shape of a crusher. Telemetry
// fields are pointers so the view filter can redact them per role: a nil
// field is absent from the JSON payload.
type CrusherView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	Serial       string     `json:"serial"`
	Location     string     `json:"location"`
	Customer     string     `json:"customer"`
	Lat          float64    `json:"lat"`
	Lng          float64    `json:"lng"`
	Status       string     `json:"status"`
	MainsVoltage float64    `json:"mainsVoltage"`
	CrushedToday int        `json:"crushedToday"`
	AlertsCount  int        `json:"alertsCount"`
	LastEmptied  *time.Time `json:"lastEmptied,omitempty"`
	LastSync     *time.Time `json:"lastSync,omitempty"`
	LockedUntil  *time.Time `json:"lockedUntil,omitempty"`

	FillLevel *float64          `json:"fillLevel,omitempty"`
	Metrics   *TelemetryMetrics `json:"metrics,omitempty"`
}

// TelemetryMetrics holds the nested per-sensor readings of a CrusherView.
// Individual fields are redacted independently; redacting one never removes
// its siblings.
type TelemetryMetrics struct {
	Vibration   *float64 `json:"vibration,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}
