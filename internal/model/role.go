package model

// Role defines an RBAC role. Authority is determined by the power rank:
// an actor may only ever manage or assign roles strictly weaker than its
// own. Ties never confer authority.
type Role struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Power       int         `json:"power"`
	Permissions Permissions `json:"permissions"`
}

// Permissions groups everything a role is allowed to do: role/user
// administration flags plus per-surface and per-telemetry-field view grants.
type Permissions struct {
	CanManageRoles bool       `json:"canManageRoles"`
	CanAssignRoles bool       `json:"canAssignRoles"`
	View           ViewGrants `json:"view"`
}

// ViewGrants controls which dashboard surfaces a role may see. Surface flags
// are plain booleans; telemetry fields use a grant map so that "not yet
// modeled by this role" is distinguishable from "explicitly denied".
type ViewGrants struct {
	Dashboard       bool            `json:"dashboard"`
	Map             bool            `json:"map"`
	Routes          bool            `json:"routes"`
	Alerts          bool            `json:"alerts"`
	Users           bool            `json:"users"`
	Reports         bool            `json:"reports"`
	Settings        bool            `json:"settings"`
	TelemetryFields TelemetryGrants `json:"telemetryFields"`
}

// TelemetryGrants maps telemetry field names to visibility. A field absent
// from the map is visible (see rbac.TelemetryDefaultOpen); only an explicit
// false redacts it.
type TelemetryGrants map[string]bool

// Telemetry field names used in grant maps and masking.
const (
	FieldFillLevel   = "fillLevel"
	FieldVibration   = "vibration"
	FieldTemperature = "temperature"
)
