package rbac

import "github.com/britebottle/fleet/internal/model"

// TelemetryDefaultOpen is the masking policy for telemetry fields that a
// role's grant map does not mention: they stay visible. Only an explicit
// false redacts. Fields added to devices before they are modeled in roles
// would otherwise vanish for everyone.
const TelemetryDefaultOpen = true

// FieldVisible applies the grant map to a single telemetry field under the
// default-open policy.
func FieldVisible(grants model.TelemetryGrants, field string) bool {
	v, ok := grants[field]
	if !ok {
		return TelemetryDefaultOpen
	}
	return v
}

// MaskCrusher returns a copy of v with the telemetry fields the role is not
// entitled to see removed. The top-level fill level is dropped outright;
// nested metrics are removed individually without touching their siblings.
// The input view is never mutated; a nil role redacts nothing beyond what
// its absent grants dictate (all fields visible, default-open).
func MaskCrusher(v model.CrusherView, role *model.Role) model.CrusherView {
	var grants model.TelemetryGrants
	if role != nil {
		grants = role.Permissions.View.TelemetryFields
	}

	out := v
	if !FieldVisible(grants, model.FieldFillLevel) {
		out.FillLevel = nil
	}
	if v.Metrics != nil {
		metrics := *v.Metrics
		if !FieldVisible(grants, model.FieldVibration) {
			metrics.Vibration = nil
		}
		if !FieldVisible(grants, model.FieldTemperature) {
			metrics.Temperature = nil
		}
		out.Metrics = &metrics
	}
	return out
}
