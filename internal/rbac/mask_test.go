package rbac

import (
	"testing"

	"github.com/britebottle/fleet/internal/model"
)

func fullView() model.CrusherView {
	fill := 0.42
	vib := 0.2
	temp := 21.5
	return model.CrusherView{
		ID:        "c-1",
		Name:      "Test",
		FillLevel: &fill,
		Metrics:   &model.TelemetryMetrics{Vibration: &vib, Temperature: &temp},
	}
}

func roleWithGrants(grants model.TelemetryGrants) *model.Role {
	return &model.Role{
		Permissions: model.Permissions{
			View: model.ViewGrants{TelemetryFields: grants},
		},
	}
}

func TestFieldVisible_DefaultOpen(t *testing.T) {
	grants := model.TelemetryGrants{model.FieldVibration: false}

	if !FieldVisible(grants, model.FieldFillLevel) {
		t.Error("absent grant must default to visible")
	}
	if FieldVisible(grants, model.FieldVibration) {
		t.Error("explicit false must redact")
	}
	if !FieldVisible(nil, model.FieldTemperature) {
		t.Error("nil grant map must default to visible")
	}
}

func TestMaskCrusher_RedactsExplicitFalse(t *testing.T) {
	v := fullView()
	role := roleWithGrants(model.TelemetryGrants{
		model.FieldFillLevel:   true,
		model.FieldVibration:   false,
		model.FieldTemperature: false,
	})

	out := MaskCrusher(v, role)

	if out.FillLevel == nil {
		t.Error("fill level granted true must remain")
	}
	if out.Metrics == nil {
		t.Fatal("metrics struct must survive masking")
	}
	if out.Metrics.Vibration != nil {
		t.Error("vibration must be redacted")
	}
	if out.Metrics.Temperature != nil {
		t.Error("temperature must be redacted")
	}
}

func TestMaskCrusher_IndependentSiblings(t *testing.T) {
	v := fullView()
	role := roleWithGrants(model.TelemetryGrants{model.FieldVibration: false})

	out := MaskCrusher(v, role)

	if out.Metrics.Vibration != nil {
		t.Error("vibration must be redacted")
	}
	if out.Metrics.Temperature == nil {
		t.Error("temperature must survive its sibling's redaction")
	}
	if out.FillLevel == nil {
		t.Error("unmentioned fill level must stay visible")
	}
}

func TestMaskCrusher_RedactsFillLevel(t *testing.T) {
	v := fullView()
	role := roleWithGrants(model.TelemetryGrants{model.FieldFillLevel: false})

	out := MaskCrusher(v, role)
	if out.FillLevel != nil {
		t.Error("fill level must be redacted")
	}
}

func TestMaskCrusher_NilRoleSeesEverything(t *testing.T) {
	v := fullView()
	out := MaskCrusher(v, nil)
	if out.FillLevel == nil || out.Metrics.Vibration == nil || out.Metrics.Temperature == nil {
		t.Error("nil role has no grants, so everything defaults open")
	}
}

func TestMaskCrusher_DoesNotMutateInput(t *testing.T) {
	v := fullView()
	role := roleWithGrants(model.TelemetryGrants{
		model.FieldFillLevel:   false,
		model.FieldVibration:   false,
		model.FieldTemperature: false,
	})

	_ = MaskCrusher(v, role)

	if v.FillLevel == nil || v.Metrics.Vibration == nil || v.Metrics.Temperature == nil {
		t.Error("masking must copy, never mutate the input view")
	}
}
