package rbac

import (
	"testing"

	"github.com/britebottle/fleet/internal/model"
)

func role(power int, manage, assign bool) *model.Role {
	return &model.Role{
		Power: power,
		Permissions: model.Permissions{
			CanManageRoles: manage,
			CanAssignRoles: assign,
		},
	}
}

func TestIsHigherPower(t *testing.T) {
	tests := []struct {
		name string
		a, b *model.Role
		want bool
	}{
		{"higher", role(80, false, false), role(60, false, false), true},
		{"lower", role(60, false, false), role(80, false, false), false},
		{"equal power is not higher", role(80, false, false), role(80, false, false), false},
		{"nil actor", nil, role(10, false, false), false},
		{"nil target", role(100, false, false), nil, false},
		{"both nil", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHigherPower(tt.a, tt.b); got != tt.want {
				t.Errorf("IsHigherPower = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanManageTarget(t *testing.T) {
	admin := role(80, true, true)
	peer := role(80, true, true)
	tech := role(50, false, false)

	if !CanManageTarget(admin, tech) {
		t.Error("expected admin to manage a lower role")
	}
	if CanManageTarget(admin, peer) {
		t.Error("equal power must not confer management")
	}
	if CanManageTarget(tech, role(10, false, false)) {
		t.Error("higher power without the manage permission must not manage")
	}
	if CanManageTarget(nil, tech) {
		t.Error("nil actor must not manage")
	}
}

func TestCanAssignTarget(t *testing.T) {
	admin := role(80, true, true)

	if !CanAssignTarget(admin, role(50, false, false)) {
		t.Error("expected assignment of a lower role")
	}
	if CanAssignTarget(admin, role(80, true, true)) {
		t.Error("must not assign a role of equal power")
	}
	if CanAssignTarget(admin, role(100, true, true)) {
		t.Error("must not assign a higher role")
	}
	if CanAssignTarget(role(90, true, false), role(50, false, false)) {
		t.Error("missing assign permission must block assignment")
	}
}

func TestOutranksUser(t *testing.T) {
	admin := role(80, true, true)

	if !OutranksUser(admin, nil) {
		t.Error("a roleless user is minimal power and must be outrankable")
	}
	if !OutranksUser(admin, role(50, false, false)) {
		t.Error("expected admin to outrank a lower role")
	}
	if OutranksUser(admin, role(80, true, true)) {
		t.Error("must not outrank a peer")
	}
	if OutranksUser(nil, nil) {
		t.Error("nil actor must not outrank anyone")
	}
}

func TestDefaultRolesOrderingAndGrants(t *testing.T) {
	roles := DefaultRoles()
	if len(roles) != 5 {
		t.Fatalf("expected 5 default roles, got %d", len(roles))
	}
	for i := 1; i < len(roles); i++ {
		if roles[i].Power >= roles[i-1].Power {
			t.Errorf("roles not ordered by descending power: %s (%d) after %s (%d)",
				roles[i].Name, roles[i].Power, roles[i-1].Name, roles[i-1].Power)
		}
	}

	super := RoleByName(roles, RoleSuperAdmin)
	if super == nil || super.Power != 100 {
		t.Fatalf("expected %s with power 100, got %+v", RoleSuperAdmin, super)
	}
	if !super.Permissions.CanManageRoles || !super.Permissions.CanAssignRoles {
		t.Error("highest role must hold both management permissions")
	}

	customer := RoleByName(roles, RoleCustomer)
	if customer == nil || customer.Power != 40 {
		t.Fatalf("expected %s with power 40, got %+v", RoleCustomer, customer)
	}
	if customer.Permissions.CanManageRoles {
		t.Error("customer must not manage roles")
	}
	if v := customer.Permissions.View.TelemetryFields[model.FieldVibration]; v {
		t.Error("customer vibration grant must be explicit false")
	}
}

func TestLowestPrivilegeTemplate(t *testing.T) {
	tmpl := LowestPrivilegeTemplate()
	if tmpl.CanManageRoles || tmpl.CanAssignRoles {
		t.Error("template must not carry management permissions")
	}
	if tmpl.View.Users || tmpl.View.Settings {
		t.Error("template must not include administrative views")
	}
}

func TestRoleLookups(t *testing.T) {
	roles := DefaultRoles()
	if RoleByID(roles, "role-technician") == nil {
		t.Error("expected lookup by ID to find the technician role")
	}
	if RoleByID(roles, "nope") != nil {
		t.Error("expected nil for unknown ID")
	}
	if RoleByName(roles, "nope") != nil {
		t.Error("expected nil for unknown name")
	}
}
