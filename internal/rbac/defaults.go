// Package rbac implements the power-ranked role system that gates every
// privileged operation on the platform. Decision functions are pure and
// side-effect free; they are consulted by the lifecycle service before any
// mutation of roles or users.
package rbac

import "github.com/britebottle/fleet/internal/model"

// Built-in role names.
const (
	RoleSuperAdmin  = "SuperAdminPEL"
	RoleAdmin       = "AdminPEL"
	RoleDistributor = "Distributor"
	RoleTechnician  = "Technician"
	RoleCustomer    = "Customer"
)

// DefaultRoles returns the built-in role set seeded on first boot, ordered
// from highest to lowest power. Every permission leaf is fully specified;
// the engine never sees a partial role.
func DefaultRoles() []model.Role {
	return []model.Role{
		{
			ID:    "role-superadminpel",
			Name:  RoleSuperAdmin,
			Power: 100,
			Permissions: model.Permissions{
				CanManageRoles: true,
				CanAssignRoles: true,
				View: model.ViewGrants{
					Dashboard: true, Map: true, Routes: true, Alerts: true,
					Users: true, Reports: true, Settings: true,
					TelemetryFields: model.TelemetryGrants{
						model.FieldFillLevel:   true,
						model.FieldVibration:   true,
						model.FieldTemperature: true,
					},
				},
			},
		},
		{
			ID:    "role-adminpel",
			Name:  RoleAdmin,
			Power: 80,
			Permissions: model.Permissions{
				CanManageRoles: true,
				CanAssignRoles: true,
				View: model.ViewGrants{
					Dashboard: true, Map: true, Routes: true, Alerts: true,
					TelemetryFields: model.TelemetryGrants{
						model.FieldFillLevel:   true,
						model.FieldVibration:   true,
						model.FieldTemperature: true,
					},
				},
			},
		},
		{
			ID:    "role-distributor",
			Name:  RoleDistributor,
			Power: 60,
			Permissions: model.Permissions{
				View: model.ViewGrants{
					Dashboard: true, Map: true, Routes: true,
					TelemetryFields: model.TelemetryGrants{
						model.FieldFillLevel:   true,
						model.FieldVibration:   false,
						model.FieldTemperature: false,
					},
				},
			},
		},
		{
			ID:    "role-technician",
			Name:  RoleTechnician,
			Power: 50,
			Permissions: model.Permissions{
				View: model.ViewGrants{
					Dashboard: true, Map: true, Alerts: true,
					TelemetryFields: model.TelemetryGrants{
						model.FieldFillLevel:   true,
						model.FieldVibration:   true,
						model.FieldTemperature: true,
					},
				},
			},
		},
		{
			ID:    "role-customer",
			Name:  RoleCustomer,
			Power: 40,
			Permissions: model.Permissions{
				View: model.ViewGrants{
					Dashboard: true,
					TelemetryFields: model.TelemetryGrants{
						model.FieldFillLevel:   true,
						model.FieldVibration:   false,
						model.FieldTemperature: false,
					},
				},
			},
		},
	}
}

// LowestPrivilegeTemplate returns the permission set applied to roles
// created without explicit permissions: the Customer grants.
func LowestPrivilegeTemplate() model.Permissions {
	defaults := DefaultRoles()
	return defaults[len(defaults)-1].Permissions
}

// RoleByID returns the role with the given ID, or nil. Linear scan; the
// role collection is bounded by administrative role count.
func RoleByID(roles []model.Role, id string) *model.Role {
	for i := range roles {
		if roles[i].ID == id {
			return &roles[i]
		}
	}
	return nil
}

// RoleByName returns the role with the given name, or nil.
func RoleByName(roles []model.Role, name string) *model.Role {
	for i := range roles {
		if roles[i].Name == name {
			return &roles[i]
		}
	}
	return nil
}
