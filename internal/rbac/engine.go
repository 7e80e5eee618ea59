package rbac

import "github.com/britebottle/fleet/internal/model"

// IsHigherPower reports whether a strictly outranks b. Both roles must be
// present: a missing role carries no authority and can never outrank, and
// equal power is never "higher" — peers cannot manage each other.
func IsHigherPower(a, b *model.Role) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Power > b.Power
}

// CanManageRoles reports whether the role may create, update, or delete
// other roles. False for a missing role.
func CanManageRoles(r *model.Role) bool {
	return r != nil && r.Permissions.CanManageRoles
}

// CanAssignRoles reports whether the role may change user role assignments.
func CanAssignRoles(r *model.Role) bool {
	return r != nil && r.Permissions.CanAssignRoles
}

// CanManageTarget reports whether actor may mutate target: it needs the
// manage permission and must strictly outrank the target.
func CanManageTarget(actor, target *model.Role) bool {
	return CanManageRoles(actor) && IsHigherPower(actor, target)
}

// CanAssignTarget reports whether actor may assign target to a user: it
// needs the assign permission and must strictly outrank the new role.
func CanAssignTarget(actor, target *model.Role) bool {
	return CanAssignRoles(actor) && IsHigherPower(actor, target)
}

// OutranksUser reports whether actor outranks a user's current role. A user
// with no role is treated as minimal power, outrankable by any real actor.
func OutranksUser(actor, current *model.Role) bool {
	if actor == nil {
		return false
	}
	if current == nil {
		return true
	}
	return actor.Power > current.Power
}
