package store

import (
	"log/slog"
	"strings"

	"github.com/britebottle/fleet/internal/rbac"
)

// Reconcile brings the document up to the current schema and repairs legacy
// records. It runs once per boot, before the server accepts requests, and
// is idempotent: a second run leaves the document unchanged.
//
// Steps, in order:
//  1. Seed the default role set if no roles exist.
//  2. Migrate v1 users carrying the flat "roles" tag array to roleId
//     (legacy "admin" tag maps to the highest-power role) and strip the
//     array. Guarded by the document schema version.
//  3. Assign the lowest-power role to any user still lacking a roleId.
//  4. Force the designated seed administrator to the highest-power role
//     and approved.
//  5. Backfill approved=true for users predating the approval field.
//  6. Normalize every profile so renderers never see partial data.
func (s *Store) Reconcile(adminEmail string, log *slog.Logger) error {
	return s.Update(func(doc *Document) error {
		if len(doc.Roles) == 0 {
			doc.Roles = rbac.DefaultRoles()
			log.Info("seeded default roles", "count", len(doc.Roles))
		}

		super := rbac.RoleByName(doc.Roles, rbac.RoleSuperAdmin)
		customer := rbac.RoleByName(doc.Roles, rbac.RoleCustomer)
		if super == nil {
			defaults := rbac.DefaultRoles()
			super = &defaults[0]
		}
		if customer == nil {
			defaults := rbac.DefaultRoles()
			customer = &defaults[len(defaults)-1]
		}

		if doc.SchemaVersion < SchemaVersion {
			migrated := 0
			for i := range doc.Users {
				u := &doc.Users[i]
				if u.RoleID == "" {
					u.RoleID = customer.ID
					if u.HasLegacyAdmin() {
						u.RoleID = super.ID
					}
					migrated++
				}
				u.LegacyRoles = nil
			}
			doc.SchemaVersion = SchemaVersion
			if migrated > 0 {
				log.Info("migrated legacy users to roleId", "count", migrated)
			}
		}

		for i := range doc.Users {
			u := &doc.Users[i]
			if u.RoleID == "" {
				u.RoleID = customer.ID
			}
			if u.Approved == nil {
				approved := true
				u.Approved = &approved
			}
			u.Profile = u.Profile.Normalized()
		}

		if adminEmail != "" {
			for i := range doc.Users {
				u := &doc.Users[i]
				if strings.EqualFold(u.Email, adminEmail) {
					u.RoleID = super.ID
					approved := true
					u.Approved = &approved
				}
			}
		}

		return nil
	})
}
