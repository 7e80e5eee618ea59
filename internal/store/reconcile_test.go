package store

import (
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/rbac"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedLegacyUsers(t *testing.T, s *Store) {
	t.Helper()
	err := s.Update(func(doc *Document) error {
		doc.SchemaVersion = 1
		doc.Users = append(doc.Users,
			model.User{ID: "u-legacy-admin", Email: "old-admin@example.com", LegacyRoles: []string{"admin"}},
			model.User{ID: "u-legacy-plain", Email: "old-user@example.com"},
		)
		return nil
	})
	if err != nil {
		t.Fatalf("seed legacy users: %v", err)
	}
}

func TestReconcile_MigratesLegacyRoles(t *testing.T) {
	s := tempStore(t, SeedOptions{})
	seedLegacyUsers(t, s)

	if err := s.Reconcile("", discardLogger()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	s.View(func(doc *Document) error {
		super := rbac.RoleByName(doc.Roles, rbac.RoleSuperAdmin)
		customer := rbac.RoleByName(doc.Roles, rbac.RoleCustomer)

		for _, u := range doc.Users {
			if u.LegacyRoles != nil {
				t.Errorf("user %s still carries the legacy roles array", u.ID)
			}
			if u.Approved == nil {
				t.Errorf("user %s missing approval backfill", u.ID)
			}
		}
		if admin := findUserInDoc(doc, "u-legacy-admin"); admin.RoleID != super.ID {
			t.Errorf("legacy admin mapped to %q, want highest role", admin.RoleID)
		}
		if plain := findUserInDoc(doc, "u-legacy-plain"); plain.RoleID != customer.ID {
			t.Errorf("legacy plain user mapped to %q, want lowest role", plain.RoleID)
		}
		if doc.SchemaVersion != SchemaVersion {
			t.Errorf("schema version = %d, want %d", doc.SchemaVersion, SchemaVersion)
		}
		return nil
	})
}

func TestReconcile_Idempotent(t *testing.T) {
	s := tempStore(t, SeedOptions{AdminEmail: "admin@example.com", AdminPassword: "supersecret"})
	seedLegacyUsers(t, s)

	if err := s.Reconcile("admin@example.com", discardLogger()); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}

	var first Document
	s.View(func(doc *Document) error {
		clone, err := doc.clone()
		if err != nil {
			t.Fatalf("clone: %v", err)
		}
		first = *clone
		return nil
	})

	if err := s.Reconcile("admin@example.com", discardLogger()); err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}

	s.View(func(doc *Document) error {
		if !reflect.DeepEqual(&first, doc) {
			t.Error("second reconciliation changed the document; it must be idempotent")
		}
		return nil
	})
}

func TestReconcile_ForcesSeedAdmin(t *testing.T) {
	s := tempStore(t, SeedOptions{})
	err := s.Update(func(doc *Document) error {
		approved := false
		customer := rbac.RoleByName(doc.Roles, rbac.RoleCustomer)
		doc.Users = append(doc.Users, model.User{
			ID: "u-demoted", Email: "Boss@Example.com", RoleID: customer.ID, Approved: &approved,
		})
		return nil
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	// The configured admin email is matched case-insensitively.
	if err := s.Reconcile("boss@example.com", discardLogger()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	s.View(func(doc *Document) error {
		super := rbac.RoleByName(doc.Roles, rbac.RoleSuperAdmin)
		boss := findUserInDoc(doc, "u-demoted")
		if boss.RoleID != super.ID {
			t.Errorf("seed admin role = %q, want highest role", boss.RoleID)
		}
		if !boss.IsApproved() {
			t.Error("seed admin must be approved")
		}
		return nil
	})
}

func TestReconcile_SeedsRolesWhenEmpty(t *testing.T) {
	s := tempStore(t, SeedOptions{})
	err := s.Update(func(doc *Document) error {
		doc.Roles = nil
		return nil
	})
	if err != nil {
		t.Fatalf("clear roles: %v", err)
	}

	if err := s.Reconcile("", discardLogger()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	roles, _ := s.Roles()
	if len(roles) != 5 {
		t.Errorf("expected 5 reseeded roles, got %d", len(roles))
	}
}

func findUserInDoc(doc *Document, id string) *model.User {
	for i := range doc.Users {
		if doc.Users[i].ID == id {
			return &doc.Users[i]
		}
	}
	return nil
}
