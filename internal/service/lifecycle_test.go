package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/rbac"
	"github.com/britebottle/fleet/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleet.json")
	s, err := store.Open(path, store.SeedOptions{})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return s
}

func storedRole(t *testing.T, s *store.Store, name string) *model.Role {
	t.Helper()
	roles, err := s.Roles()
	if err != nil {
		t.Fatalf("Roles: %v", err)
	}
	r := rbac.RoleByName(roles, name)
	if r == nil {
		t.Fatalf("role %q not found", name)
	}
	return r
}

func TestCreateRole_PowerMustBeLower(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	ctx := context.Background()
	admin := storedRole(t, s, rbac.RoleAdmin) // power 80

	if _, err := lc.CreateRole(ctx, admin, "Peer", 80, nil); !errors.Is(err, ErrPowerNotLower) {
		t.Errorf("equal power: got %v, want ErrPowerNotLower", err)
	}
	if _, err := lc.CreateRole(ctx, admin, "Boss", 90, nil); !errors.Is(err, ErrPowerNotLower) {
		t.Errorf("higher power: got %v, want ErrPowerNotLower", err)
	}

	role, err := lc.CreateRole(ctx, admin, "Operator", 45, nil)
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	if role.Power != 45 {
		t.Errorf("power = %d, want 45", role.Power)
	}
	// Omitted permissions default to the least-privileged template.
	if role.Permissions.CanManageRoles || role.Permissions.CanAssignRoles {
		t.Error("default permissions must not include management")
	}
}

func TestCreateRole_RequiresPermissionAndUniqueName(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	ctx := context.Background()

	tech := storedRole(t, s, rbac.RoleTechnician)
	if _, err := lc.CreateRole(ctx, tech, "X", 10, nil); !errors.Is(err, ErrMissingPermission) {
		t.Errorf("no manage permission: got %v, want ErrMissingPermission", err)
	}
	if _, err := lc.CreateRole(ctx, nil, "X", 10, nil); !errors.Is(err, ErrMissingPermission) {
		t.Errorf("nil actor: got %v, want ErrMissingPermission", err)
	}

	super := storedRole(t, s, rbac.RoleSuperAdmin)
	if _, err := lc.CreateRole(ctx, super, rbac.RoleCustomer, 10, nil); !errors.Is(err, ErrDuplicateRoleName) {
		t.Errorf("duplicate name: got %v, want ErrDuplicateRoleName", err)
	}
}

func TestUpdateRole_BlocksEscalationViaPatch(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	ctx := context.Background()
	admin := storedRole(t, s, rbac.RoleAdmin)      // power 80
	tech := storedRole(t, s, rbac.RoleTechnician)  // power 50
	super := storedRole(t, s, rbac.RoleSuperAdmin) // power 100

	// Raising a managed role to the actor's own power must fail.
	eighty := 80
	if _, err := lc.UpdateRole(ctx, admin, tech.ID, RolePatch{Power: &eighty}); !errors.Is(err, ErrPowerNotLower) {
		t.Errorf("patch to equal power: got %v, want ErrPowerNotLower", err)
	}

	// Editing a peer or superior must fail even without a power change.
	name := "Renamed"
	if _, err := lc.UpdateRole(ctx, admin, super.ID, RolePatch{Name: &name}); !errors.Is(err, ErrMissingPermission) {
		t.Errorf("edit superior: got %v, want ErrMissingPermission", err)
	}

	// A legal partial update touches only the named fields.
	sixty := 60
	updated, err := lc.UpdateRole(ctx, admin, tech.ID, RolePatch{Power: &sixty})
	if err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if updated.Power != 60 || updated.Name != rbac.RoleTechnician {
		t.Errorf("patch result = %q/%d, want Technician/60", updated.Name, updated.Power)
	}
}

func TestUpdateRole_RenameConflict(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	ctx := context.Background()
	super := storedRole(t, s, rbac.RoleSuperAdmin)
	tech := storedRole(t, s, rbac.RoleTechnician)

	name := rbac.RoleCustomer
	if _, err := lc.UpdateRole(ctx, super, tech.ID, RolePatch{Name: &name}); !errors.Is(err, ErrDuplicateRoleName) {
		t.Errorf("rename onto existing name: got %v, want ErrDuplicateRoleName", err)
	}
}

func TestDeleteRole_InUse(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	ctx := context.Background()
	super := storedRole(t, s, rbac.RoleSuperAdmin)
	customer := storedRole(t, s, rbac.RoleCustomer)

	if _, err := lc.CreateUser(ctx, UserInput{Email: "c@example.com", Password: "supersecret", RoleID: customer.ID}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := lc.DeleteRole(ctx, super, customer.ID); !errors.Is(err, ErrRoleInUse) {
		t.Errorf("delete referenced role: got %v, want ErrRoleInUse", err)
	}

	tech := storedRole(t, s, rbac.RoleTechnician)
	if err := lc.DeleteRole(ctx, super, tech.ID); err != nil {
		t.Errorf("delete unreferenced role: %v", err)
	}
}

func TestAssignRole_Preconditions(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	ctx := context.Background()
	admin := storedRole(t, s, rbac.RoleAdmin)      // power 80
	super := storedRole(t, s, rbac.RoleSuperAdmin) // power 100
	tech := storedRole(t, s, rbac.RoleTechnician)

	user, err := lc.CreateUser(ctx, UserInput{Email: "u@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// Happy path: admin assigns a lower role.
	view, err := lc.AssignRole(ctx, admin, user.ID, RoleRef{ID: tech.ID})
	if err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if view.Role == nil || view.Role.ID != tech.ID {
		t.Fatalf("assigned role = %+v, want technician", view.Role)
	}

	// Cannot hand out a role at or above the actor's own power.
	if _, err := lc.AssignRole(ctx, admin, user.ID, RoleRef{ID: admin.ID}); !errors.Is(err, ErrOutrankNewRole) {
		t.Errorf("assign own power: got %v, want ErrOutrankNewRole", err)
	}
	if _, err := lc.AssignRole(ctx, admin, user.ID, RoleRef{ID: super.ID}); !errors.Is(err, ErrOutrankNewRole) {
		t.Errorf("assign higher power: got %v, want ErrOutrankNewRole", err)
	}

	// Cannot demote a user whose current role the actor does not outrank.
	if _, err := lc.AssignRole(ctx, super, user.ID, RoleRef{ID: admin.ID}); err != nil {
		t.Fatalf("promote to admin: %v", err)
	}
	if _, err := lc.AssignRole(ctx, admin, user.ID, RoleRef{ID: tech.ID}); !errors.Is(err, ErrOutrankCurrentRole) {
		t.Errorf("demote a peer: got %v, want ErrOutrankCurrentRole", err)
	}

	// Missing permission and bad references.
	if _, err := lc.AssignRole(ctx, tech, user.ID, RoleRef{ID: tech.ID}); !errors.Is(err, ErrMissingPermission) {
		t.Errorf("assign without permission: got %v, want ErrMissingPermission", err)
	}
	if _, err := lc.AssignRole(ctx, admin, user.ID, RoleRef{ID: "nope"}); !errors.Is(err, ErrInvalidRoleRef) {
		t.Errorf("unknown role ref: got %v, want ErrInvalidRoleRef", err)
	}

	// Reference by name works too.
	u2, _ := lc.CreateUser(ctx, UserInput{Email: "u2@example.com", Password: "supersecret"})
	if _, err := lc.AssignRole(ctx, admin, u2.ID, RoleRef{Name: rbac.RoleTechnician}); err != nil {
		t.Errorf("assign by name: %v", err)
	}
}

func TestSetApproval_GuardsPeers(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	ctx := context.Background()
	admin := storedRole(t, s, rbac.RoleAdmin)
	super := storedRole(t, s, rbac.RoleSuperAdmin)

	user, _ := lc.CreateUser(ctx, UserInput{Email: "peer@example.com", Password: "supersecret", RoleID: admin.ID})

	if _, err := lc.SetApproval(ctx, nil, user.ID, true); !errors.Is(err, ErrNoRequesterRole) {
		t.Errorf("nil actor: got %v, want ErrNoRequesterRole", err)
	}
	if _, err := lc.SetApproval(ctx, admin, user.ID, false); !errors.Is(err, ErrCannotManagePeer) {
		t.Errorf("pause a peer: got %v, want ErrCannotManagePeer", err)
	}

	view, err := lc.SetApproval(ctx, super, user.ID, false)
	if err != nil {
		t.Fatalf("SetApproval: %v", err)
	}
	if view.Approved {
		t.Error("expected user to be paused")
	}
}

func TestRegister_StartsUnapprovedOnLowestRole(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	ctx := context.Background()

	user, err := lc.Register(ctx, UserInput{Email: "new@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.IsApproved() {
		t.Error("registered user must wait for approval")
	}
	customer := storedRole(t, s, rbac.RoleCustomer)
	if user.RoleID != customer.ID {
		t.Errorf("role = %q, want lowest role", user.RoleID)
	}

	if _, err := lc.Register(ctx, UserInput{Email: "NEW@example.com", Password: "supersecret"}); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("duplicate email (case-insensitive): got %v, want ErrDuplicateEmail", err)
	}
}

func TestUpdateUser_EmailConflictAndProfileNormalization(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	ctx := context.Background()

	a, _ := lc.CreateUser(ctx, UserInput{Email: "a@example.com", Password: "supersecret"})
	_, _ = lc.CreateUser(ctx, UserInput{Email: "b@example.com", Password: "supersecret"})

	email := "B@example.com"
	if _, err := lc.UpdateUser(ctx, a.ID, UserPatch{Email: &email}); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("email conflict: got %v, want ErrDuplicateEmail", err)
	}

	view, err := lc.UpdateUser(ctx, a.ID, UserPatch{Profile: &model.Profile{Company: "PEL"}})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if view.Profile.Language != "en" {
		t.Errorf("profile language = %q, want normalized default", view.Profile.Language)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	auth := NewAuthService(s, "test-secret", 0)
	ctx := context.Background()

	if _, err := lc.CreateUser(ctx, UserInput{Email: "r@example.com", Password: "oldpassword"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, found, err := lc.CreatePasswordReset(ctx, "r@example.com")
	if err != nil || !found {
		t.Fatalf("CreatePasswordReset = %v, found=%v", err, found)
	}

	// Unknown accounts yield no token but also no error.
	_, found, err = lc.CreatePasswordReset(ctx, "ghost@example.com")
	if err != nil || found {
		t.Fatalf("unknown account: err=%v found=%v", err, found)
	}

	if err := lc.ResetPassword(ctx, token, "newpassword1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	// Token is single-use.
	if err := lc.ResetPassword(ctx, token, "another"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("reused token: got %v, want ErrResetTokenInvalid", err)
	}

	if _, _, err := auth.Login(ctx, "r@example.com", "newpassword1"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, _, err := auth.Login(ctx, "r@example.com", "oldpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("login with old password: got %v, want ErrInvalidCredentials", err)
	}
}
