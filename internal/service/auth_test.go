package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/rbac"
)

func TestLogin_CredentialAndApprovalGates(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	auth := NewAuthService(s, "test-secret", time.Hour)
	ctx := context.Background()

	if _, err := lc.CreateUser(ctx, UserInput{Email: "ok@example.com", Password: "supersecret"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := lc.Register(ctx, UserInput{Email: "pending@example.com", Password: "supersecret"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := auth.Login(ctx, "ok@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := auth.Login(ctx, "ghost@example.com", "supersecret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown account: got %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := auth.Login(ctx, "pending@example.com", "supersecret"); !errors.Is(err, ErrNotApproved) {
		t.Errorf("unapproved account: got %v, want ErrNotApproved", err)
	}

	user, token, err := auth.Login(ctx, "OK@example.com", "supersecret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Email != "ok@example.com" || token == "" {
		t.Errorf("login result = %q / token %q", user.Email, token)
	}
}

func TestAuthenticate_TokenRoundTrip(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	auth := NewAuthService(s, "test-secret", time.Hour)
	ctx := context.Background()

	tech := storedRole(t, s, rbac.RoleTechnician)
	user, err := lc.CreateUser(ctx, UserInput{Name: "Tess", Email: "t@example.com", Password: "supersecret", RoleID: tech.ID})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, err := auth.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	id, err := auth.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.ID != user.ID || id.Email != "t@example.com" || id.Name != "Tess" {
		t.Errorf("identity = %+v", id)
	}
	if id.Role == nil || id.Role.Name != rbac.RoleTechnician {
		t.Errorf("identity role = %+v, want technician", id.Role)
	}

	// Tokens signed with a different secret are rejected.
	other := NewAuthService(s, "another-secret", time.Hour)
	if _, err := other.Authenticate(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong secret: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := auth.Authenticate(ctx, "not-a-token"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("garbage token: got %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	auth := NewAuthService(s, "test-secret", -time.Minute)
	ctx := context.Background()

	user, err := lc.CreateUser(ctx, UserInput{Email: "e@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := auth.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := auth.Authenticate(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expired token: got %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	s := newTestStore(t)
	lc := NewLifecycle(s)
	auth := NewAuthService(s, "test-secret", time.Hour)
	ctx := context.Background()

	user, err := lc.CreateUser(ctx, UserInput{Email: "gone@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := auth.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if err := lc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	// A valid signature over a deleted subject must not authenticate.
	if _, err := auth.Authenticate(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("deleted subject: got %v, want ErrInvalidCredentials", err)
	}
}

func TestResolveRole(t *testing.T) {
	roles := rbac.DefaultRoles()
	tech := rbac.RoleByName(roles, rbac.RoleTechnician)
	super := rbac.RoleByName(roles, rbac.RoleSuperAdmin)

	// roleId wins, even when a legacy tag is present.
	u := &model.User{RoleID: tech.ID, LegacyRoles: []string{"admin"}}
	if got := ResolveRole(roles, u); got == nil || got.ID != tech.ID {
		t.Errorf("ResolveRole = %+v, want technician", got)
	}

	// Legacy admin tag without a roleId falls back to the highest role.
	u = &model.User{LegacyRoles: []string{"admin"}}
	if got := ResolveRole(roles, u); got == nil || got.ID != super.ID {
		t.Errorf("ResolveRole = %+v, want highest role", got)
	}

	// No roleId and no legacy tag resolves to no role at all.
	if got := ResolveRole(roles, &model.User{}); got != nil {
		t.Errorf("ResolveRole = %+v, want nil", got)
	}

	// Dangling roleId without a legacy tag also resolves to nil.
	if got := ResolveRole(roles, &model.User{RoleID: "deleted-role"}); got != nil {
		t.Errorf("dangling roleId: ResolveRole = %+v, want nil", got)
	}
}
