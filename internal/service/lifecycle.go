package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/rbac"
	"github.com/britebottle/fleet/internal/store"
)

// Lifecycle is the only component that mutates the role and user
// collections. Every operation consults the rbac decision functions before
// touching the document, and each read-modify-write runs as one atomic
// store update: either all invariant checks pass and the merged record is
// persisted, or nothing is written.
type Lifecycle struct {
	store *store.Store
}

// NewLifecycle creates the role/user lifecycle manager.
func NewLifecycle(st *store.Store) *Lifecycle {
	return &Lifecycle{store: st}
}

// RolePatch is a partial role update. Nil fields are left unchanged.
type RolePatch struct {
	Name        *string            `json:"name"`
	Power       *int               `json:"power"`
	Permissions *model.Permissions `json:"permissions"`
}

// RoleRef names a role by ID or, failing that, by name.
type RoleRef struct {
	ID   string `json:"roleId"`
	Name string `json:"roleName"`
}

// ListRoles returns all roles. Visibility is not power-gated; only
// mutations are.
func (l *Lifecycle) ListRoles(ctx context.Context) ([]model.Role, error) {
	return l.store.Roles()
}

// CreateRole creates a new role strictly below the actor's power. A nil
// permissions set defaults to the lowest-privilege template.
func (l *Lifecycle) CreateRole(ctx context.Context, actor *model.Role, name string, power int, perms *model.Permissions) (*model.Role, error) {
	if !rbac.CanManageRoles(actor) {
		return nil, ErrMissingPermission
	}
	if power >= actor.Power {
		return nil, ErrPowerNotLower
	}

	permissions := rbac.LowestPrivilegeTemplate()
	if perms != nil {
		permissions = *perms
	}
	role := model.Role{
		ID:          uuid.NewString(),
		Name:        name,
		Power:       power,
		Permissions: permissions,
	}

	err := l.store.Update(func(doc *store.Document) error {
		if rbac.RoleByName(doc.Roles, name) != nil {
			return ErrDuplicateRoleName
		}
		doc.Roles = append(doc.Roles, role)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// UpdateRole merges a patch into an existing role. The merged power must
// remain strictly below the actor's: escalation via edit is blocked the
// same way as escalation via creation.
func (l *Lifecycle) UpdateRole(ctx context.Context, actor *model.Role, targetID string, patch RolePatch) (*model.Role, error) {
	var updated model.Role
	err := l.store.Update(func(doc *store.Document) error {
		target := rbac.RoleByID(doc.Roles, targetID)
		if target == nil {
			return store.ErrNotFound
		}
		if !rbac.CanManageTarget(actor, target) {
			return ErrMissingPermission
		}

		next := *target
		if patch.Name != nil {
			next.Name = *patch.Name
		}
		if patch.Power != nil {
			next.Power = *patch.Power
		}
		if patch.Permissions != nil {
			next.Permissions = *patch.Permissions
		}
		if next.Power >= actor.Power {
			return ErrPowerNotLower
		}
		if next.Name != target.Name {
			if other := rbac.RoleByName(doc.Roles, next.Name); other != nil && other.ID != target.ID {
				return ErrDuplicateRoleName
			}
		}

		*target = next
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteRole removes a role the actor outranks, provided no user still
// references it. Referential integrity is enforced here, not via cascade.
func (l *Lifecycle) DeleteRole(ctx context.Context, actor *model.Role, targetID string) error {
	return l.store.Update(func(doc *store.Document) error {
		idx := -1
		for i := range doc.Roles {
			if doc.Roles[i].ID == targetID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return store.ErrNotFound
		}
		if !rbac.CanManageTarget(actor, &doc.Roles[idx]) {
			return ErrMissingPermission
		}
		for i := range doc.Users {
			if doc.Users[i].RoleID == targetID {
				return ErrRoleInUse
			}
		}
		doc.Roles = append(doc.Roles[:idx], doc.Roles[idx+1:]...)
		return nil
	})
}

// AssignRole changes a user's role. The actor must hold the assign
// permission and outrank both the user's current role (a roleless user is
// minimal power, always outrankable) and the new role.
func (l *Lifecycle) AssignRole(ctx context.Context, actor *model.Role, userID string, ref RoleRef) (*model.UserView, error) {
	var view model.UserView
	err := l.store.Update(func(doc *store.Document) error {
		user := findUser(doc, userID)
		if user == nil {
			return store.ErrNotFound
		}
		newRole := rbac.RoleByID(doc.Roles, ref.ID)
		if newRole == nil && ref.Name != "" {
			newRole = rbac.RoleByName(doc.Roles, ref.Name)
		}
		if newRole == nil {
			return ErrInvalidRoleRef
		}
		if !rbac.CanAssignRoles(actor) {
			return ErrMissingPermission
		}
		if !rbac.OutranksUser(actor, rbac.RoleByID(doc.Roles, user.RoleID)) {
			return ErrOutrankCurrentRole
		}
		if !rbac.CanAssignTarget(actor, newRole) {
			return ErrOutrankNewRole
		}

		user.RoleID = newRole.ID
		view = userView(doc.Roles, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// SetApproval toggles a user's approval flag. Requires canManageRoles and
// strictly outranking the target's role, so a manager can never pause a
// peer or a superior.
func (l *Lifecycle) SetApproval(ctx context.Context, actor *model.Role, userID string, approved bool) (*model.UserView, error) {
	if actor == nil {
		return nil, ErrNoRequesterRole
	}
	if !rbac.CanManageRoles(actor) {
		return nil, ErrMissingPermission
	}
	var view model.UserView
	err := l.store.Update(func(doc *store.Document) error {
		user := findUser(doc, userID)
		if user == nil {
			return store.ErrNotFound
		}
		if target := rbac.RoleByID(doc.Roles, user.RoleID); target != nil && target.Power >= actor.Power {
			return ErrCannotManagePeer
		}
		user.Approved = &approved
		view = userView(doc.Roles, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// UserInput carries the fields for creating an account.
type UserInput struct {
	Name     string        `json:"name"`
	Email    string        `json:"email" validate:"required,email"`
	Password string        `json:"password" validate:"required,min=8"`
	RoleID   string        `json:"roleId"`
	Profile  model.Profile `json:"profile"`
}

// Register creates a self-service account: lowest-power role, unapproved
// until an administrator flips the flag.
func (l *Lifecycle) Register(ctx context.Context, in UserInput) (*model.User, error) {
	return l.createUser(ctx, in, false, true)
}

// CreateUser creates an account administratively: approved immediately,
// role taken from the input when given.
func (l *Lifecycle) CreateUser(ctx context.Context, in UserInput) (*model.User, error) {
	return l.createUser(ctx, in, true, false)
}

func (l *Lifecycle) createUser(ctx context.Context, in UserInput, approved, forceCustomer bool) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	name := in.Name
	if name == "" {
		name = in.Email
	}
	user := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Approved:     &approved,
		Profile:      in.Profile.Normalized(),
	}

	err = l.store.Update(func(doc *store.Document) error {
		for i := range doc.Users {
			if strings.EqualFold(doc.Users[i].Email, in.Email) {
				return ErrDuplicateEmail
			}
		}
		user.RoleID = in.RoleID
		if forceCustomer || user.RoleID == "" {
			if customer := rbac.RoleByName(doc.Roles, rbac.RoleCustomer); customer != nil {
				user.RoleID = customer.ID
			}
		}
		doc.Users = append(doc.Users, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPatch is a partial user update. Password changes are not accepted
// here; they go through the reset flow.
type UserPatch struct {
	Name    *string        `json:"name"`
	Email   *string        `json:"email"`
	Profile *model.Profile `json:"profile"`
}

// UpdateUser merges a patch into a user record, guarding email uniqueness.
func (l *Lifecycle) UpdateUser(ctx context.Context, userID string, patch UserPatch) (*model.UserView, error) {
	var view model.UserView
	err := l.store.Update(func(doc *store.Document) error {
		user := findUser(doc, userID)
		if user == nil {
			return store.ErrNotFound
		}
		if patch.Email != nil {
			for i := range doc.Users {
				if doc.Users[i].ID != userID && strings.EqualFold(doc.Users[i].Email, *patch.Email) {
					return ErrDuplicateEmail
				}
			}
			user.Email = *patch.Email
		}
		if patch.Name != nil {
			user.Name = *patch.Name
		}
		if patch.Profile != nil {
			user.Profile = patch.Profile.Normalized()
		} else {
			user.Profile = user.Profile.Normalized()
		}
		view = userView(doc.Roles, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteUser removes a user record.
func (l *Lifecycle) DeleteUser(ctx context.Context, userID string) error {
	return l.store.Update(func(doc *store.Document) error {
		for i := range doc.Users {
			if doc.Users[i].ID == userID {
				doc.Users = append(doc.Users[:i], doc.Users[i+1:]...)
				return nil
			}
		}
		return store.ErrNotFound
	})
}

// ListUsers returns all users in their client-facing shape.
func (l *Lifecycle) ListUsers(ctx context.Context) ([]model.UserView, error) {
	var out []model.UserView
	err := l.store.View(func(doc *store.Document) error {
		for i := range doc.Users {
			out = append(out, userView(doc.Roles, &doc.Users[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

const resetTokenTTL = time.Hour

// CreatePasswordReset issues a reset token for the account with the given
// email. It reports found=false when no such account exists; callers must
// still answer OK to avoid user enumeration.
func (l *Lifecycle) CreatePasswordReset(ctx context.Context, email string) (token string, found bool, err error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", false, err
	}
	token = hex.EncodeToString(buf)

	err = l.store.Update(func(doc *store.Document) error {
		user := findUserByEmail(doc, email)
		if user == nil {
			return nil
		}
		found = true
		kept := doc.PasswordResets[:0]
		for _, pr := range doc.PasswordResets {
			if pr.UserID != user.ID {
				kept = append(kept, pr)
			}
		}
		doc.PasswordResets = append(kept, model.PasswordReset{
			Token:     token,
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(resetTokenTTL),
		})
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return token, found, nil
}

// ResetPassword consumes a reset token and sets a new password.
func (l *Lifecycle) ResetPassword(ctx context.Context, token, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return l.store.Update(func(doc *store.Document) error {
		var entry *model.PasswordReset
		for i := range doc.PasswordResets {
			if doc.PasswordResets[i].Token == token {
				entry = &doc.PasswordResets[i]
				break
			}
		}
		if entry == nil || entry.ExpiresAt.Before(time.Now()) {
			return ErrResetTokenInvalid
		}
		user := findUser(doc, entry.UserID)
		if user == nil {
			return ErrResetTokenInvalid
		}
		user.PasswordHash = string(hash)

		kept := doc.PasswordResets[:0]
		for _, pr := range doc.PasswordResets {
			if pr.Token != token {
				kept = append(kept, pr)
			}
		}
		doc.PasswordResets = kept
		return nil
	})
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func findUser(doc *store.Document, id string) *model.User {
	for i := range doc.Users {
		if doc.Users[i].ID == id {
			return &doc.Users[i]
		}
	}
	return nil
}

func findUserByEmail(doc *store.Document, email string) *model.User {
	for i := range doc.Users {
		if strings.EqualFold(doc.Users[i].Email, email) {
			return &doc.Users[i]
		}
	}
	return nil
}

// userView builds the client-facing user shape with the role hydrated.
func userView(roles []model.Role, u *model.User) model.UserView {
	view := model.UserView{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Profile:  u.Profile.Normalized(),
		Approved: u.IsApproved(),
	}
	if role := ResolveRole(roles, u); role != nil {
		r := *role
		view.Role = &r
	}
	return view
}

// UserViewOf exposes userView for handlers serializing single users.
func (l *Lifecycle) UserViewOf(ctx context.Context, userID string) (*model.UserView, error) {
	var view model.UserView
	err := l.store.View(func(doc *store.Document) error {
		user := findUser(doc, userID)
		if user == nil {
			return store.ErrNotFound
		}
		view = userView(doc.Roles, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}
