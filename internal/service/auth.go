package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/rbac"
	"github.com/britebottle/fleet/internal/store"
)

// Identity is the resolved acting user for one request: the user record
// joined with its hydrated role. It is resolved freshly on every request
// against current store state — roles and approval can change between
// requests, so it is never cached.
type Identity struct {
	ID     string
	Email  string
	Name   string
	RoleID string
	Role   *model.Role
}

// AuthService verifies credentials and issues signed session tokens.
type AuthService struct {
	store     *store.Store
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates an AuthService signing tokens with the given
// secret. ttl bounds token validity.
func NewAuthService(st *store.Store, jwtSecret string, ttl time.Duration) *AuthService {
	return &AuthService{
		store:     st,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  ttl,
	}
}

// TokenTTL returns the configured session token lifetime.
func (s *AuthService) TokenTTL() time.Duration { return s.tokenTTL }

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueToken creates a signed session token for the user.
func (s *AuthService) IssueToken(u *model.User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			Issuer:    "britebottle",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// Authenticate verifies a bearer token and resolves it to an Identity.
// Any verification or lookup failure maps to ErrInvalidCredentials; the
// caller must not distinguish "no such user" from "bad signature".
func (s *AuthService) Authenticate(ctx context.Context, tokenStr string) (*Identity, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.UserByID(claims.Subject)
	if err != nil {
		// Token subject no longer exists (deleted after issuance).
		return nil, ErrInvalidCredentials
	}

	roles, err := s.store.Roles()
	if err != nil {
		return nil, err
	}

	return &Identity{
		ID:     user.ID,
		Email:  user.Email,
		Name:   user.Name,
		RoleID: user.RoleID,
		Role:   ResolveRole(roles, user),
	}, nil
}

// Login checks credentials and the approval gate, returning the user and a
// fresh session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.store.UserByEmail(email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !user.IsApproved() {
		return nil, "", ErrNotApproved
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// ResolveRole hydrates a user's role from the role collection. Users that
// predate the roleId migration and still carry the legacy "admin" tag fall
// back to the highest-power role; the fallback never applies to migrated or
// newly created users, which always have a roleId.
func ResolveRole(roles []model.Role, u *model.User) *model.Role {
	if u.RoleID != "" {
		if r := rbac.RoleByID(roles, u.RoleID); r != nil {
			return r
		}
	}
	if u.HasLegacyAdmin() {
		if r := rbac.RoleByName(roles, rbac.RoleSuperAdmin); r != nil {
			return r
		}
		defaults := rbac.DefaultRoles()
		return &defaults[0]
	}
	return nil
}
