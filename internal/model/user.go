package model

// User is a dashboard account. Passwords are stored as bcrypt hashes and
// never serialized to API clients (see UserView).
type User struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"` // unique, case-insensitive
	PasswordHash string  `json:"passwordHash"`
	RoleID       string  `json:"roleId,omitempty"`
	Profile      Profile `json:"profile"`

	// Approved gates login. A nil value means the field predates the
	// approval feature; startup reconciliation backfills it to true so
	// legacy accounts are never locked out.
	Approved *bool `json:"approved,omitempty"`

	// LegacyRoles is the pre-RBAC flat tag array ("admin", ...). It is
	// consumed once by the roleId migration and stripped afterwards.
	LegacyRoles []string `json:"roles,omitempty"`
}

// IsApproved reports whether the user may log in. Absent means approved,
// matching the pre-approval-feature default.
func (u *User) IsApproved() bool {
	return u.Approved == nil || *u.Approved
}

// HasLegacyAdmin reports whether the user carries the historical "admin"
// tag, which maps to the highest-power role during migration.
func (u *User) HasLegacyAdmin() bool {
	for _, r := range u.LegacyRoles {
		if r == "admin" {
			return true
		}
	}
	return false
}

// Profile is free-form contact information. Not security-relevant, but the
// dashboard expects every field present, so reconciliation normalizes it.
type Profile struct {
	Company  string `json:"company"`
	Language string `json:"language"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Country  string `json:"country"`
	Phone    Phone  `json:"phone"`
}

// Phone splits the dial prefix from the subscriber number.
type Phone struct {
	Dial   string `json:"dial"`
	Number string `json:"number"`
}

// Normalized returns the profile with renderer-safe defaults applied.
func (p Profile) Normalized() Profile {
	if p.Language == "" {
		p.Language = "en"
	}
	return p
}

// UserView is the client-facing shape of a user: no password hash, profile
// normalized, and the role hydrated when one is assigned.
type UserView struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Profile  Profile `json:"profile"`
	Approved bool    `json:"approved"`
	Role     *Role   `json:"role,omitempty"`
}
