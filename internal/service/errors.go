package service

import "errors"

// Authentication failures. These surface as a generic 401 so responses
// never reveal whether an account exists.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotApproved        = errors.New("waiting for registration to be approved")
	ErrResetTokenInvalid  = errors.New("invalid or expired token")
)

// Authorization failures (403). Messages are deliberately power-value-free.
var (
	ErrNoRequesterRole    = errors.New("requester has no role")
	ErrMissingPermission  = errors.New("insufficient permissions")
	ErrPowerNotLower      = errors.New("role power must remain lower than your role")
	ErrCannotManagePeer   = errors.New("cannot manage equal or higher role")
	ErrOutrankCurrentRole = errors.New("must outrank the user's current role")
	ErrOutrankNewRole     = errors.New("must outrank the target role")
)

// Conflicts (409).
var (
	ErrDuplicateRoleName = errors.New("role name already exists")
	ErrDuplicateEmail    = errors.New("email already in use")
	ErrDuplicateSerial   = errors.New("serial already exists")
	ErrRoleInUse         = errors.New("role is assigned to users")
)

// Validation failures (400).
var (
	ErrInvalidRoleRef   = errors.New("roleId or roleName required or invalid")
	ErrInvalidEventType = errors.New("invalid event type")
)
