package model

import "time"

// Alert is an operator-facing notification raised by a crusher or by the
// ingest pipeline (e.g. high fill level).
type Alert struct {
	ID      string    `json:"id"`
	Level   string    `json:"level"`  // info, warning, error
	Source  string    `json:"source"` // originating crusher ID
	Message string    `json:"message"`
	TS      time.Time `json:"ts"`
}

// PasswordReset is a pending password-reset token. Tokens are single-use
// and expire one hour after issuance.
type PasswordReset struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
