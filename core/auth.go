package core

import (
	"errors"
	"time"
)

// ProviderLocal tags accounts registered with a username and password.
const ProviderLocal = "local"

// Account is a user identity, either local-password-based or linked to an
// external provider. Nickname and ExternalID use "" for absent; the
// repository maps "" to NULL so the partial unique indexes apply.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	Nickname     string
	AuthProvider string
	ExternalID   string
	CreatedAt    time.Time
}

// UserSummary is the account projection returned to handlers.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

// Summary builds the handler-facing projection.
func (a *Account) Summary() UserSummary {
	return UserSummary{ID: a.ID, Username: a.Username, Nickname: a.Nickname}
}

var (
	// ErrInvalidCredentials is returned when username/password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken surfaces a unique violation on the username index.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrNicknameTaken surfaces a unique violation on the nickname index.
	ErrNicknameTaken = errors.New("nickname already taken")
	// ErrExternalIDTaken surfaces a unique violation on (provider, external id).
	ErrExternalIDTaken = errors.New("external identity already linked")
	// ErrInvalidAssertion is returned for unusable provider assertions.
	ErrInvalidAssertion = errors.New("invalid provider assertion")
)

// AuthResult reports the outcome of a login or registration attempt.
// Business-rule failures set Success=false with a user-facing Message;
// infrastructure faults are returned as errors instead.
type AuthResult struct {
	Success bool
	Message string
	Account *Account
}
