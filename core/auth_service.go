package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User-facing messages. Login deliberately reports one message for both
// unknown-username and wrong-password so callers cannot enumerate accounts.
const (
	msgInvalidCredentials = "Invalid username or password"
	msgLoginOK            = "Login successful"
	msgRegisterOK         = "Registration successful"
	msgUsernameNotEmail   = "Please use a valid email address as your username"
	msgUsernameBlocked    = "Please choose an appropriate username"
	msgNicknameFormat     = "Nickname must be 3-20 characters and can only contain letters, numbers, spaces, underscores, and hyphens"
	msgNicknameBlocked    = "Please choose an appropriate nickname"
	msgUsernameTaken      = "Email already exists"
	msgNicknameTaken      = "Nickname already taken"
	msgNicknameTakenRetry = "Nickname already taken. Please try a different one."
)

// AuthService handles local registration and login.
type AuthService struct {
	accounts AccountRepository
}

func NewAuthService(accounts AccountRepository) *AuthService {
	return &AuthService{accounts: accounts}
}

// Login verifies credentials against the stored bcrypt hash. Unknown
// username, password mismatch, and external-only accounts (no hash) all
// yield the same generic failure.
func (s *AuthService) Login(ctx context.Context, username, password string) (AuthResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return AuthResult{Message: msgInvalidCredentials}, nil
	}

	acct, err := s.accounts.FindByUsername(ctx, strings.ToLower(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AuthResult{Message: msgInvalidCredentials}, nil
		}
		return AuthResult{}, fmt.Errorf("login lookup: %w", err)
	}

	if acct.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return AuthResult{Message: msgInvalidCredentials}, nil
	}

	return AuthResult{Success: true, Message: msgLoginOK, Account: acct}, nil
}

// Register validates input, screens it, checks uniqueness, and inserts the
// account. The pre-checks are advisory only: a concurrent registration can
// win the race between check and insert, in which case the store's unique
// index fires and the violation is translated back into the same
// user-facing "taken" message.
func (s *AuthService) Register(ctx context.Context, username, password, nickname string) (AuthResult, error) {
	if !ValidUsername(username) {
		return AuthResult{Message: msgUsernameNotEmail}, nil
	}
	if ContainsBlockedWord(username) {
		return AuthResult{Message: msgUsernameBlocked}, nil
	}
	if !ValidNickname(nickname) {
		return AuthResult{Message: msgNicknameFormat}, nil
	}
	if ContainsBlockedWord(nickname) {
		return AuthResult{Message: msgNicknameBlocked}, nil
	}

	normalized := strings.ToLower(username)

	taken, err := s.accounts.UsernameExists(ctx, normalized)
	if err != nil {
		return AuthResult{}, fmt.Errorf("username check: %w", err)
	}
	if taken {
		return AuthResult{Message: msgUsernameTaken}, nil
	}

	taken, err = s.accounts.NicknameExists(ctx, nickname)
	if err != nil {
		return AuthResult{}, fmt.Errorf("nickname check: %w", err)
	}
	if taken {
		return AuthResult{Message: msgNicknameTaken}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	acct := &Account{
		ID:           uuid.NewString(),
		Username:     normalized,
		PasswordHash: string(hash),
		Nickname:     strings.TrimSpace(nickname),
		AuthProvider: ProviderLocal,
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken):
			return AuthResult{Message: msgUsernameTaken}, nil
		case errors.Is(err, ErrNicknameTaken):
			return AuthResult{Message: msgNicknameTakenRetry}, nil
		default:
			return AuthResult{}, fmt.Errorf("create account: %w", err)
		}
	}

	return AuthResult{Success: true, Message: msgRegisterOK, Account: acct}, nil
}
