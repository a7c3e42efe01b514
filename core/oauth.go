package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// defaultNickname is used when no usable display name can be derived from
// the provider assertion. It matches the leaderboard placeholder.
const defaultNickname = "Explorer"

// ExternalIdentity is the claim set extracted from a provider assertion.
type ExternalIdentity struct {
	Provider   string
	ExternalID string
	Email      string
	Name       string
}

// ExternalLinker resolves provider assertions to accounts: already-linked
// accounts are used directly, accounts sharing the assertion email are
// linked in place, and everything else gets a fresh account with a
// de-duplicated nickname.
type ExternalLinker struct {
	accounts AccountRepository
	secrets  map[string]string
}

func NewExternalLinker(accounts AccountRepository, providerSecrets map[string]string) *ExternalLinker {
	return &ExternalLinker{accounts: accounts, secrets: providerSecrets}
}

// VerifyAssertion parses and validates the provider id_token (HS256 with the
// provider's shared secret) and extracts the identity claims. A missing
// subject or email makes the assertion unusable.
func (l *ExternalLinker) VerifyAssertion(provider, idToken string) (ExternalIdentity, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	secret, ok := l.secrets[provider]
	if !ok {
		return ExternalIdentity{}, fmt.Errorf("%w: unknown provider %q", ErrInvalidAssertion, provider)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if strings.TrimSpace(sub) == "" || strings.TrimSpace(email) == "" {
		return ExternalIdentity{}, fmt.Errorf("%w: assertion missing subject or email", ErrInvalidAssertion)
	}

	return ExternalIdentity{
		Provider:   provider,
		ExternalID: sub,
		Email:      email,
		Name:       name,
	}, nil
}

// Resolve maps a verified identity to an account, linking or creating as
// needed.
func (l *ExternalLinker) Resolve(ctx context.Context, id ExternalIdentity) (*Account, error) {
	// Fast path: identity already linked.
	acct, err := l.accounts.FindByProviderSubject(ctx, id.Provider, id.ExternalID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("provider lookup: %w", err)
	}

	// A local account registered with the same email gets the external
	// identity attached instead of a duplicate account.
	email := strings.ToLower(strings.TrimSpace(id.Email))
	acct, err = l.accounts.FindByUsername(ctx, email)
	if err == nil {
		if err := l.accounts.LinkProvider(ctx, acct.ID, id.Provider, id.ExternalID); err != nil {
			return nil, fmt.Errorf("link provider: %w", err)
		}
		acct.AuthProvider = id.Provider
		acct.ExternalID = id.ExternalID
		return acct, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("email lookup: %w", err)
	}

	return l.createAccount(ctx, id, email)
}

func (l *ExternalLinker) createAccount(ctx context.Context, id ExternalIdentity, email string) (*Account, error) {
	nickname, err := l.uniqueNickname(ctx, deriveNickname(id.Name, email))
	if err != nil {
		return nil, err
	}

	acct := &Account{
		ID:           uuid.NewString(),
		Username:     email,
		Nickname:     nickname,
		AuthProvider: id.Provider,
		ExternalID:   id.ExternalID,
	}
	if err := l.accounts.Create(ctx, acct); err != nil {
		// The nickname existence checks race against concurrent creations;
		// the unique index is the authority. Retry once with a fresh suffix.
		if errors.Is(err, ErrNicknameTaken) {
			acct.Nickname, err = l.uniqueNickname(ctx, acct.Nickname)
			if err == nil {
				err = l.accounts.Create(ctx, acct)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("create external account: %w", err)
		}
	}
	return acct, nil
}

// uniqueNickname resolves collisions by appending an increasing numeric
// suffix, checking the live store at each attempt.
func (l *ExternalLinker) uniqueNickname(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 0; ; i++ {
		taken, err := l.accounts.NicknameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("nickname check: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i+1)
	}
}

// deriveNickname picks a display name from the assertion: first token of the
// provider name claim, then the local part of the email, then the fixed
// default. Candidates that fail the nickname rules fall through.
func deriveNickname(name, email string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		if c := fields[0]; ValidNickname(c) && !ContainsBlockedWord(c) {
			return c
		}
	}
	if local, _, ok := strings.Cut(email, "@"); ok {
		if ValidNickname(local) && !ContainsBlockedWord(local) {
			return local
		}
	}
	return defaultNickname
}
