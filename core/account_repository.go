package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository defines persistence operations for accounts.
// Create is the authority on uniqueness: it translates store-level unique
// violations into ErrUsernameTaken / ErrNicknameTaken / ErrExternalIDTaken
// so callers can recover from check-then-insert races.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByProviderSubject(ctx context.Context, provider, externalID string) (*Account, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	NicknameExists(ctx context.Context, nickname string) (bool, error)
	Create(ctx context.Context, a *Account) error
	LinkProvider(ctx context.Context, id, provider, externalID string) error
}

// PgAccountRepository implements AccountRepository using pgxpool.
type PgAccountRepository struct {
	db *pgxpool.Pool
}

func NewPgAccountRepository(db *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{db: db}
}

const accountColumns = `id, username, COALESCE(password_hash, ''), COALESCE(nickname, ''), auth_provider, COALESCE(external_id, ''), created_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Nickname, &a.AuthProvider, &a.ExternalID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

func (r *PgAccountRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	return scanAccount(r.db.QueryRow(ctx, q, id))
}

func (r *PgAccountRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(username)=LOWER($1)`
	return scanAccount(r.db.QueryRow(ctx, q, username))
}

func (r *PgAccountRepository) FindByProviderSubject(ctx context.Context, provider, externalID string) (*Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE auth_provider=$1 AND external_id=$2`
	return scanAccount(r.db.QueryRow(ctx, q, provider, externalID))
}

func (r *PgAccountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	const q = `SELECT 1 FROM accounts WHERE LOWER(username)=LOWER($1) LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q, username).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PgAccountRepository) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	const q = `SELECT 1 FROM accounts WHERE nickname IS NOT NULL AND LOWER(nickname)=LOWER($1) LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q, nickname).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Create inserts the account and fills in CreatedAt. Unique violations come
// back as the matching sentinel error, never as a raw pgconn error.
func (r *PgAccountRepository) Create(ctx context.Context, a *Account) error {
	const q = `INSERT INTO accounts (id, username, password_hash, nickname, auth_provider, external_id)
               VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''))
               RETURNING created_at`
	var createdAt time.Time
	err := r.db.QueryRow(ctx, q, a.ID, a.Username, a.PasswordHash, a.Nickname, a.AuthProvider, a.ExternalID).Scan(&createdAt)
	if err != nil {
		if conflictErr := translateUniqueViolation(err); conflictErr != nil {
			return conflictErr
		}
		return fmt.Errorf("insert account: %w", err)
	}
	a.CreatedAt = createdAt
	return nil
}

// LinkProvider attaches an external identity to an existing account.
func (r *PgAccountRepository) LinkProvider(ctx context.Context, id, provider, externalID string) error {
	const q = `UPDATE accounts SET auth_provider=$1, external_id=$2 WHERE id=$3`
	ct, err := r.db.Exec(ctx, q, provider, externalID, id)
	if err != nil {
		if conflictErr := translateUniqueViolation(err); conflictErr != nil {
			return conflictErr
		}
		return fmt.Errorf("link provider: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// translateUniqueViolation maps SQLSTATE 23505 to a sentinel error by the
// violated constraint, or returns nil when err is not a unique violation.
func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return ErrUsernameTaken
	case strings.Contains(pgErr.ConstraintName, "nickname"):
		return ErrNicknameTaken
	case strings.Contains(pgErr.ConstraintName, "provider_external"):
		return ErrExternalIDTaken
	default:
		return ErrUsernameTaken
	}
}
