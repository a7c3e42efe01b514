package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LeaderboardEntry is one row of the capture leaderboard.
type LeaderboardEntry struct {
	Nickname      string `json:"nickname"`
	CapturedCount int    `json:"captured_count"`
}

// CaptureRepository defines persistence operations for capture records.
type CaptureRepository interface {
	// Insert records a capture. It is idempotent: a second insert for the
	// same (account, animal) pair reports created=false and leaves the
	// original row and timestamp untouched.
	Insert(ctx context.Context, accountID, animalID string) (created bool, err error)
	Captured(ctx context.Context, accountID, animalID string) (bool, error)
	CapturedAnimalIDs(ctx context.Context, accountID string) ([]string, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)
	CountByAccountAndRarity(ctx context.Context, accountID, rarity string) (int, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	// CountsPerAccount feeds leaderboard cache rebuilds.
	CountsPerAccount(ctx context.Context) ([]LeaderboardCount, error)
}

// PgCaptureRepository implements CaptureRepository using pgxpool.
type PgCaptureRepository struct {
	db *pgxpool.Pool
}

func NewPgCaptureRepository(db *pgxpool.Pool) *PgCaptureRepository {
	return &PgCaptureRepository{db: db}
}

func (r *PgCaptureRepository) Insert(ctx context.Context, accountID, animalID string) (bool, error) {
	const q = `INSERT INTO captures (account_id, animal_id)
               VALUES ($1, $2)
               ON CONFLICT (account_id, animal_id) DO NOTHING`
	ct, err := r.db.Exec(ctx, q, accountID, animalID)
	if err != nil {
		// 23503: the animal (or account) disappeared between check and
		// insert; report it the same as a failed existence check.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("insert capture: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *PgCaptureRepository) Captured(ctx context.Context, accountID, animalID string) (bool, error) {
	const q = `SELECT 1 FROM captures WHERE account_id=$1 AND animal_id=$2 LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q, accountID, animalID).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PgCaptureRepository) CapturedAnimalIDs(ctx context.Context, accountID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT animal_id FROM captures WHERE account_id=$1 ORDER BY captured_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *PgCaptureRepository) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM captures WHERE account_id=$1`, accountID).Scan(&n)
	return n, err
}

func (r *PgCaptureRepository) CountByAccountAndRarity(ctx context.Context, accountID, rarity string) (int, error) {
	const q = `SELECT COUNT(*)
               FROM captures c
               JOIN animals a ON a.id = c.animal_id
               WHERE c.account_id=$1 AND LOWER(a.rarity)=LOWER($2)`
	var n int
	err := r.db.QueryRow(ctx, q, accountID, rarity).Scan(&n)
	return n, err
}

func (r *PgCaptureRepository) CountsPerAccount(ctx context.Context) ([]LeaderboardCount, error) {
	rows, err := r.db.Query(ctx, `SELECT account_id, COUNT(*) FROM captures GROUP BY account_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardCount
	for rows.Next() {
		var e LeaderboardCount
		if err := rows.Scan(&e.AccountID, &e.Count); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Leaderboard groups captures per account and joins the account nickname,
// falling back to the fixed placeholder when no nickname is set.
func (r *PgCaptureRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, errors.New("invalid leaderboard limit")
	}
	const q = `SELECT COALESCE(acc.nickname, 'Explorer'), COUNT(*) AS captured
               FROM captures c
               JOIN accounts acc ON acc.id = c.account_id
               GROUP BY acc.id
               ORDER BY captured DESC, acc.created_at
               LIMIT $1`
	rows, err := r.db.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Nickname, &e.CapturedCount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
