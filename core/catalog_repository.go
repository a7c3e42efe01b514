package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Rarity tiers for catalog animals.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityLegendary = "legendary"
)

// Animal is a collectible catalog record. The catalog is read-only at
// runtime; rows are only written by the seed import.
type Animal struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Species  string   `json:"species" yaml:"species"`
	Habitat  string   `json:"habitat" yaml:"habitat"`
	Rarity   string   `json:"rarity" yaml:"rarity"`
	ImageURL string   `json:"image_url" yaml:"image_url"`
	Facts    []string `json:"facts" yaml:"facts"`
	Token    string   `json:"-" yaml:"token"`
}

// CatalogRepository defines read access to the animal catalog plus the
// upsert used by the seed import.
type CatalogRepository interface {
	List(ctx context.Context) ([]Animal, error)
	Get(ctx context.Context, id string) (*Animal, error)
	GetByToken(ctx context.Context, token string) (*Animal, error)
	Count(ctx context.Context) (int, error)
	CountByRarity(ctx context.Context, rarity string) (int, error)
	Upsert(ctx context.Context, a Animal) error
}

// PgCatalogRepository implements CatalogRepository using pgxpool.
type PgCatalogRepository struct {
	db *pgxpool.Pool
}

func NewPgCatalogRepository(db *pgxpool.Pool) *PgCatalogRepository {
	return &PgCatalogRepository{db: db}
}

const animalColumns = `id, name, species, habitat, rarity, image_url, facts, token`

func scanAnimal(row pgx.Row) (*Animal, error) {
	var a Animal
	if err := row.Scan(&a.ID, &a.Name, &a.Species, &a.Habitat, &a.Rarity, &a.ImageURL, &a.Facts, &a.Token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan animal: %w", err)
	}
	return &a, nil
}

func (r *PgCatalogRepository) List(ctx context.Context) ([]Animal, error) {
	rows, err := r.db.Query(ctx, `SELECT `+animalColumns+` FROM animals ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Animal
	for rows.Next() {
		a, err := scanAnimal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *PgCatalogRepository) Get(ctx context.Context, id string) (*Animal, error) {
	return scanAnimal(r.db.QueryRow(ctx, `SELECT `+animalColumns+` FROM animals WHERE id=$1`, id))
}

func (r *PgCatalogRepository) GetByToken(ctx context.Context, token string) (*Animal, error) {
	return scanAnimal(r.db.QueryRow(ctx, `SELECT `+animalColumns+` FROM animals WHERE token=$1`, token))
}

func (r *PgCatalogRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM animals`).Scan(&n)
	return n, err
}

func (r *PgCatalogRepository) CountByRarity(ctx context.Context, rarity string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM animals WHERE LOWER(rarity)=LOWER($1)`, rarity).Scan(&n)
	return n, err
}

// Upsert writes one seed row, replacing existing data for the same id.
func (r *PgCatalogRepository) Upsert(ctx context.Context, a Animal) error {
	const q = `INSERT INTO animals (id, name, species, habitat, rarity, image_url, facts, token)
               VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
               ON CONFLICT (id) DO UPDATE SET
                 name=EXCLUDED.name,
                 species=EXCLUDED.species,
                 habitat=EXCLUDED.habitat,
                 rarity=EXCLUDED.rarity,
                 image_url=EXCLUDED.image_url,
                 facts=EXCLUDED.facts,
                 token=EXCLUDED.token`
	facts := a.Facts
	if facts == nil {
		facts = []string{}
	}
	_, err := r.db.Exec(ctx, q, a.ID, a.Name, a.Species, a.Habitat, a.Rarity, a.ImageURL, facts, a.Token)
	if err != nil {
		return fmt.Errorf("upsert animal %s: %w", a.ID, err)
	}
	return nil
}
