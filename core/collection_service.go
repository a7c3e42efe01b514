package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// CaptureStatus reports the outcome of an idempotent capture.
type CaptureStatus string

const (
	CaptureStatusCaptured        CaptureStatus = "captured"
	CaptureStatusAlreadyCaptured CaptureStatus = "already_captured"
)

// CollectionItem is a catalog animal flagged with the viewer's capture state.
type CollectionItem struct {
	Animal
	Captured bool `json:"captured"`
}

// Stats are the derived counters for one account's collection.
type Stats struct {
	CapturedCount          int `json:"captured_count"`
	LegendaryCapturedCount int `json:"legendary_captured_count"`
	TotalLegendaryCount    int `json:"total_legendary_count"`
	CompletionPercent      int `json:"completion_percent"`
}

// CollectionService derives collection views, stats, and the leaderboard
// from capture records and the animal catalog.
type CollectionService struct {
	catalog  CatalogRepository
	captures CaptureRepository
	accounts AccountRepository
	cache    *LeaderboardCache // optional; nil disables the redis fast path
}

func NewCollectionService(catalog CatalogRepository, captures CaptureRepository, accounts AccountRepository, cache *LeaderboardCache) *CollectionService {
	return &CollectionService{catalog: catalog, captures: captures, accounts: accounts, cache: cache}
}

// GetCollection returns the full catalog with each animal flagged captured
// or not for the given account. An empty accountID yields an all-uncaptured
// view for anonymous browsing.
func (s *CollectionService) GetCollection(ctx context.Context, accountID string) ([]CollectionItem, error) {
	animals, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	captured := map[string]bool{}
	if accountID != "" {
		ids, err := s.captures.CapturedAnimalIDs(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("list captures: %w", err)
		}
		for _, id := range ids {
			captured[id] = true
		}
	}

	items := make([]CollectionItem, 0, len(animals))
	for _, a := range animals {
		items = append(items, CollectionItem{Animal: a, Captured: captured[a.ID]})
	}
	return items, nil
}

// GetAnimal returns one animal with the viewer's capture flag.
func (s *CollectionService) GetAnimal(ctx context.Context, accountID, animalID string) (*CollectionItem, error) {
	a, err := s.catalog.Get(ctx, animalID)
	if err != nil {
		return nil, err
	}
	return s.flagged(ctx, accountID, a)
}

// GetAnimalByToken resolves an animal by its NFC scan token.
func (s *CollectionService) GetAnimalByToken(ctx context.Context, accountID, token string) (*CollectionItem, error) {
	a, err := s.catalog.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.flagged(ctx, accountID, a)
}

func (s *CollectionService) flagged(ctx context.Context, accountID string, a *Animal) (*CollectionItem, error) {
	item := CollectionItem{Animal: *a}
	if accountID != "" {
		captured, err := s.captures.Captured(ctx, accountID, a.ID)
		if err != nil {
			return nil, fmt.Errorf("check capture: %w", err)
		}
		item.Captured = captured
	}
	return &item, nil
}

// Capture records that the account has unlocked the animal. Capturing the
// same animal again reports CaptureStatusAlreadyCaptured without touching
// the stored row. ErrNotFound is returned for unknown animals.
func (s *CollectionService) Capture(ctx context.Context, accountID, animalID string) (CaptureStatus, error) {
	if _, err := s.catalog.Get(ctx, animalID); err != nil {
		return "", err
	}

	created, err := s.captures.Insert(ctx, accountID, animalID)
	if err != nil {
		return "", err
	}
	if !created {
		return CaptureStatusAlreadyCaptured, nil
	}

	// Cache update is best effort; the store stays authoritative and the
	// leaderboard read path rebuilds from it on a cold cache.
	if s.cache != nil {
		if err := s.cache.RecordCapture(ctx, accountID); err != nil {
			log.Printf("leaderboard cache update failed for %s: %v", accountID, err)
		}
	}
	return CaptureStatusCaptured, nil
}

// GetStats computes the derived counters for one account. Completion is a
// floored integer percent; an empty catalog reports zero rather than
// dividing by zero.
func (s *CollectionService) GetStats(ctx context.Context, accountID string) (Stats, error) {
	captured, err := s.captures.CountByAccount(ctx, accountID)
	if err != nil {
		return Stats{}, fmt.Errorf("count captures: %w", err)
	}
	legendary, err := s.captures.CountByAccountAndRarity(ctx, accountID, RarityLegendary)
	if err != nil {
		return Stats{}, fmt.Errorf("count legendary captures: %w", err)
	}
	total, err := s.catalog.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count catalog: %w", err)
	}
	totalLegendary, err := s.catalog.CountByRarity(ctx, RarityLegendary)
	if err != nil {
		return Stats{}, fmt.Errorf("count legendary catalog: %w", err)
	}

	completion := 0
	if total > 0 {
		completion = captured * 100 / total
	}
	return Stats{
		CapturedCount:          captured,
		LegendaryCapturedCount: legendary,
		TotalLegendaryCount:    totalLegendary,
		CompletionPercent:      completion,
	}, nil
}

// UnlockedAchievements evaluates the fixed achievement set against the
// account's current stats.
func (s *CollectionService) UnlockedAchievements(ctx context.Context, accountID string) ([]string, Stats, error) {
	stats, err := s.GetStats(ctx, accountID)
	if err != nil {
		return nil, Stats{}, err
	}
	unlocked := EvaluateAchievements(stats.CapturedCount, stats.LegendaryCapturedCount, stats.TotalLegendaryCount, stats.CompletionPercent)
	return unlocked, stats, nil
}

// Status reports operational state of the service's backing store and cache.
func (s *CollectionService) Status(ctx context.Context, startedAt time.Time) SystemStatus {
	return CollectSystemStatus(ctx, s.catalog, s.cache, startedAt)
}

// Leaderboard returns the top accounts by capture count. The redis sorted
// set serves warm reads; a cold or unreachable cache falls back to the
// store's GROUP BY and triggers a rebuild.
func (s *CollectionService) Leaderboard(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if n <= 0 {
		return nil, errors.New("invalid leaderboard limit")
	}
	if s.cache != nil {
		counts, err := s.cache.Top(ctx, n)
		if err != nil {
			log.Printf("leaderboard cache read failed: %v", err)
		} else if len(counts) > 0 {
			return s.resolveNicknames(ctx, counts)
		}
	}

	entries, err := s.captures.Leaderboard(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}

	if s.cache != nil && len(entries) > 0 {
		counts, err := s.captures.CountsPerAccount(ctx)
		if err == nil {
			if err := s.cache.Rebuild(ctx, counts); err != nil {
				log.Printf("leaderboard cache rebuild failed: %v", err)
			}
		}
	}
	return entries, nil
}

func (s *CollectionService) resolveNicknames(ctx context.Context, counts []LeaderboardCount) ([]LeaderboardEntry, error) {
	entries := make([]LeaderboardEntry, 0, len(counts))
	for _, c := range counts {
		acct, err := s.accounts.FindByID(ctx, c.AccountID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Account deleted since the cache entry was written.
				continue
			}
			return nil, fmt.Errorf("resolve nickname: %w", err)
		}
		nickname := acct.Nickname
		if nickname == "" {
			nickname = defaultNickname
		}
		entries = append(entries, LeaderboardEntry{Nickname: nickname, CapturedCount: c.Count})
	}
	return entries, nil
}
