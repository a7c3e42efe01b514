package core

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAnimals() []Animal {
	return []Animal{
		{ID: "lion-001", Name: "Savanna Lion", Species: "Panthera leo", Rarity: RarityRare, Token: "LN001"},
		{ID: "elephant-002", Name: "African Elephant", Species: "Loxodonta africana", Rarity: RarityLegendary, Token: "EL002"},
		{ID: "penguin-003", Name: "Emperor Penguin", Species: "Aptenodytes forsteri", Rarity: RarityCommon, Token: "PG003"},
	}
}

func testCollectionService(cache *LeaderboardCache) (*CollectionService, *memAccounts, *memCaptures) {
	accounts := newMemAccounts()
	catalog := newMemCatalog(testAnimals()...)
	captures := newMemCaptures(catalog, accounts)
	return NewCollectionService(catalog, captures, accounts, cache), accounts, captures
}

func TestCaptureIdempotent(t *testing.T) {
	svc, _, captures := testCollectionService(nil)
	ctx := context.Background()

	status, err := svc.Capture(ctx, "acct-1", "lion-001")
	require.NoError(t, err)
	assert.Equal(t, CaptureStatusCaptured, status)

	status, err = svc.Capture(ctx, "acct-1", "lion-001")
	require.NoError(t, err)
	assert.Equal(t, CaptureStatusAlreadyCaptured, status)

	n, err := captures.CountByAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCaptureUnknownAnimal(t *testing.T) {
	svc, _, _ := testCollectionService(nil)

	_, err := svc.Capture(context.Background(), "acct-1", "dragon-999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetCollectionFlagsCaptured(t *testing.T) {
	svc, _, _ := testCollectionService(nil)
	ctx := context.Background()

	_, err := svc.Capture(ctx, "acct-1", "lion-001")
	require.NoError(t, err)

	items, err := svc.GetCollection(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	byID := map[string]bool{}
	for _, item := range items {
		byID[item.ID] = item.Captured
	}
	assert.True(t, byID["lion-001"])
	assert.False(t, byID["elephant-002"])
	assert.False(t, byID["penguin-003"])

	// Anonymous view reports everything uncaptured.
	items, err = svc.GetCollection(ctx, "")
	require.NoError(t, err)
	for _, item := range items {
		assert.False(t, item.Captured)
	}
}

func TestGetAnimalByToken(t *testing.T) {
	svc, _, _ := testCollectionService(nil)
	ctx := context.Background()

	item, err := svc.GetAnimalByToken(ctx, "", "LN001")
	require.NoError(t, err)
	assert.Equal(t, "lion-001", item.ID)
	assert.False(t, item.Captured)

	_, err = svc.GetAnimalByToken(ctx, "", "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStats(t *testing.T) {
	svc, _, _ := testCollectionService(nil)
	ctx := context.Background()

	// No captures against a non-empty catalog.
	stats, err := svc.GetStats(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, Stats{CapturedCount: 0, LegendaryCapturedCount: 0, TotalLegendaryCount: 1, CompletionPercent: 0}, stats)

	_, err = svc.Capture(ctx, "acct-1", "lion-001")
	require.NoError(t, err)
	stats, err = svc.GetStats(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CapturedCount)
	assert.Equal(t, 33, stats.CompletionPercent, "completion percent is floored")

	for _, id := range []string{"elephant-002", "penguin-003"} {
		_, err = svc.Capture(ctx, "acct-1", id)
		require.NoError(t, err)
	}
	stats, err = svc.GetStats(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, Stats{CapturedCount: 3, LegendaryCapturedCount: 1, TotalLegendaryCount: 1, CompletionPercent: 100}, stats)
}

func TestGetStatsEmptyCatalog(t *testing.T) {
	accounts := newMemAccounts()
	catalog := newMemCatalog()
	captures := newMemCaptures(catalog, accounts)
	svc := NewCollectionService(catalog, captures, accounts, nil)

	stats, err := svc.GetStats(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.CompletionPercent)
}

func TestUnlockedAchievements(t *testing.T) {
	svc, _, _ := testCollectionService(nil)
	ctx := context.Background()

	_, err := svc.Capture(ctx, "acct-1", "lion-001")
	require.NoError(t, err)

	unlocked, stats, err := svc.UnlockedAchievements(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CapturedCount)
	assert.Contains(t, unlocked, "first-discovery")
}

func TestLeaderboardStoreFallback(t *testing.T) {
	svc, accounts, _ := testCollectionService(nil)
	ctx := context.Background()

	require.NoError(t, accounts.Create(ctx, &Account{ID: "acct-1", Username: "a@x.com", Nickname: "Foxy"}))
	require.NoError(t, accounts.Create(ctx, &Account{ID: "acct-2", Username: "b@x.com"}))

	for _, id := range []string{"lion-001", "penguin-003"} {
		_, err := svc.Capture(ctx, "acct-1", id)
		require.NoError(t, err)
	}
	_, err := svc.Capture(ctx, "acct-2", "lion-001")
	require.NoError(t, err)

	entries, err := svc.Leaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, LeaderboardEntry{Nickname: "Foxy", CapturedCount: 2}, entries[0])
	// Accounts without a nickname fall back to the placeholder.
	assert.Equal(t, LeaderboardEntry{Nickname: "Explorer", CapturedCount: 1}, entries[1])
}

func TestLeaderboardWithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewLeaderboardCache(client)

	svc, accounts, _ := testCollectionService(cache)
	ctx := context.Background()

	require.NoError(t, accounts.Create(ctx, &Account{ID: "acct-1", Username: "a@x.com", Nickname: "Foxy"}))
	require.NoError(t, accounts.Create(ctx, &Account{ID: "acct-2", Username: "b@x.com", Nickname: "Rex"}))

	for _, id := range []string{"lion-001", "penguin-003"} {
		_, err := svc.Capture(ctx, "acct-1", id)
		require.NoError(t, err)
	}
	_, err := svc.Capture(ctx, "acct-2", "lion-001")
	require.NoError(t, err)

	// Captures warmed the sorted set, so this is a cache read.
	entries, err := svc.Leaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, LeaderboardEntry{Nickname: "Foxy", CapturedCount: 2}, entries[0])
	assert.Equal(t, LeaderboardEntry{Nickname: "Rex", CapturedCount: 1}, entries[1])

	// A flushed cache falls back to the store and rebuilds the set.
	mr.FlushAll()
	entries, err = svc.Leaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Foxy", entries[0].Nickname)

	counts, err := cache.Top(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, counts, 2, "fallback read should rebuild the cache")
}
