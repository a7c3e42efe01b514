package core

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// leaderboardKey is the sorted set holding capture counts per account id.
const leaderboardKey = "collector:leaderboard"

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// LeaderboardCount is a cached (account id, capture count) pair.
type LeaderboardCount struct {
	AccountID string
	Count     int
}

// LeaderboardCache keeps per-account capture counts in a redis sorted set so
// the leaderboard read path avoids a GROUP BY on every request. The store
// remains the source of truth; the cache is rebuilt from it when empty.
type LeaderboardCache struct {
	client *redis.Client
}

func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{client: client}
}

// Ping probes the redis connection.
func (c *LeaderboardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// RecordCapture bumps the account's cached capture count by one.
func (c *LeaderboardCache) RecordCapture(ctx context.Context, accountID string) error {
	return c.client.ZIncrBy(ctx, leaderboardKey, 1, accountID).Err()
}

// Top returns the highest-count accounts, best first. An empty result with a
// nil error means the cache is cold and must be rebuilt from the store.
func (c *LeaderboardCache) Top(ctx context.Context, n int) ([]LeaderboardCount, error) {
	if n <= 0 {
		return nil, errors.New("invalid leaderboard limit")
	}
	zs, err := c.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardCount, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, LeaderboardCount{AccountID: id, Count: int(z.Score)})
	}
	return out, nil
}

// Rebuild replaces the cached set with counts read from the store. The swap
// is pipelined so readers never observe a half-filled set.
func (c *LeaderboardCache) Rebuild(ctx context.Context, counts []LeaderboardCount) error {
	members := make([]redis.Z, 0, len(counts))
	for _, e := range counts {
		members = append(members, redis.Z{Score: float64(e.Count), Member: e.AccountID})
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, leaderboardKey)
	if len(members) > 0 {
		pipe.ZAdd(ctx, leaderboardKey, members...)
	}
	_, err := pipe.Exec(ctx)
	return err
}
