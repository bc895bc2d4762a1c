// Package redis implements the Redis leaderboard cache of the progression
// engine. Rankings are kept in sorted sets keyed by scope, with a companion
// hash holding entry details (level, title) for display.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/browo-hub/progression-engine/internal/domain/leaderboard"
	"github.com/browo-hub/progression-engine/internal/domain/progression"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewClient creates a Redis client and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return client, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// Key patterns for leaderboard cache.
const (
	// keyRanking is the sorted set holding userID -> XP per scope.
	keyRanking = "progression:ranking:"

	// keyInfo is the hash holding userID -> entry details JSON per scope.
	keyInfo = "progression:ranking_info:"
)

// entryInfo is the cached per-user display detail.
type entryInfo struct {
	Level int    `json:"level"`
	Title string `json:"title,omitempty"`
}

// LeaderboardCache implements leaderboard.Cache using Redis sorted sets.
// Rank lookups are O(log N), range queries O(log N + M).
type LeaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{client: client}
}

// UpdateScore updates the ranking row of a user in a scope: both the score
// in the sorted set and the display details hash, in one round trip.
func (c *LeaderboardCache) UpdateScore(ctx context.Context, scope leaderboard.Scope, entry leaderboard.Entry) error {
	if entry.UserID == "" {
		return errors.New("leaderboard_cache: user id cannot be empty")
	}

	data, err := json.Marshal(entryInfo{Level: int(entry.Level), Title: entry.Title})
	if err != nil {
		return fmt.Errorf("leaderboard_cache: failed to marshal entry info: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, keyRanking+scope.String(), redis.Z{
		Score:  float64(entry.XP),
		Member: entry.UserID,
	})
	pipe.HSet(ctx, keyInfo+scope.String(), entry.UserID, data)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard_cache: failed to update score: %w", err)
	}

	return nil
}

// GetTop returns the first limit entries of a scope, highest XP first.
// Returns nil without error if the scope is not populated yet.
//
// ZREVRANGE orders equal scores by member descending, the opposite of the
// engine's tie-break rule, so ties are re-sorted by user ID ascending here.
func (c *LeaderboardCache) GetTop(ctx context.Context, scope leaderboard.Scope, limit int) ([]leaderboard.Entry, error) {
	if limit <= 0 {
		return nil, errors.New("leaderboard_cache: limit must be positive")
	}

	zs, err := c.client.ZRevRangeWithScores(ctx, keyRanking+scope.String(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: failed to read ranking: %w", err)
	}
	if len(zs) == 0 {
		return nil, nil
	}

	infos, err := c.client.HGetAll(ctx, keyInfo+scope.String()).Result()
	if err != nil {
		infos = nil
	}

	entries := make([]leaderboard.Entry, 0, len(zs))
	for _, z := range zs {
		userID, _ := z.Member.(string)
		entry := leaderboard.Entry{
			UserID: userID,
			XP:     progression.XP(int(z.Score)),
			Level:  1,
		}
		if raw, ok := infos[userID]; ok {
			var info entryInfo
			if json.Unmarshal([]byte(raw), &info) == nil {
				entry.Level = progression.Level(info.Level)
				entry.Title = info.Title
			}
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i := range entries {
		entries[i].Rank = leaderboard.Rank(i + 1)
	}

	return entries, nil
}

// GetRank returns the 1-based rank of a user in a scope.
// The second result is false if the user is not in the cache.
func (c *LeaderboardCache) GetRank(ctx context.Context, scope leaderboard.Scope, userID string) (leaderboard.Rank, bool, error) {
	rank, err := c.client.ZRevRank(ctx, keyRanking+scope.String(), userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("leaderboard_cache: failed to read rank: %w", err)
	}

	return leaderboard.Rank(rank + 1), true, nil
}

// Invalidate drops the ranking and entry details of a scope.
func (c *LeaderboardCache) Invalidate(ctx context.Context, scope leaderboard.Scope) error {
	if err := c.client.Del(ctx, keyRanking+scope.String(), keyInfo+scope.String()).Err(); err != nil {
		return fmt.Errorf("leaderboard_cache: failed to invalidate scope: %w", err)
	}
	return nil
}
