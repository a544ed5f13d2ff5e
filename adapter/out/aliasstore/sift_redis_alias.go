// Package aliasstore implements the dynamic service alias lookup on Redis.
package aliasstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sift_server/core/port/out"
	"sift_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// =============================================================================
// Redis Alias Store
// =============================================================================

const aliasKeyPrefix = "service_alias:"

// aliasEntry is the stored JSON value. Operators write these keys out of band
// when a new sending domain shows up that the static table misses.
type aliasEntry struct {
	Canonical string `json:"canonical"`
}

// RedisAliasStore implements out.AliasStore on Redis, behind a circuit
// breaker so a Redis outage degrades alias resolution instead of blocking
// every message.
type RedisAliasStore struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

// NewRedisAliasStore creates a new Redis-backed alias store.
func NewRedisAliasStore(client *redis.Client) *RedisAliasStore {
	cbSettings := gobreaker.Settings{
		Name:        "alias-store",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
	}

	return &RedisAliasStore{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// Canonical looks up the canonical domain for a raw sending domain. A miss is
// ("", nil); only transport failures return an error.
func (s *RedisAliasStore) Canonical(ctx context.Context, rawDomain string) (string, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		val, err := s.client.Get(ctx, aliasKeyPrefix+rawDomain).Result()
		if errors.Is(err, redis.Nil) {
			// Miss: must not count as a failure or the breaker would open
			// on every unknown domain.
			return "", nil
		}
		if err != nil {
			return nil, err
		}
		return val, nil
	})
	if err != nil {
		return "", fmt.Errorf("alias lookup %s: %w", rawDomain, err)
	}

	val := result.(string)
	if val == "" {
		return "", nil
	}

	var entry aliasEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		// Malformed operator data: treat as a miss rather than poisoning
		// inference for the whole domain.
		logger.Warn("malformed alias entry for %s: %v", rawDomain, err)
		return "", nil
	}

	return entry.Canonical, nil
}

// Set writes an alias mapping. Used by operational tooling and tests.
func (s *RedisAliasStore) Set(ctx context.Context, rawDomain, canonical string) error {
	data, err := json.Marshal(aliasEntry{Canonical: canonical})
	if err != nil {
		return fmt.Errorf("marshal alias entry: %w", err)
	}

	if err := s.client.Set(ctx, aliasKeyPrefix+rawDomain, data, 0).Err(); err != nil {
		return fmt.Errorf("set alias %s: %w", rawDomain, err)
	}

	return nil
}

var _ out.AliasStore = (*RedisAliasStore)(nil)
