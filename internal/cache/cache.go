package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheMiss         = errors.New("cache miss")
)

// Config bundles a key prefix with its TTL.
type Config struct {
	Prefix string
	TTL    time.Duration
}

var (
	AssessmentConfig = Config{Prefix: "assessment:", TTL: 5 * time.Minute}
	QuestionConfig   = Config{Prefix: "question:", TTL: 10 * time.Minute}
	AttemptConfig    = Config{Prefix: "attempt:", TTL: 2 * time.Minute}
	UserConfig       = Config{Prefix: "user:", TTL: 15 * time.Minute}
	StatsConfig      = Config{Prefix: "stats:", TTL: 5 * time.Minute}
)

// Helper wraps a redis client for one key namespace. A nil client
// degrades gracefully: reads miss, writes are no-ops.
type Helper struct {
	client *redis.Client
	config Config
}

func NewHelper(client *redis.Client, config Config) *Helper {
	return &Helper{client: client, config: config}
}

func (h *Helper) key(k string) string {
	return h.config.Prefix + k
}

// Get unmarshals the cached value at key into dest.
func (h *Helper) Get(ctx context.Context, key string, dest interface{}) error {
	if h.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := h.client.Get(ctx, h.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal: %w", err)
	}
	return nil
}

// Set marshals value and stores it under key with the namespace TTL.
func (h *Helper) Set(ctx context.Context, key string, value interface{}) error {
	if h.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	return h.client.Set(ctx, h.key(key), data, h.config.TTL).Err()
}

// Delete removes keys from the namespace.
func (h *Helper) Delete(ctx context.Context, keys ...string) error {
	if h.client == nil || len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = h.key(k)
	}
	return h.client.Del(ctx, full...).Err()
}

// InvalidatePattern removes every key in the namespace matching pattern.
// SCAN is used instead of KEYS to avoid blocking the server.
func (h *Helper) InvalidatePattern(ctx context.Context, pattern string) error {
	if h.client == nil {
		return nil
	}

	fullPattern := h.key(pattern)
	var cursor uint64
	for {
		keys, next, err := h.client.Scan(ctx, cursor, fullPattern, 100).Result()
		if err != nil {
			return fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			if err := h.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache delete: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// GetOrLoad implements cache-aside: return the cached value if present,
// otherwise call load, cache its result, and return it.
func (h *Helper) GetOrLoad(ctx context.Context, key string, dest interface{}, load func() (interface{}, error)) error {
	err := h.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) && !errors.Is(err, ErrCacheNotAvailable) {
		slog.WarnContext(ctx, "cache read failed, falling through to store", "key", key, "error", err)
	}

	value, err := load()
	if err != nil {
		return err
	}

	if err := h.Set(ctx, key, value); err != nil {
		slog.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// Manager groups the per-namespace helpers used by the repositories.
type Manager struct {
	Assessment *Helper
	Question   *Helper
	Attempt    *Helper
	User       *Helper
	Stats      *Helper
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{
		Assessment: NewHelper(client, AssessmentConfig),
		Question:   NewHelper(client, QuestionConfig),
		Attempt:    NewHelper(client, AttemptConfig),
		User:       NewHelper(client, UserConfig),
		Stats:      NewHelper(client, StatsConfig),
	}
}

// HealthCheck verifies cache connectivity.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if m.Assessment.client == nil {
		return ErrCacheNotAvailable
	}
	if err := m.Assessment.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check: %w", err)
	}
	return nil
}
