package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/regwatch/app/feed"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "regwatch:snapshot:"

var _ Store = (*RedisStore)(nil)

type redisEntry struct {
	Items     []feed.Item `json:"items"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RedisStore keeps each snapshot as a JSON value without expiry.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, logger: logger}
}

func redisKey(key string) string {
	return redisKeyPrefix + feed.SanitizeKey(key)
}

func (s *RedisStore) load(ctx context.Context, key string) (*redisEntry, error) {
	val, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", key, err)
	}

	var entry redisEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", key, err)
	}
	return &entry, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]feed.Item, error) {
	entry, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.Items == nil {
		return []feed.Item{}, nil
	}
	return entry.Items, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, items []feed.Item) error {
	if items == nil {
		items = []feed.Item{}
	}

	data, err := json.Marshal(redisEntry{Items: items, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", key, err)
	}

	if err := s.client.Set(ctx, redisKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot %s: %w", key, err)
	}

	s.logger.Debug("Snapshot saved to Redis", "key", key, "items", len(items))
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Info, error) {
	var infos []Info

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), redisKeyPrefix)
		entry, err := s.load(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to load snapshot", "key", key, "error", err)
			continue
		}
		if entry == nil {
			continue
		}
		infos = append(infos, Info{Key: key, ItemCount: len(entry.Items), UpdatedAt: entry.UpdatedAt})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan snapshots: %w", err)
	}

	return infos, nil
}
