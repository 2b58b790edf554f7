package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "predify:session:"

// RedisClient is the subset of go-redis commands used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps token pairs in Redis as JSON with a TTL.
type RedisStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// RedisOption customizes a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL sets the expiry applied on every save. Zero keeps keys forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client RedisClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultKeyPrefix, ttl: 24 * time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Load(ctx context.Context, id string) (Tokens, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return Tokens{}, ErrNoSession
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("session: redis get: %w", err)
	}
	var tokens Tokens
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return Tokens{}, fmt.Errorf("session: decode tokens: %w", err)
	}
	if tokens.Empty() {
		return Tokens{}, ErrNoSession
	}
	return tokens, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, tokens Tokens) error {
	if id == "" {
		return errors.New("session: id is required")
	}
	payload, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("session: encode tokens: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}
