package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPreferencePrefix = "predify:prefs:"

// PreferenceClient is the part of a go-redis client the Redis preference
// store needs.
type PreferenceClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisPreferenceStore keeps card overrides as JSON under one key per seller,
// so layouts survive restarts when sessions live in Redis too.
type RedisPreferenceStore struct {
	client PreferenceClient
	prefix string
}

// NewRedisPreferenceStore uses prefix for keys, or "predify:prefs:" when empty.
func NewRedisPreferenceStore(client PreferenceClient, prefix string) *RedisPreferenceStore {
	if prefix == "" {
		prefix = defaultPreferencePrefix
	}
	return &RedisPreferenceStore{client: client, prefix: prefix}
}

func (s *RedisPreferenceStore) LayoutOverrides(ctx context.Context, viewer ViewerContext) (LayoutOverrides, error) {
	overrides := LayoutOverrides{}
	if key := preferenceKey(viewer); key != "" {
		raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return LayoutOverrides{}, fmt.Errorf("dashboard: load preferences: %w", err)
		default:
			if err := json.Unmarshal(raw, &overrides); err != nil {
				return LayoutOverrides{}, fmt.Errorf("dashboard: decode preferences: %w", err)
			}
		}
	}
	normalizeOverrides(&overrides)
	if overrides.Locale == "" {
		overrides.Locale = viewer.Locale
	}
	return overrides, nil
}

func (s *RedisPreferenceStore) SaveLayoutOverrides(ctx context.Context, viewer ViewerContext, overrides LayoutOverrides) error {
	key := preferenceKey(viewer)
	if key == "" {
		return errMissingViewer
	}
	normalizeOverrides(&overrides)
	raw, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("dashboard: encode preferences: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, 0).Err(); err != nil {
		return fmt.Errorf("dashboard: save preferences: %w", err)
	}
	return nil
}
