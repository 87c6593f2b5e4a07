package repo

import (
	"context"
	"fmt"

	"github.com/adam-setup/server/internal/agent/model"
	errx "github.com/adam-setup/server/internal/core/error"
	logx "github.com/adam-setup/server/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisMemoryStore keeps the distilled user preferences. Unlike the
// per-conversation keys these have no TTL, preferences survive history
// expiry.
type RedisMemoryStore struct {
	rdb redis.Cmdable
}

func NewRedisMemoryStore(rdb redis.Cmdable) *RedisMemoryStore {
	return &RedisMemoryStore{rdb: rdb}
}

func (s *RedisMemoryStore) preferencesKey(user string) string {
	return fmt.Sprintf("memory:%s:preferences", user)
}

func (s *RedisMemoryStore) LoadPreferences(ctx context.Context, user string) (string, error) {
	raw, err := s.rdb.Get(ctx, s.preferencesKey(user)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		logx.Error().Err(err).Str("user", user).Msg("failed to load preferences from redis")
		return "", errx.WrapRedis(err)
	}
	return raw, nil
}

func (s *RedisMemoryStore) SavePreferences(ctx context.Context, user string, preferences string) error {
	if err := s.rdb.Set(ctx, s.preferencesKey(user), preferences, 0).Err(); err != nil {
		logx.Error().Err(err).Str("user", user).Msg("failed to save preferences to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.MemoryStore = (*RedisMemoryStore)(nil)
