package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adam-setup/server/internal/agent/model"
	errx "github.com/adam-setup/server/internal/core/error"
	logx "github.com/adam-setup/server/pkg/logger"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

// RedisConversationRepository stores conversation history as a Redis
// list of JSON messages and the cross-turn metadata as a JSON string,
// both scoped by user and partner and refreshed on every write.
type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationRepository) messagesKey(key model.ConversationKey) string {
	return fmt.Sprintf("conversation:%s:%s:messages", key.User, key.Partner)
}

func (r *RedisConversationRepository) metaKey(key model.ConversationKey) string {
	return fmt.Sprintf("conversation:%s:%s:meta", key.User, key.Partner)
}

func (r *RedisConversationRepository) AddMessages(ctx context.Context, key model.ConversationKey, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("user", key.User).Msg("failed to marshal message")
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, b)
	}
	mk := r.messagesKey(key)

	if err := r.rdb.RPush(ctx, mk, values...).Err(); err != nil {
		logx.Error().Err(err).Str("key", mk).Msg("failed to push messages to redis")
		return errx.WrapRedis(err)
	}
	return r.touch(ctx, mk)
}

// touch extends the TTL so an active conversation outlives its default
// expiry window.
func (r *RedisConversationRepository) touch(ctx context.Context, key string) error {
	if r.ttl <= 0 {
		return nil
	}
	ok, err := r.rdb.Expire(ctx, key, r.ttl).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
		return errx.WrapRedis(err)
	}
	if !ok {
		logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on conversation key")
	}
	return nil
}

func (r *RedisConversationRepository) LoadHistory(ctx context.Context, key model.ConversationKey) (*model.ConversationHistory, error) {
	mk := r.messagesKey(key)

	rows, err := r.rdb.LRange(ctx, mk, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return &model.ConversationHistory{Key: key, Messages: []*schema.Message{}}, nil
		}
		logx.Error().Err(err).Str("key", mk).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("user", key.User).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return &model.ConversationHistory{Key: key, Messages: msgs}, nil
}

func (r *RedisConversationRepository) ClearHistory(ctx context.Context, key model.ConversationKey) error {
	if err := r.rdb.Del(ctx, r.messagesKey(key), r.metaKey(key)).Err(); err != nil {
		logx.Error().Err(err).Str("user", key.User).Str("partner", key.Partner).Msg("failed to delete conversation from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) SaveTurnMeta(ctx context.Context, key model.ConversationKey, meta model.TurnMeta) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal turn meta: %w", err)
	}
	mk := r.metaKey(key)
	if err := r.rdb.Set(ctx, mk, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", mk).Msg("failed to save turn meta to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) LoadTurnMeta(ctx context.Context, key model.ConversationKey) (model.TurnMeta, error) {
	mk := r.metaKey(key)
	raw, err := r.rdb.Get(ctx, mk).Result()
	if err != nil {
		if err == redis.Nil {
			return model.TurnMeta{}, nil
		}
		logx.Error().Err(err).Str("key", mk).Msg("failed to load turn meta from redis")
		return model.TurnMeta{}, errx.WrapRedis(err)
	}
	var meta model.TurnMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		// Treat corrupt metadata as absent; the next turn re-seeds it.
		logx.Warn().Err(err).Str("key", mk).Msg("discarding unreadable turn meta")
		return model.TurnMeta{}, nil
	}
	return meta, nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
