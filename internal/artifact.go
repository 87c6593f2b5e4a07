package repo

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/adam-setup/server/internal/dataset"
	errx "github.com/adam-setup/server/internal/core/error"
	logx "github.com/adam-setup/server/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisArtifactStore holds full result tables as CSV blobs so chat
// responses can carry a download link instead of the raw data.
type RedisArtifactStore struct {
	rdb     redis.Cmdable
	baseURL string
	ttl     time.Duration
}

func NewRedisArtifactStore(rdb redis.Cmdable, baseURL string, ttl time.Duration) *RedisArtifactStore {
	return &RedisArtifactStore{rdb: rdb, baseURL: strings.TrimRight(baseURL, "/"), ttl: ttl}
}

func (s *RedisArtifactStore) artifactKey(id string) string {
	return fmt.Sprintf("artifact:%s", id)
}

// Upload serializes the table to CSV, stores it under a fresh id and
// returns the download URL.
func (s *RedisArtifactStore) Upload(ctx context.Context, t *dataset.Table, label string) (string, error) {
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, t); err != nil {
		return "", fmt.Errorf("encode artifact %q: %w", label, err)
	}

	id := uuid.NewString()
	if err := s.rdb.Set(ctx, s.artifactKey(id), buf.Bytes(), s.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("label", label).Msg("failed to store artifact in redis")
		return "", errx.WrapRedis(err)
	}
	logx.Debug().Str("artifact_id", id).Str("label", label).Int("bytes", buf.Len()).Msg("Stored result artifact")
	return fmt.Sprintf("%s/artifacts/%s.csv", s.baseURL, id), nil
}

// Fetch returns the CSV bytes for a stored artifact id.
func (s *RedisArtifactStore) Fetch(ctx context.Context, id string) ([]byte, error) {
	raw, err := s.rdb.Get(ctx, s.artifactKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errx.New(err, http.StatusNotFound, errx.RedisNotFoundMessage)
		}
		return nil, errx.WrapRedis(err)
	}
	return raw, nil
}
