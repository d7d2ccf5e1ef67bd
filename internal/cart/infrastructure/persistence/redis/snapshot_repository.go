package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/redis/go-redis/v9"
)

// SnapshotRedisRepository 以 cart:<session> 为 key 存储购物车快照，每次写入刷新过期时间
type SnapshotRedisRepository struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ domain.SnapshotRepository = (*SnapshotRedisRepository)(nil)

// NewSnapshotRedisRepository 创建 Redis 快照仓储，ttl 为 0 表示不过期
func NewSnapshotRedisRepository(client redis.UniversalClient, ttl time.Duration) *SnapshotRedisRepository {
	return &SnapshotRedisRepository{
		client: client,
		prefix: "cart:",
		ttl:    ttl,
	}
}

func (r *SnapshotRedisRepository) Load(ctx context.Context, sessionID string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cart snapshot from redis: %w", err)
	}
	return data, nil
}

func (r *SnapshotRedisRepository) Save(ctx context.Context, sessionID string, data []byte) error {
	if err := r.client.Set(ctx, r.key(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart snapshot to redis: %w", err)
	}
	return nil
}

func (r *SnapshotRedisRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart snapshot from redis: %w", err)
	}
	return nil
}

func (r *SnapshotRedisRepository) key(sessionID string) string {
	return r.prefix + sessionID
}
