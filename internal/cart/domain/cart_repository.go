package domain

import "context"

// SnapshotRepository 购物车快照存储，数据为 EncodeSnapshot 的结果。
// Load 在没有快照时返回 nil, nil。
type SnapshotRepository interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, data []byte) error
	Delete(ctx context.Context, sessionID string) error
}

// EventPublisher 领域事件发布
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
