// Package memory 进程内快照仓储，用于开发环境与测试
package memory

import (
	"context"
	"sync"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
)

type SnapshotRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ domain.SnapshotRepository = (*SnapshotRepository)(nil)

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{data: make(map[string][]byte)}
}

func (r *SnapshotRepository) Load(_ context.Context, sessionID string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, ok := r.data[sessionID]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), raw...), nil
}

func (r *SnapshotRepository) Save(_ context.Context, sessionID string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[sessionID] = append([]byte(nil), data...)
	return nil
}

func (r *SnapshotRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, sessionID)
	return nil
}

// Len 已保存的会话数量
func (r *SnapshotRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
