package application

import (
	"context"
	"errors"
	"sync"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/metrics"
	lru "github.com/hashicorp/golang-lru"
)

// ErrRegistryClosed Registry 已关闭
var ErrRegistryClosed = errors.New("cart: registry closed")

// Registry 按会话管理 Store：首次访问时从快照恢复，LRU 淘汰时落盘并退役。
// 同一会话在加载或淘汰期间的 Get 会等待其完成，重新加载总能读到淘汰前的最后快照。
type Registry struct {
	opts   StoreOptions
	stores *lru.Cache

	mu     sync.Mutex
	closed bool
	// pending 正在加载或淘汰中的会话
	pending map[string]chan struct{}
	// parked 被淘汰会话仍挂载着的监听器，等待新 Store 接管
	parked   map[string]*listenerSet
	evicting sync.WaitGroup
}

// NewRegistry 创建会话购物车注册表，size 为内存中保留的会话数量
func NewRegistry(size int, opts StoreOptions) (*Registry, error) {
	if size <= 0 {
		size = 10000
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	r := &Registry{
		opts:    opts,
		pending: make(map[string]chan struct{}),
		parked:  make(map[string]*listenerSet),
	}
	cache, err := lru.NewWithEvict(size, r.onEvict)
	if err != nil {
		return nil, err
	}
	r.stores = cache
	return r, nil
}

// Get 返回会话的 Store，不存在时从快照恢复；快照缺失或损坏时为空购物车
func (r *Registry) Get(ctx context.Context, sessionID string) (*Store, error) {
	for {
		if v, ok := r.stores.Get(sessionID); ok {
			return v.(*Store), nil
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrRegistryClosed
		}
		if v, ok := r.stores.Get(sessionID); ok {
			r.mu.Unlock()
			return v.(*Store), nil
		}
		if wait, ok := r.pending[sessionID]; ok {
			r.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		done := make(chan struct{})
		r.pending[sessionID] = done
		r.mu.Unlock()

		return r.open(ctx, sessionID, done)
	}
}

// Len 内存中的 Store 数量
func (r *Registry) Len() int {
	return r.stores.Len()
}

// Close 等待进行中的淘汰完成，再关闭所有 Store 并等待快照写完
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.evicting.Wait()
	defer logger.LogDuration(ctx, "Cart stores flushed", "stores", r.stores.Len())()

	var errs []error
	for _, key := range r.stores.Keys() {
		v, ok := r.stores.Peek(key)
		if !ok {
			continue
		}
		if err := v.(*Store).Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) open(ctx context.Context, sessionID string, done chan struct{}) (*Store, error) {
	cart := r.load(ctx, sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, sessionID)
	close(done)

	if r.closed {
		return nil, ErrRegistryClosed
	}
	// 请求已取消时快照可能没读出来，不能把空购物车放进缓存
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store := NewStore(sessionID, cart, r.opts)
	store.reopen = r.Get
	if set, ok := r.parked[sessionID]; ok {
		delete(r.parked, sessionID)
		if set.adopt() {
			store.listeners = set
		}
	}
	r.stores.Add(sessionID, store)
	r.opts.Metrics.SetCartStores(r.stores.Len())
	return store, nil
}

// onEvict 只会在 open 持有 r.mu 时由 stores.Add 触发
func (r *Registry) onEvict(key, value interface{}) {
	sessionID := key.(string)
	done := make(chan struct{})
	r.pending[sessionID] = done
	r.evicting.Add(1)
	go r.retire(sessionID, value.(*Store), done)
}

func (r *Registry) retire(sessionID string, store *Store, done chan struct{}) {
	defer r.evicting.Done()
	ctx := context.WithValue(context.Background(), logger.SessionIDKey, sessionID)
	// 单次写入受 PersistTimeout 限制，这里不再另设超时
	if err := store.retire(ctx); err != nil {
		logger.Warn(ctx, "Failed to flush evicted cart store", "error", err)
	}

	r.mu.Lock()
	set := store.listeners
	if set.park(func() { r.unpark(sessionID, set) }) {
		r.parked[sessionID] = set
	}
	delete(r.pending, sessionID)
	r.mu.Unlock()
	close(done)
}

func (r *Registry) unpark(sessionID string, set *listenerSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.parked[sessionID] == set {
		delete(r.parked, sessionID)
	}
}

func (r *Registry) load(ctx context.Context, sessionID string) *domain.Cart {
	raw, err := r.opts.Repo.Load(ctx, sessionID)
	if err != nil {
		logger.Warn(ctx, "Failed to load cart snapshot, starting empty", "error", err)
		return domain.NewCart()
	}
	cart, err := domain.DecodeSnapshot(raw)
	if err != nil {
		logger.Warn(ctx, "Discarding malformed cart snapshot", "error", err)
		return domain.NewCart()
	}
	return cart
}
