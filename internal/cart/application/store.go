package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/metrics"
	"github.com/shopspring/decimal"
)

// ErrStoreRetired Store 已被淘汰且无法转交给新的 Store
var ErrStoreRetired = errors.New("cart: store retired")

// Listener 购物车变更监听器，在变更完成后按变更顺序同步调用。
// 监听器内不能同步调用同一 Store 的变更方法。
type Listener func(View)

// StoreOptions 构建 Store 所需的依赖
type StoreOptions struct {
	Repo           domain.SnapshotRepository
	Publisher      domain.EventPublisher
	Topic          string
	Links          Links
	Metrics        metrics.Collector
	PersistTimeout time.Duration
}

// Store 单个会话的购物车，所有读写都经过它
type Store struct {
	sessionID string
	topic     string
	links     Links
	publisher domain.EventPublisher
	metrics   metrics.Collector
	writer    *writeBehind

	// notifyMu 保证通知顺序与变更顺序一致，retired 只在持有它时置位
	notifyMu sync.Mutex
	mu       sync.RWMutex
	cart     *domain.Cart
	retired  atomic.Bool

	listeners *listenerSet
	// reopen 退役后取得同一会话当前的 Store，由 Registry 设置
	reopen func(ctx context.Context, sessionID string) (*Store, error)
}

// NewStore 创建会话购物车，cart 为已恢复的初始状态
func NewStore(sessionID string, cart *domain.Cart, opts StoreOptions) *Store {
	if cart == nil {
		cart = domain.NewCart()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	return &Store{
		sessionID: sessionID,
		topic:     opts.Topic,
		links:     opts.Links,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		writer:    newWriteBehind(sessionID, opts.Repo, opts.PersistTimeout, opts.Metrics),
		cart:      cart,
		listeners: newListenerSet(),
	}
}

// SessionID 所属会话
func (s *Store) SessionID() string {
	return s.sessionID
}

// AddToCart 加入商品，已存在则数量加一
func (s *Store) AddToCart(ctx context.Context, item domain.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return s.apply(ctx, "add", domain.EventItemAdded, func(c *domain.Cart) any {
		c.Add(item)
		return domain.CartItemAddedEvent{
			SessionID: s.sessionID,
			ProductID: item.ID,
			Quantity:  c.Quantity(item.ID),
			Count:     c.Count(),
			Timestamp: time.Now(),
		}
	})
}

// RemoveFromCart 删除商品行，id 不存在时购物车不变，但仍会持久化并通知
func (s *Store) RemoveFromCart(ctx context.Context, id int64) error {
	return s.apply(ctx, "remove", domain.EventItemRemoved, func(c *domain.Cart) any {
		removed := c.Remove(id)
		return domain.CartItemRemovedEvent{
			SessionID: s.sessionID,
			ProductID: id,
			Removed:   removed,
			Count:     c.Count(),
			Timestamp: time.Now(),
		}
	})
}

// ClearCart 清空购物车
func (s *Store) ClearCart(ctx context.Context) error {
	return s.apply(ctx, "clear", domain.EventCleared, func(c *domain.Cart) any {
		c.Clear()
		return domain.CartClearedEvent{SessionID: s.sessionID, Timestamp: time.Now()}
	})
}

// Count 商品总件数
func (s *Store) Count() int {
	return domain.CountOf(s.Lines())
}

// Total 金额合计，价格面议的商品不计入
func (s *Store) Total() decimal.Decimal {
	return domain.TotalOf(s.Lines())
}

// Lines 购物车行副本
func (s *Store) Lines() []domain.Line {
	cur := s.current()
	cur.mu.RLock()
	defer cur.mu.RUnlock()
	return cur.cart.Lines()
}

// View 当前视图
func (s *Store) View() View {
	return NewView(s.Lines(), s.links)
}

// Subscribe 注册监听器，返回取消函数。Store 被淘汰后监听器随会话转到新的 Store。
func (s *Store) Subscribe(l Listener) func() {
	set := s.listeners
	if id, ok := set.add(l); ok {
		return func() { set.remove(id) }
	}
	next := s.current()
	if next == s {
		return func() {}
	}
	return next.Subscribe(l)
}

// Flush 等待已提交的快照写入完成
func (s *Store) Flush(ctx context.Context) error {
	return s.writer.Flush(ctx)
}

// Close 写完剩余快照并停止后台写入，之后的变更同步落盘
func (s *Store) Close(ctx context.Context) error {
	return s.writer.Close(ctx)
}

// retire 停止接受变更并写完快照。之后的读写都转给 reopen 返回的 Store。
func (s *Store) retire(ctx context.Context) error {
	s.notifyMu.Lock()
	s.retired.Store(true)
	s.notifyMu.Unlock()
	return s.writer.Close(ctx)
}

// current 当前承载该会话的 Store，无法转交时返回自身
func (s *Store) current() *Store {
	if !s.retired.Load() || s.reopen == nil {
		return s
	}
	next, err := s.reopen(context.Background(), s.sessionID)
	if err != nil {
		return s
	}
	return next
}

// apply 在承载会话的 Store 上执行变更，退役的 Store 转交给新的 Store
func (s *Store) apply(ctx context.Context, op, eventType string, fn func(c *domain.Cart) any) error {
	cur := s
	for {
		cur.notifyMu.Lock()
		if !cur.retired.Load() {
			cur.mutate(ctx, op, eventType, fn)
			cur.notifyMu.Unlock()
			return nil
		}
		cur.notifyMu.Unlock()

		if cur.reopen == nil {
			return ErrStoreRetired
		}
		next, err := cur.reopen(ctx, cur.sessionID)
		if err != nil {
			return err
		}
		cur = next
	}
}

// mutate 调用方持有 notifyMu
func (s *Store) mutate(ctx context.Context, op, eventType string, fn func(c *domain.Cart) any) {
	s.mu.Lock()
	event := fn(s.cart)
	lines := s.cart.Lines()
	var snapshot []byte
	var err error
	if len(lines) > 0 {
		snapshot, err = domain.EncodeSnapshot(s.cart)
	}
	s.mu.Unlock()

	if err != nil {
		logger.Error(ctx, "Failed to encode cart snapshot", "error", err)
	} else {
		s.writer.Submit(snapshot)
	}
	s.metrics.RecordCartMutation(op)
	s.publish(ctx, eventType, event)
	s.notify(NewView(lines, s.links))
}

func (s *Store) publish(ctx context.Context, eventType string, event any) {
	if s.publisher == nil {
		return
	}
	env := domain.Envelope{Type: eventType, Payload: event}
	if err := s.publisher.Publish(ctx, s.topic, s.sessionID, env); err != nil {
		logger.Warn(ctx, "Failed to publish cart event", "type", eventType, "error", err)
	}
}

func (s *Store) notify(v View) {
	for _, l := range s.listeners.snapshot() {
		l(v)
	}
}
