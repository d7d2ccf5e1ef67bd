package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/catalog/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/metrics"
)

// ErrSearchSuperseded 同一会话已有更新的查询，本次结果作废
var ErrSearchSuperseded = errors.New("catalog: search superseded by a newer query")

const defaultDebounce = 300 * time.Millisecond

// ProductSearcher 实际执行搜索的一方
type ProductSearcher interface {
	SearchProducts(ctx context.Context, query string) []domain.Product
}

// SearchResult 搜索结果，Cleared 表示查询过短、结果被清空
type SearchResult struct {
	Query    string           `json:"query"`
	Products []domain.Product `json:"products"`
	Cleared  bool             `json:"cleared"`
}

// SearchOptions 防抖参数
type SearchOptions struct {
	Debounce  time.Duration
	MinLength int
	Metrics   metrics.Collector
}

type searchSlot struct {
	seq    uint64
	cancel context.CancelFunc
}

// SearchCoordinator 按会话防抖的搜索，同一会话只有最后一次查询生效
type SearchCoordinator struct {
	searcher  ProductSearcher
	debounce  time.Duration
	minLength int
	metrics   metrics.Collector

	mu    sync.Mutex
	slots map[string]*searchSlot
}

// NewSearchCoordinator 创建搜索协调器
func NewSearchCoordinator(searcher ProductSearcher, opts SearchOptions) *SearchCoordinator {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.MinLength < 1 {
		opts.MinLength = 1
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	return &SearchCoordinator{
		searcher:  searcher,
		debounce:  opts.Debounce,
		minLength: opts.MinLength,
		metrics:   opts.Metrics,
		slots:     make(map[string]*searchSlot),
	}
}

// Search 等待防抖窗口后搜索。窗口内或请求途中被同会话新查询取代时返回 ErrSearchSuperseded；
// 查询短于最小长度时不发请求，直接返回清空结果
func (c *SearchCoordinator) Search(ctx context.Context, sessionID, query string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	seq, callCtx := c.begin(ctx, sessionID)
	defer c.finish(sessionID, seq)

	if utf8.RuneCountInString(query) < c.minLength {
		return SearchResult{Query: query, Products: []domain.Product{}, Cleared: true}, nil
	}

	timer := time.NewTimer(c.debounce)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-callCtx.Done():
		return SearchResult{}, c.abandoned(ctx, query)
	}

	products := c.searcher.SearchProducts(callCtx, query)
	if !c.current(sessionID, seq) || callCtx.Err() != nil {
		return SearchResult{}, c.abandoned(ctx, query)
	}
	return SearchResult{Query: query, Products: products}, nil
}

// Pending 尚未结束的会话数
func (c *SearchCoordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// begin 登记新查询并取消同会话的旧查询
func (c *SearchCoordinator) begin(ctx context.Context, sessionID string) (uint64, context.Context) {
	callCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	slot, ok := c.slots[sessionID]
	if !ok {
		slot = &searchSlot{}
		c.slots[sessionID] = slot
	}
	if slot.cancel != nil {
		slot.cancel()
	}
	slot.seq++
	slot.cancel = cancel
	return slot.seq, callCtx
}

func (c *SearchCoordinator) current(sessionID string, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot, ok := c.slots[sessionID]
	return ok && slot.seq == seq
}

// finish 释放本次查询，最新查询结束时清理会话记录
func (c *SearchCoordinator) finish(sessionID string, seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot, ok := c.slots[sessionID]
	if !ok || slot.seq != seq {
		return
	}
	slot.cancel()
	delete(c.slots, sessionID)
}

// abandoned 区分调用方取消与被新查询取代
func (c *SearchCoordinator) abandoned(ctx context.Context, query string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.metrics.RecordSearchSuperseded()
	logger.Debug(ctx, "Search superseded", "query", query)
	return ErrSearchSuperseded
}
