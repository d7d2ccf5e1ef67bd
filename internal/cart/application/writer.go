package application

import (
	"context"
	"sync"
	"time"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/metrics"
)

// writeBehind 后台写快照：只保留最新一份待写数据，写失败只记录日志与指标。
// data 为 nil 表示购物车已空，对应删除快照。每份数据带递增序号，
// 序号不大于已写入序号的数据直接丢弃，保证仓储里总是最新的快照。
type writeBehind struct {
	sessionID string
	repo      domain.SnapshotRepository
	timeout   time.Duration
	metrics   metrics.Collector

	mu         sync.Mutex
	seq        uint64
	pending    []byte
	pendingSeq uint64
	dirty      bool
	closed     bool

	// wmu 串行化仓储写入
	wmu     sync.Mutex
	written uint64

	wake  chan struct{}
	flush chan chan struct{}
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newWriteBehind(sessionID string, repo domain.SnapshotRepository, timeout time.Duration, m metrics.Collector) *writeBehind {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	w := &writeBehind{
		sessionID: sessionID,
		repo:      repo,
		timeout:   timeout,
		metrics:   m,
		wake:      make(chan struct{}, 1),
		flush:     make(chan chan struct{}),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go w.run()
	return w
}

// Submit 替换待写快照并唤醒后台协程；关闭后改为同步写入
func (w *writeBehind) Submit(data []byte) {
	w.mu.Lock()
	w.seq++
	seq := w.seq
	if w.closed {
		w.mu.Unlock()
		// 关闭后的迟到写入同步落盘
		w.write(data, seq)
		return
	}
	w.pending, w.pendingSeq = data, seq
	w.dirty = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Flush 等待当前待写快照落盘
func (w *writeBehind) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case w.flush <- ack:
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 写完剩余快照后停止后台协程，可重复调用
func (w *writeBehind) Close(ctx context.Context) error {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.quit)
	})
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writeBehind) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case ack := <-w.flush:
			w.drain()
			close(ack)
		case <-w.quit:
			w.drain()
			return
		}
	}
}

func (w *writeBehind) drain() {
	for {
		w.mu.Lock()
		if !w.dirty {
			w.mu.Unlock()
			return
		}
		data, seq := w.pending, w.pendingSeq
		w.pending, w.dirty = nil, false
		w.mu.Unlock()

		w.write(data, seq)
	}
}

func (w *writeBehind) write(data []byte, seq uint64) {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	if seq <= w.written {
		return
	}
	w.written = seq

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, logger.SessionIDKey, w.sessionID)

	var err error
	if data == nil {
		err = w.repo.Delete(ctx, w.sessionID)
	} else {
		err = w.repo.Save(ctx, w.sessionID, data)
	}
	if err != nil {
		w.metrics.RecordSnapshotWriteFailure()
		logger.Warn(ctx, "Failed to persist cart snapshot", "error", err)
	}
}
