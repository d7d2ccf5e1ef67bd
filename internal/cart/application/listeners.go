package application

import "sync"

// listenerSet 一个会话的监听器集合。Store 被淘汰后集合会暂存在 Registry，
// 由同一会话的新 Store 接管，已挂载的视图因此不会与会话脱节。
type listenerSet struct {
	mu   sync.Mutex
	m    map[uint64]Listener
	next uint64
	// dropped 为 true 后集合不再接受新的监听器
	dropped bool
	onEmpty func()
}

func newListenerSet() *listenerSet {
	return &listenerSet{m: make(map[uint64]Listener)}
}

func (ls *listenerSet) add(l Listener) (uint64, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.dropped {
		return 0, false
	}
	id := ls.next
	ls.next++
	ls.m[id] = l
	return id, true
}

func (ls *listenerSet) remove(id uint64) {
	ls.mu.Lock()
	delete(ls.m, id)
	var hook func()
	if len(ls.m) == 0 && ls.onEmpty != nil {
		hook, ls.onEmpty = ls.onEmpty, nil
		ls.dropped = true
	}
	ls.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (ls *listenerSet) snapshot() []Listener {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	out := make([]Listener, 0, len(ls.m))
	for _, l := range ls.m {
		out = append(out, l)
	}
	return out
}

// park 暂存集合等待接管；集合为空时直接废弃并返回 false。
// onEmpty 在暂存期间最后一个监听器取消时调用。
func (ls *listenerSet) park(onEmpty func()) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if len(ls.m) == 0 {
		ls.dropped = true
		return false
	}
	ls.onEmpty = onEmpty
	return true
}

// adopt 由新 Store 接管暂存的集合，集合已废弃时返回 false
func (ls *listenerSet) adopt() bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.dropped {
		return false
	}
	ls.onEmpty = nil
	return true
}
