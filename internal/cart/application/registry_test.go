package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenLoadRepo struct {
	*memory.SnapshotRepository
}

func (brokenLoadRepo) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

type slowSaveRepo struct {
	*memory.SnapshotRepository
	delay time.Duration
}

func (r *slowSaveRepo) Save(ctx context.Context, sessionID string, data []byte) error {
	time.Sleep(r.delay)
	return r.SnapshotRepository.Save(ctx, sessionID, data)
}

func TestRegistry_SameSessionSameStore(t *testing.T) {
	reg, err := NewRegistry(10, StoreOptions{Repo: memory.NewSnapshotRepository()})
	require.NoError(t, err)
	defer reg.Close(context.Background())

	ctx := context.Background()
	a, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	b, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	other, err := reg.Get(ctx, "s2")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_RestoresPersistedCart(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSnapshotRepository()
	require.NoError(t, repo.Save(ctx, "s1", []byte(`[{"id":5,"name":"Oxymètre","price":15000,"quantity":2}]`)))

	reg, err := NewRegistry(10, StoreOptions{Repo: repo})
	require.NoError(t, err)
	defer reg.Close(ctx)

	store, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.Count())
	assert.Equal(t, "30000", store.Total().String())
}

func TestRegistry_MalformedSnapshotStartsEmpty(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSnapshotRepository()
	require.NoError(t, repo.Save(ctx, "s1", []byte(`{garbage`)))

	reg, err := NewRegistry(10, StoreOptions{Repo: repo})
	require.NoError(t, err)
	defer reg.Close(ctx)

	store, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, store.Count())
}

func TestRegistry_LoadFailureStartsEmpty(t *testing.T) {
	ctx := context.Background()
	reg, err := NewRegistry(10, StoreOptions{Repo: brokenLoadRepo{memory.NewSnapshotRepository()}})
	require.NoError(t, err)
	defer reg.Close(ctx)

	store, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, store.Count())
	require.NoError(t, store.AddToCart(ctx, domain.Item{ID: 1, Name: "A"}))
	assert.Equal(t, 1, store.Count())
}

func TestRegistry_ReloadAfterEvictionSeesLastSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := &slowSaveRepo{SnapshotRepository: memory.NewSnapshotRepository(), delay: 50 * time.Millisecond}
	reg, err := NewRegistry(1, StoreOptions{Repo: repo})
	require.NoError(t, err)
	defer reg.Close(ctx)

	first, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, first.AddToCart(ctx, domain.Item{ID: 1, Name: "A"}))
	require.NoError(t, first.AddToCart(ctx, domain.Item{ID: 2, Name: "B"}))

	_, err = reg.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	restored, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	assert.NotSame(t, first, restored)
	assert.Equal(t, 2, restored.Count())
}

func TestRegistry_EvictionKeepsViewsAttached(t *testing.T) {
	ctx := context.Background()
	repo := &slowSaveRepo{SnapshotRepository: memory.NewSnapshotRepository(), delay: 20 * time.Millisecond}
	reg, err := NewRegistry(1, StoreOptions{Repo: repo})
	require.NoError(t, err)
	defer reg.Close(ctx)

	first, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	var counts []int
	var mu sync.Mutex
	unsubscribe := first.Subscribe(func(v View) {
		mu.Lock()
		counts = append(counts, v.Count)
		mu.Unlock()
	})
	defer unsubscribe()
	require.NoError(t, first.AddToCart(ctx, domain.Item{ID: 1, Name: "A"}))

	_, err = reg.Get(ctx, "s2")
	require.NoError(t, err)
	restored, err := reg.Get(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, restored.AddToCart(ctx, domain.Item{ID: 2, Name: "B"}))
	// 旧指针上的变更转交给当前 Store
	require.NoError(t, first.AddToCart(ctx, domain.Item{ID: 2, Name: "B"}))

	assert.Equal(t, 3, restored.Count())
	assert.Equal(t, 3, first.Count())
	mu.Lock()
	assert.Equal(t, []int{1, 2, 3}, counts)
	mu.Unlock()
}

func TestRegistry_SubscribeOnEvictedStoreFollowsSession(t *testing.T) {
	ctx := context.Background()
	reg, err := NewRegistry(1, StoreOptions{Repo: memory.NewSnapshotRepository()})
	require.NoError(t, err)
	defer reg.Close(ctx)

	first, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	_, err = reg.Get(ctx, "s2")
	require.NoError(t, err)

	var notified atomic.Int64
	unsubscribe := first.Subscribe(func(View) { notified.Add(1) })
	defer unsubscribe()

	current, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, current.AddToCart(ctx, domain.Item{ID: 1, Name: "A"}))
	assert.Equal(t, int64(1), notified.Load())
}

func TestRegistry_UnsubscribeReleasesParkedListeners(t *testing.T) {
	ctx := context.Background()
	reg, err := NewRegistry(1, StoreOptions{Repo: memory.NewSnapshotRepository()})
	require.NoError(t, err)
	defer reg.Close(ctx)

	first, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	unsubscribe := first.Subscribe(func(View) {})
	_, err = reg.Get(ctx, "s2")
	require.NoError(t, err)

	parked := func() int {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		return len(reg.parked)
	}
	require.Eventually(t, func() bool { return parked() == 1 }, time.Second, 5*time.Millisecond)
	unsubscribe()
	assert.Equal(t, 0, parked())
}

func TestRegistry_CloseFlushesAndRejects(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSnapshotRepository()
	reg, err := NewRegistry(10, StoreOptions{Repo: repo})
	require.NoError(t, err)

	store, err := reg.Get(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, store.AddToCart(ctx, domain.Item{ID: 9, Name: "Z"}))

	require.NoError(t, reg.Close(ctx))
	raw, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	_, err = reg.Get(ctx, "s1")
	assert.True(t, err == nil || errors.Is(err, ErrRegistryClosed))
	_, err = reg.Get(ctx, "new-session")
	assert.ErrorIs(t, err, ErrRegistryClosed)
}
