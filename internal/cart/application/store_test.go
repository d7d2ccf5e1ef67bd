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
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type failingRepo struct {
	*memory.SnapshotRepository
	fail atomic.Bool
}

func (r *failingRepo) Save(ctx context.Context, sessionID string, data []byte) error {
	if r.fail.Load() {
		return errors.New("storage unavailable")
	}
	return r.SnapshotRepository.Save(ctx, sessionID, data)
}

type countingMetrics struct {
	metrics.Nop
	mutations     atomic.Int64
	writeFailures atomic.Int64
}

func (m *countingMetrics) RecordCartMutation(string)    { m.mutations.Add(1) }
func (m *countingMetrics) RecordSnapshotWriteFailure() { m.writeFailures.Add(1) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.(domain.Envelope))
	return nil
}

type stubLinker struct{}

func (stubLinker) OrderURL(lines []domain.Line) string { return "https://wa.me/test" }

type StoreSuite struct {
	suite.Suite
	repo      *failingRepo
	metrics   *countingMetrics
	publisher *recordingPublisher
	store     *Store
}

func (s *StoreSuite) SetupTest() {
	s.repo = &failingRepo{SnapshotRepository: memory.NewSnapshotRepository()}
	s.metrics = &countingMetrics{}
	s.publisher = &recordingPublisher{}
	s.store = NewStore("sess-1", nil, StoreOptions{
		Repo:      s.repo,
		Publisher: s.publisher,
		Topic:     "storefront.cart",
		Links:     Links{Order: stubLinker{}, PublicBaseURL: "https://shop.example/"},
		Metrics:   s.metrics,
	})
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close(context.Background()))
}

func (s *StoreSuite) item(id int64, price int64) domain.Item {
	it := domain.Item{ID: id, Name: "Produit"}
	if price > 0 {
		it.Price = decimal.NewNullDecimal(decimal.NewFromInt(price))
	}
	return it
}

func (s *StoreSuite) TestAddAndQueries() {
	ctx := context.Background()
	s.Require().NoError(s.store.AddToCart(ctx, s.item(1, 1000)))
	s.Require().NoError(s.store.AddToCart(ctx, s.item(1, 1000)))
	s.Require().NoError(s.store.AddToCart(ctx, s.item(2, 0)))

	s.Equal(3, s.store.Count())
	s.True(s.store.Total().Equal(decimal.NewFromInt(2000)))
	s.Len(s.store.Lines(), 2)

	v := s.store.View()
	s.False(v.Empty)
	s.Equal("https://wa.me/test", v.OrderURL)
	s.Contains(v.ShareURL, "https://shop.example/panier?data=")
}

func (s *StoreSuite) TestInvalidItemIsRejected() {
	err := s.store.AddToCart(context.Background(), domain.Item{Name: "sans id"})
	s.ErrorIs(err, domain.ErrInvalidItem)
	s.Equal(0, s.store.Count())
	s.Equal(int64(0), s.metrics.mutations.Load())
}

func (s *StoreSuite) TestListenersObserveMutationsInOrder() {
	ctx := context.Background()
	var counts []int
	unsubscribe := s.store.Subscribe(func(v View) { counts = append(counts, v.Count) })

	s.Require().NoError(s.store.AddToCart(ctx, s.item(1, 100)))
	s.Require().NoError(s.store.AddToCart(ctx, s.item(1, 100)))
	s.Require().NoError(s.store.RemoveFromCart(ctx, 1))
	s.Require().NoError(s.store.RemoveFromCart(ctx, 1))
	s.Require().NoError(s.store.ClearCart(ctx))

	s.Equal([]int{1, 2, 0, 0, 0}, counts)

	unsubscribe()
	s.Require().NoError(s.store.AddToCart(ctx, s.item(3, 100)))
	s.Len(counts, 5)
}

func (s *StoreSuite) TestSnapshotPersistedAfterMutation() {
	ctx := context.Background()
	s.Require().NoError(s.store.AddToCart(ctx, s.item(1, 1000)))
	s.Require().NoError(s.store.AddToCart(ctx, s.item(2, 500)))
	s.Require().NoError(s.store.Flush(ctx))

	raw, err := s.repo.Load(ctx, "sess-1")
	s.Require().NoError(err)
	restored, err := domain.DecodeSnapshot(raw)
	s.Require().NoError(err)
	s.Equal(2, restored.Count())
	s.True(restored.Total().Equal(decimal.NewFromInt(1500)))
}

func (s *StoreSuite) TestClearDeletesSnapshot() {
	ctx := context.Background()
	s.Require().NoError(s.store.AddToCart(ctx, s.item(1, 1000)))
	s.Require().NoError(s.store.Flush(ctx))
	s.Equal(1, s.repo.Len())

	s.Require().NoError(s.store.ClearCart(ctx))
	s.Require().NoError(s.store.Flush(ctx))
	s.Equal(0, s.repo.Len())
}

func (s *StoreSuite) TestPersistFailureDoesNotRollBack() {
	ctx := context.Background()
	s.repo.fail.Store(true)

	s.Require().NoError(s.store.AddToCart(ctx, s.item(1, 1000)))
	s.Require().NoError(s.store.Flush(ctx))

	s.Equal(1, s.store.Count())
	s.Equal(int64(1), s.metrics.writeFailures.Load())

	s.repo.fail.Store(false)
	s.Require().NoError(s.store.AddToCart(ctx, s.item(1, 1000)))
	s.Require().NoError(s.store.Flush(ctx))
	raw, err := s.repo.Load(ctx, "sess-1")
	s.Require().NoError(err)
	restored, err := domain.DecodeSnapshot(raw)
	s.Require().NoError(err)
	s.Equal(2, restored.Count())
}

func (s *StoreSuite) TestEventsPublishedPerMutation() {
	ctx := context.Background()
	s.Require().NoError(s.store.AddToCart(ctx, s.item(1, 1000)))
	s.Require().NoError(s.store.RemoveFromCart(ctx, 42))
	s.Require().NoError(s.store.ClearCart(ctx))

	s.Require().Len(s.publisher.events, 3)
	s.Equal(domain.EventItemAdded, s.publisher.events[0].Type)
	removed := s.publisher.events[1].Payload.(domain.CartItemRemovedEvent)
	s.False(removed.Removed)
	s.Equal(domain.EventCleared, s.publisher.events[2].Type)
	s.Equal(int64(3), s.metrics.mutations.Load())
}

func (s *StoreSuite) TestEmptyViewHasNoLinks() {
	v := s.store.View()
	s.True(v.Empty)
	s.Empty(v.OrderURL)
	s.Empty(v.ShareURL)
	s.NotNil(v.Lines)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func TestStore_ConcurrentMutationsAreSerialized(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	store := NewStore("sess-c", nil, StoreOptions{Repo: repo})
	defer store.Close(context.Background())

	var seen atomic.Int64
	last := 0
	store.Subscribe(func(v View) {
		assert.Equal(t, last+1, v.Count)
		last = v.Count
		seen.Add(1)
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.AddToCart(context.Background(), domain.Item{ID: 1, Name: "A"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, store.Count())
	assert.Equal(t, int64(50), seen.Load())
}

func TestWriteBehind_CloseWritesPending(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	w := newWriteBehind("sess-w", repo, time.Second, metrics.Nop{})
	w.Submit([]byte(`[{"id":1,"name":"A","price":null,"quantity":1}]`))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Close(ctx))
	require.NoError(t, w.Close(ctx))
	require.NoError(t, w.Flush(ctx))

	raw, err := repo.Load(ctx, "sess-w")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
}

// agingRepo 购物车越旧写得越慢
type agingRepo struct {
	*memory.SnapshotRepository
}

func (r agingRepo) Save(ctx context.Context, sessionID string, data []byte) error {
	if cart, err := domain.DecodeSnapshot(data); err == nil {
		time.Sleep(time.Duration(10-cart.Count()) * 5 * time.Millisecond)
	}
	return r.SnapshotRepository.Save(ctx, sessionID, data)
}

func TestStore_MutationsAfterCloseKeepLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := agingRepo{memory.NewSnapshotRepository()}
	store := NewStore("sess-late", nil, StoreOptions{Repo: repo})
	require.NoError(t, store.Close(ctx))

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AddToCart(ctx, domain.Item{ID: 1, Name: "A"}))
	}
	require.NoError(t, store.Flush(ctx))

	raw, err := repo.Load(ctx, "sess-late")
	require.NoError(t, err)
	persisted, err := domain.DecodeSnapshot(raw)
	require.NoError(t, err)
	assert.Equal(t, 5, store.Count())
	assert.Equal(t, 5, persisted.Count())
}

func TestWriteBehind_DropsOutdatedWrite(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSnapshotRepository()
	w := newWriteBehind("sess-seq", repo, time.Second, metrics.Nop{})
	defer w.Close(ctx)

	newer := []byte(`[{"id":1,"name":"A","price":null,"quantity":2}]`)
	older := []byte(`[{"id":1,"name":"A","price":null,"quantity":1}]`)
	w.write(newer, 2)
	w.write(older, 1)

	raw, err := repo.Load(ctx, "sess-seq")
	require.NoError(t, err)
	assert.Equal(t, newer, raw)
}
