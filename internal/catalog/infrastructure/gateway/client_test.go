package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/catalog/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/httpclient"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalogAPI struct {
	productHits atomic.Int64
	topHits     atomic.Int64
	lastQuery   atomic.Value
}

func (f *fakeCatalogAPI) handler() http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		f.productHits.Add(1)
		write(w, http.StatusOK, `{"data":[
			{"id":1,"slug":"tensiometre","name":"Tensiomètre","price":15000,"image":"/t.jpg","category":"Diagnostic"},
			{"id":2,"slug":"gants","name":"Gants","price":null,"category":"Protection"}
		]}`)
	})
	mux.HandleFunc("/top-products", func(w http.ResponseWriter, r *http.Request) {
		f.topHits.Add(1)
		write(w, http.StatusInternalServerError, `{"message":"boom"}`)
	})
	mux.HandleFunc("/products/tensiometre", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"data":{"id":1,"slug":"tensiometre","name":"Tensiomètre","price":"15000",
			"images":["/a.jpg","/b.jpg"],"updated_at":"2024-05-01"}}`)
	})
	mux.HandleFunc("/products/vide", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"data":null}`)
	})
	mux.HandleFunc("/products/absent", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusNotFound, `{"message":"not found"}`)
	})
	mux.HandleFunc("/products-search", func(w http.ResponseWriter, r *http.Request) {
		f.lastQuery.Store(r.URL.Query().Get("q"))
		write(w, http.StatusOK, `{"data":[{"id":3,"slug":"thermometre","name":"Thermomètre","price":5000}]}`)
	})
	mux.HandleFunc("/categories", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, `{"data":[{"id":1,"slug":"diagnostic","name":"Diagnostic"}]}`)
	})
	return mux
}

func newTestClient(t *testing.T, cfg Config) (*Client, *fakeCatalogAPI) {
	t.Helper()
	api := &fakeCatalogAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	client, err := New(context.Background(), httpclient.NewClient(httpclient.ClientConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, api
}

func TestClient_ListProducts(t *testing.T) {
	client, _ := newTestClient(t, Config{})

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Tensiomètre", products[0].Name)
	assert.True(t, products[0].Price.Valid)
	assert.Equal(t, "15000", products[0].Price.Decimal.String())
	assert.False(t, products[1].Price.Valid)
}

func TestClient_ListProductsIsCached(t *testing.T) {
	client, api := newTestClient(t, Config{CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		products, err := client.ListProducts(context.Background())
		require.NoError(t, err)
		require.Len(t, products, 2)
	}
	assert.Equal(t, int64(1), api.productHits.Load())
}

func TestClient_ProductBySlug(t *testing.T) {
	client, _ := newTestClient(t, Config{})

	details, err := client.ProductBySlug(context.Background(), "tensiometre")
	require.NoError(t, err)
	assert.Equal(t, "/a.jpg", details.PrimaryImage())
	assert.Equal(t, "2024-05-01", details.UpdatedAt)

	_, err = client.ProductBySlug(context.Background(), "absent")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = client.ProductBySlug(context.Background(), "vide")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = client.ProductBySlug(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestClient_SearchSendsQuery(t *testing.T) {
	client, api := newTestClient(t, Config{})

	products, err := client.SearchProducts(context.Background(), "thermo mètre")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "thermo mètre", api.lastQuery.Load())
}

func TestClient_ListCategories(t *testing.T) {
	client, _ := newTestClient(t, Config{})

	categories, err := client.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{{ID: 1, Slug: "diagnostic", Name: "Diagnostic"}}, categories)
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	client, api := newTestClient(t, Config{BreakerFailures: 2, BreakerTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := client.TopProducts(context.Background())
		var statusErr *httpclient.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	}

	_, err := client.TopProducts(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int64(2), api.topHits.Load())
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	client, _ := newTestClient(t, Config{BreakerFailures: 1, BreakerTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := client.ProductBySlug(context.Background(), "absent")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	}
	_, err := client.ProductBySlug(context.Background(), "tensiometre")
	assert.NoError(t, err)
}
