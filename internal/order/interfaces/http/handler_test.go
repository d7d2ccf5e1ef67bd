package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	cartapp "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/application"
	cartdomain "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/infrastructure/persistence/memory"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/order/application"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*gin.Engine, *cartapp.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	registry, err := cartapp.NewRegistry(8, cartapp.StoreOptions{Repo: memory.NewSnapshotRepository()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = registry.Close(context.Background()) })

	handoff := application.NewHandoffService(application.NewLinkBuilder("+22891798292", ""), nil, "", nil)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.SessionIDKey, "s1")
		c.Next()
	})
	NewOrderHandler(registry, handoff).RegisterRoutes(&router.RouterGroup)
	return router, registry
}

func serve(router *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestOrderHandler_EmptyCart(t *testing.T) {
	router, _ := setup(t)
	assert.Equal(t, http.StatusConflict, serve(router, "/api/v1/checkout/whatsapp").Code)
}

func TestOrderHandler_RedirectsToWhatsApp(t *testing.T) {
	router, registry := setup(t)
	store, err := registry.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NoError(t, store.AddToCart(context.Background(), cartdomain.Item{
		ID: 1, Name: "Gants", Price: decimal.NewNullDecimal(decimal.NewFromInt(3000)),
	}))

	w := serve(router, "/api/v1/checkout/whatsapp")
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://wa.me/22891798292?text="))

	w = serve(router, "/api/v1/checkout/whatsapp?redirect=false")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			IntentID string `json:"intent_id"`
			URL      string `json:"url"`
			Count    int    `json:"count"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.IntentID)
	assert.Equal(t, 1, body.Data.Count)
	assert.Contains(t, body.Data.URL, "Gants")
}

func TestOrderHandler_Contact(t *testing.T) {
	router, _ := setup(t)

	var body struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	w := serve(router, "/api/v1/checkout/contact")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body.Data.URL, "https://wa.me/22891798292"))
}
