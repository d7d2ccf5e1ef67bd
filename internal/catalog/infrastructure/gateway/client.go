// Package gateway 远程商品目录 API 客户端（resty + 熔断 + 本地缓存）
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/catalog/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/httpclient"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

// Config 网关配置
type Config struct {
	// 列表、首页商品与分类的缓存时间，0 表示不缓存
	CacheTTL        time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Client 实现 domain.Gateway
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	cache   *bigcache.BigCache
}

var _ domain.Gateway = (*Client)(nil)

// envelope 远程 API 的统一响应格式 {"data": ...}
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// New 创建网关客户端
func New(ctx context.Context, httpClient *resty.Client, cfg Config) (*Client, error) {
	c := &Client{
		http: httpClient,
		breaker: httpclient.NewBreaker(httpclient.BreakerConfig{
			Name:     "catalog",
			Failures: cfg.BreakerFailures,
			Timeout:  cfg.BreakerTimeout,
			Ignore:   []error{domain.ErrProductNotFound},
		}),
	}
	if cfg.CacheTTL > 0 {
		cacheCfg := bigcache.DefaultConfig(cfg.CacheTTL)
		cacheCfg.Shards = 16
		cacheCfg.MaxEntrySize = 64 * 1024
		cacheCfg.HardMaxCacheSize = 32
		cacheCfg.Verbose = false
		cache, err := bigcache.New(ctx, cacheCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create catalog cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Close 释放缓存
func (c *Client) Close() error {
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	err := c.get(ctx, "/products", nil, "products", &out)
	return out, err
}

func (c *Client) TopProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	err := c.get(ctx, "/top-products", nil, "top-products", &out)
	return out, err
}

func (c *Client) ProductBySlug(ctx context.Context, slug string) (*domain.ProductDetails, error) {
	if slug == "" {
		return nil, domain.ErrProductNotFound
	}
	var out *domain.ProductDetails
	path := "/products/" + url.PathEscape(slug)
	if err := c.get(ctx, path, nil, "", &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, domain.ErrProductNotFound
	}
	return out, nil
}

func (c *Client) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	var out []domain.Product
	err := c.get(ctx, "/products-search", map[string]string{"q": query}, "", &out)
	return out, err
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := c.get(ctx, "/categories", nil, "categories", &out)
	return out, err
}

// get 读取 path 并将 data 解码到 out；cacheKey 非空时先查缓存
func (c *Client) get(ctx context.Context, path string, query map[string]string, cacheKey string, out any) error {
	if data, ok := c.cached(cacheKey); ok {
		if err := json.Unmarshal(data, out); err == nil {
			return nil
		}
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(query).
			Get(path)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() == http.StatusNotFound {
			return nil, domain.ErrProductNotFound
		}
		if resp.IsError() {
			return nil, &httpclient.StatusError{Method: http.MethodGet, Path: path, StatusCode: resp.StatusCode()}
		}
		return resp.Body(), nil
	})
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(res.([]byte), &env); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	c.store(ctx, cacheKey, env.Data)
	return nil
}

func (c *Client) cached(key string) ([]byte, bool) {
	if c.cache == nil || key == "" {
		return nil, false
	}
	data, err := c.cache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *Client) store(ctx context.Context, key string, data []byte) {
	if c.cache == nil || key == "" {
		return
	}
	if err := c.cache.Set(key, data); err != nil {
		logger.Debug(ctx, "Catalog cache set failed", "key", key, "error", err)
	}
}
