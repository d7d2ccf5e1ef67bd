// Package application 商品目录读取服务：所有读取失败都降级为空结果
package application

import (
	"context"
	"errors"
	"strings"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/catalog/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/metrics"
)

// CatalogQueryService 商品目录查询服务
type CatalogQueryService struct {
	gateway domain.Gateway
	metrics metrics.Collector
}

// NewCatalogQueryService 创建查询服务
func NewCatalogQueryService(gateway domain.Gateway, m metrics.Collector) *CatalogQueryService {
	if m == nil {
		m = metrics.Nop{}
	}
	return &CatalogQueryService{gateway: gateway, metrics: m}
}

// ListProducts 全部商品，失败时为空
func (s *CatalogQueryService) ListProducts(ctx context.Context) []domain.Product {
	products, err := s.gateway.ListProducts(ctx)
	if err != nil {
		s.fail(ctx, "list_products", err)
		return []domain.Product{}
	}
	return nonNil(products)
}

// TopProducts 首页推荐商品，失败时为空
func (s *CatalogQueryService) TopProducts(ctx context.Context) []domain.Product {
	products, err := s.gateway.TopProducts(ctx)
	if err != nil {
		s.fail(ctx, "top_products", err)
		return []domain.Product{}
	}
	return nonNil(products)
}

// ProductBySlug 商品详情，不存在或失败时返回 nil
func (s *CatalogQueryService) ProductBySlug(ctx context.Context, slug string) *domain.ProductDetails {
	details, err := s.gateway.ProductBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, domain.ErrProductNotFound) {
			s.fail(ctx, "product_by_slug", err)
		}
		return nil
	}
	return details
}

// SearchProducts 搜索商品；空白查询不发起请求
func (s *CatalogQueryService) SearchProducts(ctx context.Context, query string) []domain.Product {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Product{}
	}
	products, err := s.gateway.SearchProducts(ctx, query)
	if err != nil {
		if ctx.Err() == nil {
			s.fail(ctx, "search_products", err)
		}
		return []domain.Product{}
	}
	return nonNil(products)
}

// ListCategories 全部分类，失败时为空
func (s *CatalogQueryService) ListCategories(ctx context.Context) []domain.Category {
	categories, err := s.gateway.ListCategories(ctx)
	if err != nil {
		s.fail(ctx, "list_categories", err)
		return []domain.Category{}
	}
	if categories == nil {
		return []domain.Category{}
	}
	return categories
}

func (s *CatalogQueryService) fail(ctx context.Context, op string, err error) {
	s.metrics.RecordCatalogFailure(op)
	logger.Error(ctx, "Catalog request failed", "op", op, "error", err)
}

func nonNil(products []domain.Product) []domain.Product {
	if products == nil {
		return []domain.Product{}
	}
	return products
}
