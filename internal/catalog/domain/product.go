// Package domain 远程商品目录的只读模型与网关端口
package domain

import (
	"context"
	"errors"

	cartdomain "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/shopspring/decimal"
)

// PlaceholderImage 商品没有图片时使用的占位图
const PlaceholderImage = "/images/placeholder.jpg"

// ErrProductNotFound 商品不存在
var ErrProductNotFound = errors.New("catalog: product not found")

// Product 商品列表项，price 为 null 表示价格面议
type Product struct {
	ID          int64               `json:"id"`
	Slug        string              `json:"slug"`
	Name        string              `json:"name"`
	Price       decimal.NullDecimal `json:"price"`
	Image       string              `json:"image"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
}

// CartItem 转换为购物车商品
func (p Product) CartItem() cartdomain.Item {
	return cartdomain.Item{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Image:       p.Image,
		Slug:        p.Slug,
		Description: p.Description,
		Category:    p.Category,
	}
}

// ProductDetails 商品详情
type ProductDetails struct {
	ID          int64               `json:"id"`
	Slug        string              `json:"slug"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       decimal.NullDecimal `json:"price"`
	Images      []string            `json:"images"`
	UpdatedAt   string              `json:"updated_at"`
	Category    string              `json:"category"`
}

// PrimaryImage 第一张图片，没有时返回占位图
func (d ProductDetails) PrimaryImage() string {
	if len(d.Images) > 0 && d.Images[0] != "" {
		return d.Images[0]
	}
	return PlaceholderImage
}

// CartItem 转换为购物车商品，图片取第一张或占位图
func (d ProductDetails) CartItem() cartdomain.Item {
	return cartdomain.Item{
		ID:          d.ID,
		Name:        d.Name,
		Price:       d.Price,
		Image:       d.PrimaryImage(),
		Slug:        d.Slug,
		Description: d.Description,
		Category:    d.Category,
	}
}

// Category 商品分类
type Category struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Gateway 远程目录 API
type Gateway interface {
	ListProducts(ctx context.Context) ([]Product, error)
	TopProducts(ctx context.Context) ([]Product, error)
	// ProductBySlug 不存在时返回 ErrProductNotFound
	ProductBySlug(ctx context.Context, slug string) (*ProductDetails, error)
	SearchProducts(ctx context.Context, query string) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
}
