package application

import (
	"strings"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/catalog/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/utils"
	"github.com/shopspring/decimal"
)

// DefaultPriceCeiling 没有任何标价商品时的价格上限
var DefaultPriceCeiling = decimal.NewFromInt(100000)

// Filter 商品列表筛选条件
type Filter struct {
	// Term 名称或描述包含的文本，不区分大小写
	Term string
	// Categories 分类名集合，空表示全部
	Categories []string
	// MinPrice/MaxPrice 价格区间（含边界），未标价按 0 计
	MinPrice decimal.NullDecimal
	MaxPrice decimal.NullDecimal
}

// Match 商品是否满足条件
func (f Filter) Match(p domain.Product) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Term)); term != "" {
		if !strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			return false
		}
	}
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if c == p.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	price := decimal.Zero
	if p.Price.Valid {
		price = p.Price.Decimal
	}
	if f.MinPrice.Valid && price.LessThan(f.MinPrice.Decimal) {
		return false
	}
	if f.MaxPrice.Valid && price.GreaterThan(f.MaxPrice.Decimal) {
		return false
	}
	return true
}

// Apply 返回满足条件的商品，保持原顺序
func (f Filter) Apply(products []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// PriceCeiling 最高标价，没有标价商品时为 DefaultPriceCeiling
func PriceCeiling(products []domain.Product) decimal.Decimal {
	ceiling := decimal.Zero
	found := false
	for _, p := range products {
		if !p.Price.Valid {
			continue
		}
		if !found || p.Price.Decimal.GreaterThan(ceiling) {
			ceiling = p.Price.Decimal
			found = true
		}
	}
	if !found {
		return DefaultPriceCeiling
	}
	return ceiling
}

// Page 分页结果
type Page struct {
	Products   []domain.Product  `json:"products"`
	Pagination *utils.Pagination `json:"pagination"`
}

// Paginate 截取第 page 页
func Paginate(products []domain.Product, page, pageSize int) Page {
	p := utils.NewPagination(page, pageSize, int64(len(products)))
	start, end := p.Bounds(len(products))
	items := make([]domain.Product, end-start)
	copy(items, products[start:end])
	return Page{Products: items, Pagination: p}
}
