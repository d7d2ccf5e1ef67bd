// Package domain 购物车领域模型：购物车行、合并规则、快照与分享链接编解码
package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidItem 商品缺少 id 或名称
	ErrInvalidItem = errors.New("cart: item requires a non-zero id and a name")
)

// Item 加入购物车的商品（来自目录，不含数量）
type Item struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Price       decimal.NullDecimal `json:"price"`
	Image       string              `json:"image,omitempty"`
	Slug        string              `json:"slug,omitempty"`
	Description string              `json:"description,omitempty"`
	Category    string              `json:"category,omitempty"`
}

// Validate 检查商品是否满足加入购物车的最低要求
func (i Item) Validate() error {
	if i.ID == 0 || strings.TrimSpace(i.Name) == "" {
		return ErrInvalidItem
	}
	return nil
}

// Line 购物车中的一行，价格无效表示“价格面议”
type Line struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Price       decimal.NullDecimal `json:"price"`
	Image       string              `json:"image,omitempty"`
	Slug        string              `json:"slug,omitempty"`
	Description string              `json:"description,omitempty"`
	Category    string              `json:"category,omitempty"`
	Quantity    int                 `json:"quantity"`
}

// Subtotal 单价乘以数量，价格面议时为 0
func (l Line) Subtotal() decimal.Decimal {
	if !l.Price.Valid {
		return decimal.Zero
	}
	return l.Price.Decimal.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func newLine(item Item) Line {
	return Line{
		ID:          item.ID,
		Name:        item.Name,
		Price:       item.Price,
		Image:       item.Image,
		Slug:        item.Slug,
		Description: item.Description,
		Category:    item.Category,
		Quantity:    1,
	}
}

// Cart 购物车：按加入顺序保存，同一商品 id 只有一行
type Cart struct {
	lines []Line
}

// NewCart 创建空购物车
func NewCart() *Cart {
	return &Cart{}
}

// Add 加入商品：已存在则数量加一（保留首次加入时的展示字段），否则追加一行
func (c *Cart) Add(item Item) {
	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, newLine(item))
}

// Remove 删除商品行，id 不存在时返回 false
func (c *Cart) Remove(id int64) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

// Clear 清空
func (c *Cart) Clear() {
	c.lines = nil
}

// Count 商品总件数
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Total 有价格商品的金额合计
func (c *Cart) Total() decimal.Decimal {
	return TotalOf(c.lines)
}

// Len 行数
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines 返回购物车行的副本
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Quantity 返回商品 id 的数量，不存在时为 0
func (c *Cart) Quantity(id int64) int {
	if i := c.index(id); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

func (c *Cart) index(id int64) int {
	for i := range c.lines {
		if c.lines[i].ID == id {
			return i
		}
	}
	return -1
}

// TotalOf 计算任意购物车行集合的金额
func TotalOf(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// CountOf 计算任意购物车行集合的件数
func CountOf(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
