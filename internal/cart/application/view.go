package application

import (
	"strings"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/shopspring/decimal"
)

// View 购物车的只读视图，侧边栏、角标与事件流都由它渲染
type View struct {
	Lines    []domain.Line   `json:"lines"`
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
	Empty    bool            `json:"empty"`
	OrderURL string          `json:"order_url,omitempty"`
	ShareURL string          `json:"share_url,omitempty"`
}

// OrderLinker 根据购物车行生成下单链接（WhatsApp）
type OrderLinker interface {
	OrderURL(lines []domain.Line) string
}

// Links 视图中的外链生成
type Links struct {
	Order OrderLinker
	// 分享链接的站点根地址
	PublicBaseURL string
}

// ShareURL 生成分享链接 <base>/panier?data=<encoded>
func (l Links) ShareURL(lines []domain.Line) (string, error) {
	encoded, err := domain.EncodeShare(lines)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(l.PublicBaseURL, "/") + "/panier?data=" + encoded, nil
}

// NewView 由购物车行构建视图，空购物车不生成下单与分享链接
func NewView(lines []domain.Line, links Links) View {
	if lines == nil {
		lines = []domain.Line{}
	}
	v := View{
		Lines: lines,
		Count: domain.CountOf(lines),
		Total: domain.TotalOf(lines),
		Empty: len(lines) == 0,
	}
	if v.Empty {
		return v
	}
	if links.Order != nil {
		v.OrderURL = links.Order.OrderURL(lines)
	}
	if share, err := links.ShareURL(lines); err == nil {
		v.ShareURL = share
	}
	return v
}
