// Package domain 下单意向：购物车经 WhatsApp 转交给店员，不在本服务内成交
package domain

import (
	"errors"
	"time"

	cartdomain "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrEmptyCart 空购物车不能下单
var ErrEmptyCart = errors.New("order: cart is empty")

// OrderIntent 一次下单转交
type OrderIntent struct {
	IntentID  string
	SessionID string
	Lines     []cartdomain.Line
	Count     int
	Total     decimal.Decimal
	Link      string
	CreatedAt time.Time
}

// NewOrderIntent 由购物车行创建下单意向
func NewOrderIntent(sessionID string, lines []cartdomain.Line) (*OrderIntent, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	return &OrderIntent{
		IntentID:  uuid.NewString(),
		SessionID: sessionID,
		Lines:     lines,
		Count:     cartdomain.CountOf(lines),
		Total:     cartdomain.TotalOf(lines),
		CreatedAt: time.Now(),
	}, nil
}

// EventOrderIntentCreated 下单意向事件主题
const EventOrderIntentCreated = "order.intent.created"

// OrderIntentLine 事件中的商品行
type OrderIntentLine struct {
	ProductID int64               `json:"product_id"`
	Name      string              `json:"name"`
	Price     decimal.NullDecimal `json:"price"`
	Quantity  int                 `json:"quantity"`
}

// OrderIntentCreatedEvent 下单意向创建事件
type OrderIntentCreatedEvent struct {
	IntentID   string            `json:"intent_id"`
	SessionID  string            `json:"session_id"`
	Lines      []OrderIntentLine `json:"lines"`
	Count      int               `json:"count"`
	Total      decimal.Decimal   `json:"total"`
	OccurredOn time.Time         `json:"occurred_on"`
}

// Event 生成下单意向事件
func (o *OrderIntent) Event() OrderIntentCreatedEvent {
	lines := make([]OrderIntentLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderIntentLine{ProductID: l.ID, Name: l.Name, Price: l.Price, Quantity: l.Quantity})
	}
	return OrderIntentCreatedEvent{
		IntentID:   o.IntentID,
		SessionID:  o.SessionID,
		Lines:      lines,
		Count:      o.Count,
		Total:      o.Total,
		OccurredOn: o.CreatedAt,
	}
}
