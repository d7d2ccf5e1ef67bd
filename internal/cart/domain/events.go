package domain

import "time"

// 事件主题
const (
	EventItemAdded   = "cart.item.added"
	EventItemRemoved = "cart.item.removed"
	EventCleared     = "cart.cleared"
)

// CartItemAddedEvent 购物车添加商品事件
type CartItemAddedEvent struct {
	SessionID string    `json:"session_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// CartItemRemovedEvent 购物车移除商品事件
type CartItemRemovedEvent struct {
	SessionID string    `json:"session_id"`
	ProductID int64     `json:"product_id"`
	Removed   bool      `json:"removed"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// CartClearedEvent 购物车清空事件
type CartClearedEvent struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope 发布到消息队列的事件包装
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
