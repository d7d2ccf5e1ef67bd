package application

import (
	"context"

	cartdomain "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/order/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/metrics"
)

// HandoffService 下单转交服务：生成 WhatsApp 链接并尽力发布下单意向，不等待任何回应
type HandoffService struct {
	links     *LinkBuilder
	publisher domain.EventPublisher
	topic     string
	metrics   metrics.Collector
}

// NewHandoffService 创建下单转交服务
func NewHandoffService(links *LinkBuilder, publisher domain.EventPublisher, topic string, m metrics.Collector) *HandoffService {
	if m == nil {
		m = metrics.Nop{}
	}
	if topic == "" {
		topic = domain.EventOrderIntentCreated
	}
	return &HandoffService{
		links:     links,
		publisher: publisher,
		topic:     topic,
		metrics:   m,
	}
}

// Checkout 为当前购物车生成下单意向，空购物车返回 ErrEmptyCart
func (s *HandoffService) Checkout(ctx context.Context, sessionID string, lines []cartdomain.Line) (*domain.OrderIntent, error) {
	intent, err := domain.NewOrderIntent(sessionID, lines)
	if err != nil {
		return nil, err
	}
	intent.Link = s.links.OrderURL(lines)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, s.topic, intent.IntentID, intent.Event()); err != nil {
			logger.Warn(ctx, "Failed to publish order intent", "intent_id", intent.IntentID, "error", err)
		}
	}
	s.metrics.RecordOrderHandoff()
	logger.Info(ctx, "Order handed off to WhatsApp",
		"intent_id", intent.IntentID,
		"count", intent.Count,
		"total", intent.Total.String(),
	)
	return intent, nil
}

// Links 链接生成器
func (s *HandoffService) Links() *LinkBuilder {
	return s.links
}
