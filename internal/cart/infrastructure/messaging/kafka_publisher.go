package messaging

import (
	"context"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/mq"
)

// kafkaPublisher 通过 Kafka 发布购物车事件，key 为会话 ID
type kafkaPublisher struct {
	producer *mq.KafkaProducer
}

// NewKafkaPublisher 创建 Kafka 事件发布者
func NewKafkaPublisher(producer *mq.KafkaProducer) domain.EventPublisher {
	return &kafkaPublisher{producer: producer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return p.producer.SendMessage(ctx, topic, key, event)
}

// noopPublisher 未配置 Kafka 时丢弃事件
type noopPublisher struct{}

// NewNoopPublisher 创建空实现
func NewNoopPublisher() domain.EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, string, any) error { return nil }
