package messaging

import (
	"context"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/order/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/mq"
)

// KafkaEventPublisher 将下单意向发布到 Kafka
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
}

var _ domain.EventPublisher = (*KafkaEventPublisher)(nil)

// NewKafkaEventPublisher 创建 Kafka 事件发布者
func NewKafkaEventPublisher(producer *mq.KafkaProducer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

// Publish 发布事件，key 为下单意向 ID
func (p *KafkaEventPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return p.producer.SendMessage(ctx, topic, key, event)
}
