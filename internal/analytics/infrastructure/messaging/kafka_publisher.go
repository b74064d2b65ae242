package messaging

import (
	"context"

	"github.com/civicpulse/accountability/internal/analytics/domain"
	"github.com/civicpulse/accountability/pkg/mq"
)

// KafkaEventPublisher 将告警事件发布到 Kafka 告警流
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaEventPublisher 创建告警事件发布器
func NewKafkaEventPublisher(producer *mq.KafkaProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		producer: producer,
		topic:    topic,
	}
}

// PublishAlertCreated 发布告警创建事件，按人员编号分区保证同人有序
func (p *KafkaEventPublisher) PublishAlertCreated(ctx context.Context, event *domain.AlertCreatedEvent) error {
	return p.producer.SendMessage(ctx, p.topic, event.OfficerID, event)
}
