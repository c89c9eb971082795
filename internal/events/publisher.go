// Package events публикует события жизненного цикла заказов в Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Типы событий заказа.
const (
	TypeOrderCreated   = "order.created"
	TypeOrderAccepted  = "order.accepted"
	TypeOrderRejected  = "order.rejected"
	TypeOrderCompleted = "order.completed"
	TypeOrderCancelled = "order.cancelled"
	TypeOrderExpired   = "order.expired"
)

// OrderEvent событие изменения заказа для внешних потребителей (уведомления, кошелёк, рейтинги).
type OrderEvent struct {
	Type               string    `json:"type"`
	OrderID            string    `json:"order_id"`
	BuyerID            string    `json:"buyer_id"`
	SellerID           string    `json:"seller_id"`
	ProductID          string    `json:"product_id"`
	Status             string    `json:"status"`
	TotalPrice         string    `json:"total_price"`
	CancellationCharge string    `json:"cancellation_charge,omitempty"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// Publisher публикует события заказов.
type Publisher interface {
	PublishOrder(ctx context.Context, event OrderEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher пишет события в топик Kafka с идентификатором заказа в качестве ключа.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher создаёт асинхронного писателя; ошибки доставки пишутся в лог.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("failed to publish order events", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}

	return &KafkaPublisher{writer: w, topic: topic}
}

// PublishOrder сериализует событие в JSON и отправляет его.
func (p *KafkaPublisher) PublishOrder(ctx context.Context, event OrderEvent) error {
	v, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.OrderID),
		Value: v,
		Time:  event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("write order event: %w", err)
	}
	return nil
}

// Close дожидается отправки буферизованных сообщений.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher отбрасывает события. Используется, если брокеры не настроены.
type NopPublisher struct{}

func (NopPublisher) PublishOrder(context.Context, OrderEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
