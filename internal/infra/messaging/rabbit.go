package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"bookstore/internal/usecase"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ルーティングキー
const RKOrderCreated = "order.created"

// RabbitPublisherはtopic exchangeにJSONで送る。
// amqp.Channelはgoroutine安全ではないのでmuで守る。
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (r *RabbitPublisher) Close() {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
}

func (r *RabbitPublisher) PublishOrderCreated(ctx context.Context, ev usecase.OrderCreatedEvent) error {
	return r.PublishJSON(ctx, RKOrderCreated, ev)
}

func (r *RabbitPublisher) PublishJSON(ctx context.Context, routingKey string, v any) error {
	msg, err := newJSONPublishing(v, time.Now())
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch.PublishWithContext(ctx, r.exchange, routingKey, false, false, msg)
}

// MessageIdは受信側の重複排除用
func newJSONPublishing(v any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Body:         body,
	}, nil
}

// RABBIT_URL未設定のときに使う
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderCreated(context.Context, usecase.OrderCreatedEvent) error {
	return nil
}
