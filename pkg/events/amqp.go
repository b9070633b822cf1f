package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends order events to a durable queue on the default exchange.
type AMQPPublisher struct {
	queue       string
	openChannel func() (amqpChannel, error)
	closeConn   func() error

	mu sync.Mutex
}

// NewAMQPPublisher dials the broker and declares the orders queue.
func NewAMQPPublisher(cfg config.AMQPConfig) (*AMQPPublisher, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("amqp url is required")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.OrdersQueue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", cfg.OrdersQueue, err)
	}

	return &AMQPPublisher{
		queue: cfg.OrdersQueue,
		openChannel: func() (amqpChannel, error) {
			ch, err := conn.Channel()
			if err != nil {
				return nil, err
			}
			return ch, nil
		},
		closeConn: conn.Close,
	}, nil
}

// PublishOrderPlaced publishes one persistent JSON message per order.
func (p *AMQPPublisher) PublishOrderPlaced(ctx context.Context, event OrderPlaced) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.openChannel()
	if err != nil {
		return fmt.Errorf("open amqp channel: %w", err)
	}
	defer ch.Close()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    fmt.Sprintf("order-%d", event.OrderID),
		Timestamp:    time.Now().UTC(),
		Type:         "order.placed",
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish order %d: %w", event.OrderID, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p == nil || p.closeConn == nil {
		return nil
	}
	return p.closeConn()
}
