package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/orderdesk/internal/domain"
	"github.com/nikolayk812/orderdesk/internal/port"
	"github.com/streadway/amqp"
)

var (
	_ port.EventPublisher = (*AMQPPublisher)(nil)
	_ port.EventPublisher = (*LogPublisher)(nil)
)

// eventMessage is the wire form of domain.Event.
type eventMessage struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    string         `json:"actor_id"`
	OrderID    string         `json:"order_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func toMessage(e domain.Event) eventMessage {
	msg := eventMessage{
		ID:         e.ID,
		Name:       string(e.Name),
		OccurredAt: e.OccurredAt.UTC(),
		ActorID:    e.ActorID,
		Payload:    e.Payload,
	}
	if e.OrderID != uuid.Nil {
		msg.OrderID = e.OrderID.String()
	}
	return msg
}

// amqpChannel is the subset of *amqp.Channel the publisher uses.
type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends events to a topic exchange, routed by event name.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string

	// amqp channels are not safe for concurrent publishing
	mu sync.Mutex
}

func NewAMQPPublisher(amqpURL, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("amqp.Dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("conn.Channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("channel.ExchangeDeclare: %w", err)
	}

	p := newAMQPPublisher(channel, exchange)
	p.conn = conn

	return p, nil
}

func newAMQPPublisher(channel amqpChannel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{channel: channel, exchange: exchange}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(toMessage(event))
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(
		p.exchange,
		string(event.Name),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.OccurredAt.UTC(),
			Type:         string(event.Name),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("channel.Publish: %w", err)
	}

	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.channel != nil {
		if cerr := p.channel.Close(); cerr != nil {
			err = fmt.Errorf("channel.Close: %w", cerr)
		}
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("conn.Close: %w", cerr)
		}
	}

	return err
}

// LogPublisher writes events to a structured logger. It is the default
// collector when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	msg := toMessage(event)

	p.logger.InfoContext(ctx, "analytics event",
		slog.String("event_id", msg.ID),
		slog.String("event", msg.Name),
		slog.String("actor_id", msg.ActorID),
		slog.String("order_id", msg.OrderID),
		slog.Time("occurred_at", msg.OccurredAt),
		slog.Any("payload", msg.Payload))

	return nil
}
