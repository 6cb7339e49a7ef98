package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger.With("component", "mq.publisher"),
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishJSON публикует произвольный payload.
func (p *Publisher) PublishJSON(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, exchange, routingKey, msg)
}

// PublishEvent публикует событие о заявке. Routing key совпадает с типом
// события (request.approved и т.п.).
// Потребитель: аудит.
func (p *Publisher) PublishEvent(ctx context.Context, event domain.Event) error {
	return p.PublishJSON(ctx, ExchangeRequests, RoutingKey(event.Type), MessageType(event.Type), event)
}

// PublishAction публикует нажатие кнопки.
// Потребитель: координатор.
func (p *Publisher) PublishAction(ctx context.Context, action InteractionAction) error {
	return p.PublishJSON(ctx, ExchangeInteractions, RoutingKeyAction, MessageTypeInteractionAction, action)
}

// PublishResult публикует исход нажатия.
// Потребитель: слой представления.
func (p *Publisher) PublishResult(ctx context.Context, result InteractionResult) error {
	return p.PublishJSON(ctx, ExchangeInteractions, RoutingKeyResult, MessageTypeInteractionResult, result)
}
