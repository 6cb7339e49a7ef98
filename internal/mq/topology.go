package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangeInteractions Exchange = "uvd.interactions"
	ExchangeRequests     Exchange = "uvd.requests"
	ExchangeDLQ          Exchange = "uvd.dlq"
)

// Queues.
const (
	QueueInteractionActions Queue = "interactions.actions"
	QueueInteractionResults Queue = "interactions.results"
	QueueRequestsAudit      Queue = "requests.audit"
	QueueDLQInteractions    Queue = "dlq.interactions"
)

// Routing keys.
const (
	RoutingKeyAction   RoutingKey = "action"
	RoutingKeyResult   RoutingKey = "result"
	RoutingKeyRequests RoutingKey = "request.#"
	RoutingKeyDLQ      RoutingKey = "interactions"
)

// SetupTopology объявляет exchanges, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeInteractions, amqp.ExchangeDirect},
		{ExchangeRequests, amqp.ExchangeTopic},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	// Неразобранные нажатия уходят в DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQ),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueInteractionActions, dlqArgs},
		{QueueInteractionResults, nil},
		{QueueRequestsAudit, nil},
		{QueueDLQInteractions, nil},
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueInteractionActions, RoutingKeyAction, ExchangeInteractions},
		{QueueInteractionResults, RoutingKeyResult, ExchangeInteractions},
		{QueueRequestsAudit, RoutingKeyRequests, ExchangeRequests},
		{QueueDLQInteractions, RoutingKeyDLQ, ExchangeDLQ},
	}

	for _, b := range bindings {
		if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  UVD RabbitMQ Topology:

    uvd.interactions (direct)
    ├── interactions.actions [routing: action]
    │       Consumer: uvd-coordinator
    │       DLQ: dlq.interactions
    └── interactions.results [routing: result]
            Consumer: presentation layer

    uvd.requests (topic)
    └── requests.audit [routing: request.#]
            Consumer: audit log

    uvd.dlq (direct)
    └── dlq.interactions [routing: interactions]
            Manual processing
  `
}
