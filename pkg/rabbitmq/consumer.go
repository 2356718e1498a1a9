/**
 * @description
 * AMQP consumer side of the payment event stream. The service subscribes one
 * durable queue to the payment events exchange and dispatches deliveries by
 * routing key; today the only subscription is the banking-network return
 * feed, which cmd/main.go binds to the return consumer.
 *
 * Handlers return true to acknowledge a delivery. Returning false re-queues
 * it, so handlers must only do that for transient failures; poison messages
 * are acknowledged to drop.
 *
 * @dependencies
 * - github.com/rabbitmq/amqp091-go: The AMQP 0-9-1 client.
 */

package rabbitmq

import (
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler processes one delivery body. The return value decides the
// acknowledgement: true acks, false re-queues.
type MessageHandler func(body []byte) bool

// Consumer subscribes a queue to the payment events exchange and feeds
// deliveries to per-routing-key handlers.
type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewConsumer dials the broker and opens the consuming channel.
func NewConsumer(amqpURL string) (*Consumer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(cleanURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open consumer channel: %w", err)
	}

	return &Consumer{conn: conn, ch: ch}, nil
}

// ConsumeWithBindings declares the topic exchange and a durable queue, binds
// the queue once per routing key, and starts the delivery loop in the
// background. Unmatched routing keys are acknowledged to drop so the queue
// never wedges on a stray binding.
func (c *Consumer) ConsumeWithBindings(exchange, queueName string, bindings map[string]MessageHandler) error {
	if len(bindings) == 0 {
		return fmt.Errorf("no bindings provided for queue %s", queueName)
	}

	if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	q, err := c.ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	handlers := make(map[string]MessageHandler, len(bindings))
	for routingKey, handler := range bindings {
		if handler == nil {
			continue
		}
		if err := c.ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s to %s: %w", routingKey, q.Name, err)
		}
		handlers[routingKey] = handler
	}

	msgs, err := c.ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming from %s: %w", q.Name, err)
	}
	log.Printf("level=info component=amqp_consumer msg=\"consuming\" queue=%s exchange=%s bindings=%d", q.Name, exchange, len(handlers))

	go c.dispatch(msgs, handlers)
	return nil
}

// dispatch runs until the channel closes, routing each delivery to its
// handler and acknowledging per the handler's verdict.
func (c *Consumer) dispatch(msgs <-chan amqp.Delivery, handlers map[string]MessageHandler) {
	for d := range msgs {
		handler, ok := handlers[d.RoutingKey]
		if !ok {
			log.Printf("WARN: level=warn component=amqp_consumer msg=\"no handler for routing key, dropping\" routing_key=%s", d.RoutingKey)
			d.Ack(false)
			continue
		}
		if handler(d.Body) {
			d.Ack(false)
		} else {
			log.Printf("WARN: level=warn component=amqp_consumer msg=\"handler reported transient failure, re-queuing\" routing_key=%s", d.RoutingKey)
			d.Nack(false, true)
		}
	}
	log.Printf("level=info component=amqp_consumer msg=\"delivery channel closed\"")
}

// Close tears down the channel and connection.
func (c *Consumer) Close() {
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
