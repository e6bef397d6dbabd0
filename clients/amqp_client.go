package clients

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AmqpClient defines the interface for all AMQP operations
type AmqpClient interface {
	Publish(ctx context.Context, message []byte, queueName string) error
	DeclareQueue(queueName string) error
	SetupConsumer(queueName string, handler func(amqp.Delivery)) error
	Close() error
}

// RealAmqpClient implements AmqpClient with real AMQP operations
type RealAmqpClient struct {
	conn *amqp.Connection
}

// NewAmqpClient creates a new real AMQP client
func NewAmqpClient(conn *amqp.Connection) AmqpClient {
	return &RealAmqpClient{conn: conn}
}

// Dial connects to the broker at url
func Dial(url string) (AmqpClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return NewAmqpClient(conn), nil
}

// Publish publishes a persistent JSON message to a specified queue
func (c *RealAmqpClient) Publish(ctx context.Context, message []byte, queueName string) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.PublishWithContext(ctx,
		"",        // exchange
		queueName, // routing key (queue name)
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         message,
		},
	)
}

// DeclareQueue makes sure a durable queue exists
func (c *RealAmqpClient) DeclareQueue(queueName string) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	return err
}

// SetupConsumer sets up a consumer on a specified queue. Deliveries are
// not auto-acked; the handler must Ack or Nack each one.
func (c *RealAmqpClient) SetupConsumer(queueName string, handler func(amqp.Delivery)) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return err
	}

	go func() {
		for d := range msgs {
			handler(d)
		}
	}()

	return nil
}

func (c *RealAmqpClient) Close() error {
	return c.conn.Close()
}

// NoopAmqpClient drops every message. It stands in when no broker is configured.
type NoopAmqpClient struct{}

func (NoopAmqpClient) Publish(context.Context, []byte, string) error { return nil }

func (NoopAmqpClient) DeclareQueue(string) error { return nil }

func (NoopAmqpClient) SetupConsumer(string, func(amqp.Delivery)) error { return nil }

func (NoopAmqpClient) Close() error { return nil }
