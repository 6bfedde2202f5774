package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
)

const (
	// OrderEventsQueue receives every order lifecycle event.
	OrderEventsQueue = "order_events"
	// OrderCreatedType is the message type of a placed order.
	OrderCreatedType = "order.created"

	consumerTag = "shopwave-order-events"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex // guards channel publishes
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// OrderCreated is the body of an order.created message.
type OrderCreated struct {
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	TotalAmount float64   `json:"totalAmount"`
	ItemCount   int       `json:"itemCount"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewClient connects to RabbitMQ, opens a channel and declares the order events queue.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareOrderEvents(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Printf("RabbitMQ client connected and %s declared.", OrderEventsQueue)

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareOrderEvents(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		OrderEventsQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", OrderEventsQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish marshals payload to JSON and sends it to the order events queue with the
// given message type.
func (c *Client) Publish(ctx context.Context, messageType string, payload interface{}) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", messageType, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		"",               // default exchange
		OrderEventsQueue, // routing key: the queue name
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         messageType,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	log.Printf(" [x] Sent %s event: %s", messageType, body)
	return nil
}

// PublishOrderCreated publishes an order.created event.
func (c *Client) PublishOrderCreated(ctx context.Context, evt OrderCreated) error {
	return c.Publish(ctx, OrderCreatedType, evt)
}

// ConsumeOrderEvents delivers messages from the order events queue to handler until
// ctx is cancelled. A nil handler error acks the message; otherwise it is nacked
// without requeue so a poison message cannot loop.
func (c *Client) ConsumeOrderEvents(ctx context.Context, handler func(msg amqp.Delivery) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}
	if err := declareOrderEvents(c.channel); err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		OrderEventsQueue,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Printf(" [*] Waiting for order events on %s", OrderEventsQueue)

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.channel.Cancel(consumerTag, false); err != nil {
			log.Printf("Error cancelling order events consumer: %v", err)
		}
	}()

	go func() {
		for msg := range msgs {
			if err := handler(msg); err != nil {
				log.Printf("Error processing message %d: %v", msg.DeliveryTag, err)
				if nackErr := msg.Nack(false, false); nackErr != nil {
					log.Printf("Error nacking message %d: %v", msg.DeliveryTag, nackErr)
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				log.Printf("Error acking message %d: %v", msg.DeliveryTag, ackErr)
			}
		}
		log.Println("Order events consumer stopped")
	}()

	return nil
}

// DecodeOrderCreated parses the body of an order.created delivery.
func DecodeOrderCreated(msg amqp.Delivery) (OrderCreated, error) {
	var evt OrderCreated
	if msg.Type != "" && msg.Type != OrderCreatedType {
		return evt, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		return evt, fmt.Errorf("failed to decode %s: %w", OrderCreatedType, err)
	}
	if evt.OrderID == "" {
		return evt, fmt.Errorf("%s without order id", OrderCreatedType)
	}
	return evt, nil
}
