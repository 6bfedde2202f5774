package services

import (
	"context"
	"log"

	"github.com/streadway/amqp"

	"shopwave/internal/metrics"
	"shopwave/pkg/rabbitmq"
)

// OrderEventHandler returns the consumer of the order events queue. It logs each
// placed order and counts the delivery; undecodable messages are rejected.
func OrderEventHandler(m *metrics.AppMetrics) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		evt, err := rabbitmq.DecodeOrderCreated(msg)
		m.RecordOrderEvent(context.Background(), msg.RoutingKey, err)
		if err != nil {
			return err
		}
		log.Printf("Order %s placed by %s: %d item(s), total %.2f", evt.OrderID, evt.UserID, evt.ItemCount, evt.TotalAmount)
		return nil
	}
}
