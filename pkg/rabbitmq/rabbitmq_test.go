package rabbitmq

import (
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOrderCreated(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		msg := amqp.Delivery{
			Type: OrderCreatedType,
			Body: []byte(`{"orderId":"o-1","userId":"u-1","totalAmount":42.5,"itemCount":3}`),
		}

		evt, err := DecodeOrderCreated(msg)

		require.NoError(t, err)
		assert.Equal(t, "o-1", evt.OrderID)
		assert.Equal(t, "u-1", evt.UserID)
		assert.Equal(t, 42.5, evt.TotalAmount)
		assert.Equal(t, 3, evt.ItemCount)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := DecodeOrderCreated(amqp.Delivery{Type: "order.shipped", Body: []byte(`{"orderId":"o-1"}`)})
		assert.Error(t, err)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := DecodeOrderCreated(amqp.Delivery{Body: []byte(`not json`)})
		assert.Error(t, err)
	})

	t.Run("missing order id", func(t *testing.T) {
		_, err := DecodeOrderCreated(amqp.Delivery{Body: []byte(`{"userId":"u-1"}`)})
		assert.Error(t, err)
	})
}

func TestPublish_NoChannel(t *testing.T) {
	c := &Client{}
	err := c.PublishOrderCreated(t.Context(), OrderCreated{OrderID: "o-1"})
	assert.Error(t, err)
}
