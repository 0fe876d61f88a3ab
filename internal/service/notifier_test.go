package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/entity"
)

type capturedWriter struct {
	msgs []kafka.Message
}

func (w *capturedWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func TestKafkaNotifierKeysAndPayload(t *testing.T) {
	w := &capturedWriter{}
	n := &KafkaNotifier{writer: w}
	order := &entity.Order{ID: 12, OrderNumber: "ORD-1", Status: entity.OrderStatusShipped}

	require.NoError(t, n.OrderCreated(context.Background(), order))
	require.NoError(t, n.OrderStatusChanged(context.Background(), order, entity.OrderStatusProcessing))
	require.NoError(t, n.OrderShipped(context.Background(), order, "1Z999"))
	require.Len(t, w.msgs, 3)

	for i, want := range []string{EventOrderCreated, EventOrderStatusChanged, EventOrderShipped} {
		assert.Equal(t, "order-12", string(w.msgs[i].Key))
		require.Len(t, w.msgs[i].Headers, 1)
		assert.Equal(t, want, string(w.msgs[i].Headers[0].Value))
	}

	var event OrderEvent
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &event))
	assert.Equal(t, EventOrderStatusChanged, event.Type)
	assert.Equal(t, entity.OrderStatusProcessing, event.PreviousStatus)
	assert.Equal(t, "ORD-1", event.Order.OrderNumber)

	require.NoError(t, json.Unmarshal(w.msgs[2].Value, &event))
	assert.Equal(t, "1Z999", event.TrackingNumber)
}
