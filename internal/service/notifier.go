package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"marketplace/internal/entity"
)

// Notifier tells the outside world about order lifecycle events. Calls are
// made after commit and their failures never affect the order.
type Notifier interface {
	OrderCreated(ctx context.Context, order *entity.Order) error
	OrderStatusChanged(ctx context.Context, order *entity.Order, previous entity.OrderStatus) error
	OrderShipped(ctx context.Context, order *entity.Order, trackingNumber string) error
}

// OrderEvent is the message published for every notification.
type OrderEvent struct {
	Type           string             `json:"type"`
	Order          *entity.Order      `json:"order"`
	PreviousStatus entity.OrderStatus `json:"previous_status,omitempty"`
	TrackingNumber string             `json:"tracking_number,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

const (
	EventOrderCreated       = "created"
	EventOrderStatusChanged = "status_changed"
	EventOrderShipped       = "shipped"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier publishes order events to the order topic.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(writer *kafka.Writer) *KafkaNotifier {
	return &KafkaNotifier{writer: writer}
}

func (n *KafkaNotifier) OrderCreated(ctx context.Context, order *entity.Order) error {
	return n.publish(ctx, OrderEvent{Type: EventOrderCreated, Order: order})
}

func (n *KafkaNotifier) OrderStatusChanged(ctx context.Context, order *entity.Order, previous entity.OrderStatus) error {
	return n.publish(ctx, OrderEvent{Type: EventOrderStatusChanged, Order: order, PreviousStatus: previous})
}

func (n *KafkaNotifier) OrderShipped(ctx context.Context, order *entity.Order, trackingNumber string) error {
	return n.publish(ctx, OrderEvent{Type: EventOrderShipped, Order: order, TrackingNumber: trackingNumber})
}

func (n *KafkaNotifier) publish(ctx context.Context, event OrderEvent) error {
	event.OccurredAt = time.Now().UTC()
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// Every event of one order shares the key order-<id>.
	msg := kafka.Message{
		Key:     []byte(fmt.Sprintf("order-%d", event.Order.ID)),
		Value:   payload,
		Headers: []kafka.Header{{Key: "event", Value: []byte(event.Type)}},
	}
	return n.writer.WriteMessages(ctx, msg)
}

// LogNotifier only logs events; used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) OrderCreated(_ context.Context, order *entity.Order) error {
	logger.Info().Str("order_number", order.OrderNumber).Msg("Order created")
	return nil
}

func (LogNotifier) OrderStatusChanged(_ context.Context, order *entity.Order, previous entity.OrderStatus) error {
	logger.Info().Str("order_number", order.OrderNumber).Msgf("Order status %s -> %s", previous, order.Status)
	return nil
}

func (LogNotifier) OrderShipped(_ context.Context, order *entity.Order, trackingNumber string) error {
	logger.Info().Str("order_number", order.OrderNumber).Str("tracking", trackingNumber).Msg("Order shipped")
	return nil
}
