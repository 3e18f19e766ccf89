package notification

import (
	"context"
	"encoding/json"
	"time"

	"lokapasar-be/internal/inventory"
	"lokapasar-be/internal/logger"
	"lokapasar-be/internal/order"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TopicOrderEvents = "order-events"
	TopicStockAlerts = "stock-alerts"
)

// OrderEvent is published on every lifecycle transition.
type OrderEvent struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      uint      `json:"user_id"`
	Status      string    `json:"status"`
	Previous    string    `json:"previous"`
	Total       string    `json:"total"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// StockAlert is published when on-hand stock falls to or below the reorder
// point.
type StockAlert struct {
	ProductID    string    `json:"product_id"`
	LocationID   string    `json:"location_id"`
	Quantity     int       `json:"quantity"`
	Available    int       `json:"available"`
	ReorderPoint int       `json:"reorder_point"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher pushes fire-and-forget events to kafka. Write failures are
// logged and swallowed; a broken broker must never fail an order
// transition or a stock adjustment.
type Publisher struct {
	orders messageWriter
	stock  messageWriter
}

var _ order.Notifier = (*Publisher)(nil)
var _ inventory.Alerter = (*Publisher)(nil)

func NewPublisher(brokers []string) *Publisher {
	writer := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		}
	}
	return &Publisher{
		orders: writer(TopicOrderEvents),
		stock:  writer(TopicStockAlerts),
	}
}

func (p *Publisher) OrderStatusChanged(ctx context.Context, o *order.Order, previous order.Status) {
	p.publish(ctx, p.orders, o.ID, OrderEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      string(o.Status),
		Previous:    string(previous),
		Total:       o.Total.String(),
		OccurredAt:  time.Now().UTC(),
	})
}

func (p *Publisher) LowStock(ctx context.Context, inv *inventory.ProductInventory) {
	p.publish(ctx, p.stock, inv.ProductID, StockAlert{
		ProductID:    inv.ProductID,
		LocationID:   inv.LocationID,
		Quantity:     inv.Quantity,
		Available:    inv.AvailableQuantity,
		ReorderPoint: inv.ReorderPoint,
		OccurredAt:   time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, w messageWriter, key string, payload any) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "notification"))

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error("failed to marshal event", zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		log.Error("failed to publish event",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (p *Publisher) Close() error {
	var firstErr error
	for _, w := range []messageWriter{p.orders, p.stock} {
		if closer, ok := w.(*kafka.Writer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
