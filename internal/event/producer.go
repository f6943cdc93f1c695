// Package event publishes cart domain events to Kafka. Publishing is
// best-effort: the cart operation has already committed by the time an
// event goes out, so failures are logged and never bubble up.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/teguh2522009-hub/Benihcandi/internal/domain"
)

// Kafka topics for cart domain events.
const (
	TopicCartUpdated = "benihcandi.cart.updated"
	TopicCartCleared = "benihcandi.cart.cleared"
)

const source = "benihcandi-cart"

// Envelope is the wire format shared by all cart events.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	Items []domain.LineItem `json:"items"`
	Total int64             `json:"total"`
	Count int               `json:"count"`
}

// Publisher is the event boundary the cart service depends on.
type Publisher interface {
	CartUpdated(ctx context.Context, sessionID string, cart *domain.Cart) error
	CartCleared(ctx context.Context, sessionID string) error
}

// Producer publishes cart events through a kafka-go writer.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a Kafka producer for cart events.
func NewProducer(brokers []string, logger *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: w, logger: logger}
}

// CartUpdated publishes the post-mutation cart snapshot.
func (p *Producer) CartUpdated(ctx context.Context, sessionID string, cart *domain.Cart) error {
	totals := cart.Totals()
	return p.publish(ctx, TopicCartUpdated, sessionID, CartUpdatedData{
		Items: cart.Items,
		Total: totals.Total,
		Count: totals.Count,
	})
}

// CartCleared publishes a cart.cleared event.
func (p *Producer) CartCleared(ctx context.Context, sessionID string) error {
	return p.publish(ctx, TopicCartCleared, sessionID, struct{}{})
}

func (p *Producer) publish(ctx context.Context, topic, sessionID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	env := Envelope{
		EventID:   uuid.New().String(),
		EventType: topic,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Data:      payload,
	}

	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(sessionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(topic)},
			{Key: "source", Value: []byte(source)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event to %s: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("session_id", sessionID),
	)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Nop is a Publisher that discards events. Used when Kafka is not
// configured (local development against the in-memory store).
type Nop struct{}

func (Nop) CartUpdated(context.Context, string, *domain.Cart) error { return nil }
func (Nop) CartCleared(context.Context, string) error               { return nil }
