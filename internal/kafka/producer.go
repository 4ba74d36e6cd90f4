package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ChangeKind mirrors the record store's change stream semantics.
const (
	ChangeKindInsert = "insert"
	ChangeKindModify = "modify"
	ChangeKindRemove = "remove"
)

// Entity types carried on the change stream. One stream carries both kinds;
// consumers must filter.
const (
	EntityTypeSlot    = "slot"
	EntityTypeBooking = "booking"
)

// RecordImage is the post-write image published with every change event.
type RecordImage struct {
	PK                string `json:"pk"`
	SK                string `json:"sk"`
	Status            string `json:"status"`
	Category          string `json:"category"`
	DurationMinutes   int    `json:"duration_minutes"`
	CustomerFirstName string `json:"customer_first_name,omitempty"`
	CustomerLastName  string `json:"customer_last_name,omitempty"`
	CustomerEmail     string `json:"customer_email,omitempty"`
	ProviderFirstName string `json:"provider_first_name,omitempty"`
	ProviderLastName  string `json:"provider_last_name,omitempty"`
}

type ChangeEvent struct {
	EventID    string      `json:"event_id"`
	EntityType string      `json:"entity_type"`
	ChangeKind string      `json:"change_kind"`
	NewImage   RecordImage `json:"new_image"`
	EmittedAt  time.Time   `json:"emitted_at"`
}

type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewProducer(brokers []string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &Producer{writer: writer, logger: logger}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (p *Producer) PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		err := p.Publish(ctx, topic, key, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		p.logger.Warn("publish attempt failed",
			zap.String("topic", topic), zap.Int("attempt", i+1), zap.Error(err))

		if i < maxRetries-1 {
			select {
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
