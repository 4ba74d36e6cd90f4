package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Consumer reads the record change stream and hands decoded events to a
// handler. Decoding lives here so consumers downstream only ever see typed
// ChangeEvent values, never raw message bytes.
type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		logger: logger,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume loops until the context is cancelled or the handler fails. The
// stream is at-least-once, so handlers must tolerate redelivery; payloads
// that do not decode as change events are logged and skipped rather than
// wedging the consumer group on a poison message.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, ChangeEvent) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		event, err := decodeChangeEvent(msg.Value)
		if err != nil {
			c.logger.Warn("skipping undecodable change event",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			continue
		}

		if err := handler(ctx, event); err != nil {
			return err
		}
	}
}

func decodeChangeEvent(data []byte) (ChangeEvent, error) {
	var event ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return ChangeEvent{}, err
	}
	return event, nil
}
