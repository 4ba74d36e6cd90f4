package dispatch

import (
	"context"
	"time"

	"github.com/Domenick1991/apptbooking/internal/kafka"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// EmailSender renders and sends the outgoing message for a booking image.
type EmailSender interface {
	SendConfirmation(ctx context.Context, image kafka.RecordImage) error
	SendCancellation(ctx context.Context, image kafka.RecordImage) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// DeadLetter is the payload published for a notification that exhausted its
// retries. It never feeds back into booking state.
type DeadLetter struct {
	Event    kafka.ChangeEvent `json:"event"`
	Attempts int               `json:"attempts"`
	LastErr  string            `json:"last_error"`
}

// Dispatcher applies the notification routing contract to the record change
// stream: only booking inserts and modifies pass, and the template is
// selected by the new image's status. The stream carries multiple entity
// types and is at-least-once, so filtering and dedup both happen here.
type Dispatcher struct {
	sender     EmailSender
	dlq        Producer
	dlqTopic   string
	maxRetries int
	seen       *lru.Cache[string, struct{}]
	logger     *zap.Logger
}

func NewDispatcher(sender EmailSender, dlq Producer, dlqTopic string, maxRetries, dedupSize int, logger *zap.Logger) (*Dispatcher, error) {
	seen, err := lru.New[string, struct{}](dedupSize)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		sender:     sender,
		dlq:        dlq,
		dlqTopic:   dlqTopic,
		maxRetries: maxRetries,
		seen:       seen,
		logger:     logger,
	}, nil
}

// Handle processes one change event. It never returns an error for delivery
// failures: a failed send is retried, then dead-lettered, and the consumer
// moves on either way.
func (d *Dispatcher) Handle(ctx context.Context, event kafka.ChangeEvent) error {
	if !d.routes(event) {
		return nil
	}

	if event.EventID != "" {
		if _, dup := d.seen.Get(event.EventID); dup {
			d.logger.Debug("skipping redelivered change event", zap.String("event_id", event.EventID))
			return nil
		}
	}

	var send func(context.Context, kafka.RecordImage) error
	switch event.NewImage.Status {
	case "booked":
		send = d.sender.SendConfirmation
	case "cancelled":
		send = d.sender.SendCancellation
	default:
		d.logger.Warn("booking change with unroutable status",
			zap.String("status", event.NewImage.Status), zap.String("key", event.NewImage.PK))
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		if lastErr = send(ctx, event.NewImage); lastErr == nil {
			if event.EventID != "" {
				d.seen.Add(event.EventID, struct{}{})
			}
			return nil
		}
		d.logger.Warn("notification send failed",
			zap.String("key", event.NewImage.PK), zap.Int("attempt", attempt), zap.Error(lastErr))

		if attempt < d.maxRetries {
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	d.deadLetter(ctx, event, lastErr)
	if event.EventID != "" {
		d.seen.Add(event.EventID, struct{}{})
	}
	return nil
}

// routes applies the contract: entity type booking, change kind insert or
// modify. Slot events and removals are filtered out before any send.
func (d *Dispatcher) routes(event kafka.ChangeEvent) bool {
	if event.EntityType != kafka.EntityTypeBooking {
		return false
	}
	return event.ChangeKind == kafka.ChangeKindInsert || event.ChangeKind == kafka.ChangeKindModify
}

func (d *Dispatcher) deadLetter(ctx context.Context, event kafka.ChangeEvent, cause error) {
	if d.dlq == nil || d.dlqTopic == "" {
		d.logger.Error("dropping undeliverable notification, no dead-letter topic",
			zap.String("key", event.NewImage.PK), zap.Error(cause))
		return
	}
	payload := DeadLetter{Event: event, Attempts: d.maxRetries, LastErr: cause.Error()}
	if err := d.dlq.Publish(ctx, d.dlqTopic, event.NewImage.PK, payload); err != nil {
		d.logger.Error("failed to publish dead letter",
			zap.String("key", event.NewImage.PK), zap.Error(err))
	}
}
