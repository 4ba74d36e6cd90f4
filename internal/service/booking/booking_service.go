package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/apptbooking/internal/domain"
	"github.com/Domenick1991/apptbooking/internal/kafka"
	"github.com/Domenick1991/apptbooking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, input CancelBookingInput) (*domain.Booking, error)
	GetBookingsForCustomer(ctx context.Context, customerID, fromTime string) ([]domain.Booking, error)
	GetBookingsInRange(ctx context.Context, fromTime, toTime string) ([]domain.Booking, error)
}

type Cache interface {
	InvalidateSlots(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// BookingService coordinates the slot+booking state machine. All safety
// comes from the repository's conditional transaction; the service never
// holds a lock of its own.
type BookingService struct {
	bookings     repository.BookingRepository
	cache        Cache
	producer     Producer
	changesTopic string
	logger       *zap.Logger
	now          func() time.Time
	newID        func() string
}

type AppointmentInput struct {
	Category        string `json:"category"`
	DurationMinutes int    `json:"duration_minutes"`
}

type CreateBookingInput struct {
	SlotRef     domain.SlotRef         `json:"slot_ref"`
	Customer    domain.CustomerSummary `json:"customer"`
	Provider    domain.ProviderSummary `json:"provider"`
	Appointment AppointmentInput       `json:"appointment"`
}

// CancelBookingInput carries the client's last-known snapshot of the
// appointment alongside the booking to cancel. The snapshot is checked for
// self-consistency before any write; a stale client is not trusted outright.
type CancelBookingInput struct {
	BookingKey string                    `json:"booking_key"`
	Snapshot   domain.AppointmentDetails `json:"appointment_snapshot"`
}

type BookingServiceOption func(*BookingService)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

// WithIDGenerator overrides booking id generation, for deterministic tests.
func WithIDGenerator(newID func() string) BookingServiceOption {
	return func(s *BookingService) {
		s.newID = newID
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	cache Cache,
	producer Producer,
	changesTopic string,
	logger *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		cache:        cache,
		producer:     producer,
		changesTopic: changesTopic,
		logger:       logger,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	timeKey, err := domain.NormalizeTimeKey(input.SlotRef.TimeKey)
	if err != nil {
		return nil, err
	}
	input.SlotRef.TimeKey = timeKey

	now := s.now().UTC()
	booking := &domain.Booking{
		BookingKey:      domain.BookingKeyPrefix + s.newID(),
		TimeKey:         timeKey,
		Status:          domain.BookingStatusBooked,
		SlotRef:         input.SlotRef,
		Customer:        input.Customer,
		Provider:        input.Provider,
		Category:        input.Appointment.Category,
		DurationMinutes: input.Appointment.DurationMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	transition, err := s.bookings.CreateBooked(ctx, booking)
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, transition, kafka.ChangeKindInsert)
	return transition.Booking, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, input CancelBookingInput) (*domain.Booking, error) {
	if err := validateCancel(input); err != nil {
		return nil, err
	}
	snapshotTime, err := domain.NormalizeTimeKey(input.Snapshot.TimeKey)
	if err != nil {
		return nil, err
	}
	input.Snapshot.TimeKey = snapshotTime

	current, err := s.bookings.GetBooking(ctx, input.BookingKey)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled {
		return current, nil
	}
	if input.Snapshot.TimeKey != current.TimeKey {
		return nil, fmt.Errorf("%w: snapshot time %q does not match booking time %q",
			domain.ErrValidation, input.Snapshot.TimeKey, current.TimeKey)
	}

	transition, err := s.bookings.Cancel(ctx, input.BookingKey, input.Snapshot, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, transition, kafka.ChangeKindModify)
	return transition.Booking, nil
}

func (s *BookingService) GetBookingsForCustomer(ctx context.Context, customerID, fromTime string) ([]domain.Booking, error) {
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrValidation)
	}
	fromKey, err := domain.NormalizeTimeKey(fromTime)
	if err != nil {
		return nil, fmt.Errorf("%w: from time must be RFC3339", domain.ErrValidation)
	}
	return s.bookings.QueryBookingsByCustomer(ctx, customerID, fromKey)
}

// GetBookingsInRange lists active bookings in [fromTime, toTime), feeding
// reminder digest generation.
func (s *BookingService) GetBookingsInRange(ctx context.Context, fromTime, toTime string) ([]domain.Booking, error) {
	fromKey, err := domain.NormalizeTimeKey(fromTime)
	if err != nil {
		return nil, fmt.Errorf("%w: from time must be RFC3339", domain.ErrValidation)
	}
	toKey, err := domain.NormalizeTimeKey(toTime)
	if err != nil {
		return nil, fmt.Errorf("%w: to time must be RFC3339", domain.ErrValidation)
	}
	if toKey <= fromKey {
		return nil, fmt.Errorf("%w: to time must be after from time", domain.ErrValidation)
	}
	return s.bookings.QueryBookingsByTimeRange(ctx, fromKey, toKey)
}

// afterCommit runs the post-transaction side effects: listing cache
// invalidation and change-event publication. Neither may fail the already
// committed booking transaction, so errors are logged and swallowed.
func (s *BookingService) afterCommit(ctx context.Context, tr *domain.BookingTransition, bookingKind string) {
	if s.cache != nil {
		if err := s.cache.InvalidateSlots(ctx); err != nil {
			s.logger.Warn("failed to invalidate slot listings", zap.Error(err))
		}
	}
	s.publishBookingChange(ctx, tr.Booking, bookingKind)
	s.publishSlotChange(ctx, tr.Slot)
}

func (s *BookingService) publishBookingChange(ctx context.Context, b *domain.Booking, kind string) {
	if s.producer == nil || s.changesTopic == "" {
		return
	}
	event := kafka.ChangeEvent{
		EventID:    s.newID(),
		EntityType: kafka.EntityTypeBooking,
		ChangeKind: kind,
		NewImage: kafka.RecordImage{
			PK:                b.BookingKey,
			SK:                b.TimeKey,
			Status:            string(b.Status),
			Category:          b.Category,
			DurationMinutes:   b.DurationMinutes,
			CustomerFirstName: b.Customer.FirstName,
			CustomerLastName:  b.Customer.LastName,
			CustomerEmail:     b.Customer.Email,
			ProviderFirstName: b.Provider.FirstName,
			ProviderLastName:  b.Provider.LastName,
		},
		EmittedAt: s.now().UTC(),
	}
	if err := s.producer.Publish(ctx, s.changesTopic, b.BookingKey, event); err != nil {
		s.logger.Warn("failed to publish booking change event",
			zap.String("booking_key", b.BookingKey), zap.Error(err))
	}
}

func (s *BookingService) publishSlotChange(ctx context.Context, slot *domain.Slot) {
	if s.producer == nil || s.changesTopic == "" || slot == nil {
		return
	}
	event := kafka.ChangeEvent{
		EventID:    s.newID(),
		EntityType: kafka.EntityTypeSlot,
		ChangeKind: kafka.ChangeKindModify,
		NewImage: kafka.RecordImage{
			PK:                slot.SubjectKey,
			SK:                slot.TimeKey,
			Status:            string(slot.Status),
			Category:          slot.Category,
			DurationMinutes:   slot.DurationMinutes,
			ProviderFirstName: slot.Provider.FirstName,
			ProviderLastName:  slot.Provider.LastName,
		},
		EmittedAt: s.now().UTC(),
	}
	if err := s.producer.Publish(ctx, s.changesTopic, slot.SubjectKey+"/"+slot.TimeKey, event); err != nil {
		s.logger.Warn("failed to publish slot change event",
			zap.String("time_key", slot.TimeKey), zap.Error(err))
	}
}

func validateCreate(input CreateBookingInput) error {
	if input.SlotRef.SubjectKey == "" || input.SlotRef.TimeKey == "" {
		return fmt.Errorf("%w: slot ref is required", domain.ErrValidation)
	}
	if _, err := time.Parse(time.RFC3339, input.SlotRef.TimeKey); err != nil {
		return fmt.Errorf("%w: slot time key must be RFC3339", domain.ErrValidation)
	}
	if input.Customer.ID == "" {
		return fmt.Errorf("%w: customer id is required", domain.ErrValidation)
	}
	if input.Customer.Email == "" {
		return fmt.Errorf("%w: customer email is required", domain.ErrValidation)
	}
	if input.Appointment.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", domain.ErrValidation)
	}
	if input.Appointment.Category == "" {
		return fmt.Errorf("%w: category is required", domain.ErrValidation)
	}
	return nil
}

func validateCancel(input CancelBookingInput) error {
	if input.BookingKey == "" {
		return fmt.Errorf("%w: booking key is required", domain.ErrValidation)
	}
	if input.Snapshot.TimeKey == "" {
		return fmt.Errorf("%w: appointment snapshot time is required", domain.ErrValidation)
	}
	if _, err := time.Parse(time.RFC3339, input.Snapshot.TimeKey); err != nil {
		return fmt.Errorf("%w: snapshot time must be RFC3339", domain.ErrValidation)
	}
	if input.Snapshot.DurationMinutes <= 0 {
		return fmt.Errorf("%w: snapshot duration must be positive", domain.ErrValidation)
	}
	if input.Snapshot.Category == "" {
		return fmt.Errorf("%w: snapshot category is required", domain.ErrValidation)
	}
	return nil
}

var _ BookingUseCase = (*BookingService)(nil)
