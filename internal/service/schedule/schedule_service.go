package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/apptbooking/internal/domain"
	"github.com/Domenick1991/apptbooking/internal/kafka"
	"github.com/Domenick1991/apptbooking/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Draft status sentinels used by the administrative calendar UI. A trailing
// star marks a pending edit: new slots arrive as "available*", slots marked
// for deletion as "pending*". Anything else in a batch is left untouched.
// In-place edits are not supported; they route through delete plus recreate.
const (
	DraftStatusNew             = "available*"
	DraftStatusPendingDeletion = "pending*"
)

type ScheduleUseCase interface {
	GetAvailableSlots(ctx context.Context, from, to string) ([]domain.Slot, error)
	GetSlots(ctx context.Context, from, to string) ([]domain.Slot, error)
	GetSlotOccupancyCounts(ctx context.Context, from, to string, status domain.SlotStatus) ([]OccupancyCount, error)
	UpsertSlots(ctx context.Context, input UpsertSlotsInput) (*UpsertSlotsResult, error)
}

type Cache interface {
	GetAvailableSlots(ctx context.Context, from, to string) ([]domain.Slot, error)
	SetAvailableSlots(ctx context.Context, from, to string, slots []domain.Slot) error
	InvalidateSlots(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type SlotDraft struct {
	SubjectKey      string                 `json:"subject_key"`
	TimeKey         string                 `json:"time_key"`
	Status          string                 `json:"status"`
	DurationMinutes int                    `json:"duration_minutes"`
	Category        string                 `json:"category"`
	Provider        domain.ProviderSummary `json:"provider"`
}

type UpsertSlotsInput struct {
	Slots []SlotDraft `json:"slots"`
}

type UpsertSlotsResult struct {
	Upserted []domain.Slot    `json:"upserted"`
	Deleted  []domain.SlotRef `json:"deleted"`
}

type OccupancyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ScheduleService is the read side of the slot lifecycle plus the
// administrative bulk upsert. Listings are advisory: a slot shown as
// available may be claimed before the client books it, and the booking
// path re-validates with its conditional write.
type ScheduleService struct {
	slots        repository.SlotRepository
	cache        Cache
	producer     Producer
	changesTopic string
	// location is the reference timezone for occupancy date grouping.
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

type ScheduleServiceOption func(*ScheduleService)

func WithClock(now func() time.Time) ScheduleServiceOption {
	return func(s *ScheduleService) {
		s.now = now
	}
}

func NewScheduleService(
	slots repository.SlotRepository,
	cache Cache,
	producer Producer,
	changesTopic string,
	location *time.Location,
	logger *zap.Logger,
	opts ...ScheduleServiceOption,
) *ScheduleService {
	service := &ScheduleService{
		slots:        slots,
		cache:        cache,
		producer:     producer,
		changesTopic: changesTopic,
		location:     location,
		logger:       logger,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *ScheduleService) GetAvailableSlots(ctx context.Context, from, to string) ([]domain.Slot, error) {
	fromKey, toKey, err := s.rangeBounds(from, to)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached, err := s.cache.GetAvailableSlots(ctx, fromKey, toKey); err == nil && cached != nil {
			return cached, nil
		}
	}

	status := domain.SlotStatusAvailable
	slots, err := s.slots.QuerySlotsByTimeRange(ctx, domain.SubjectKeyAppointments, fromKey, toKey, &status)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetAvailableSlots(ctx, fromKey, toKey, slots); err != nil {
			s.logger.Warn("failed to cache slot listing", zap.Error(err))
		}
	}
	return slots, nil
}

// GetSlots is the unfiltered administrative view.
func (s *ScheduleService) GetSlots(ctx context.Context, from, to string) ([]domain.Slot, error) {
	fromKey, toKey, err := s.rangeBounds(from, to)
	if err != nil {
		return nil, err
	}
	return s.slots.QuerySlotsByTimeRange(ctx, domain.SubjectKeyAppointments, fromKey, toKey, nil)
}

// GetSlotOccupancyCounts groups matching slots by calendar date in the
// reference timezone. A slot at 02:00 UTC may count toward the previous
// local date; calendar highlighting depends on this.
func (s *ScheduleService) GetSlotOccupancyCounts(ctx context.Context, from, to string, status domain.SlotStatus) ([]OccupancyCount, error) {
	fromKey, toKey, err := s.rangeBounds(from, to)
	if err != nil {
		return nil, err
	}

	slots, err := s.slots.QuerySlotsByTimeRange(ctx, domain.SubjectKeyAppointments, fromKey, toKey, &status)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, slot := range slots {
		t, err := time.Parse(time.RFC3339, slot.TimeKey)
		if err != nil {
			s.logger.Warn("skipping slot with unparseable time key",
				zap.String("time_key", slot.TimeKey))
			continue
		}
		counts[t.In(s.location).Format("2006-01-02")]++
	}

	dates := make([]string, 0, len(counts))
	for date := range counts {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	result := make([]OccupancyCount, 0, len(dates))
	for _, date := range dates {
		result = append(result, OccupancyCount{Date: date, Count: counts[date]})
	}
	return result, nil
}

// UpsertSlots splits the draft batch into a create set and a delete set by
// sentinel status, processing each independently. An empty subset
// short-circuits its store call entirely.
func (s *ScheduleService) UpsertSlots(ctx context.Context, input UpsertSlotsInput) (*UpsertSlotsResult, error) {
	var creates []SlotDraft
	var deletes []SlotDraft
	for _, draft := range input.Slots {
		switch draft.Status {
		case DraftStatusNew:
			creates = append(creates, draft)
		case DraftStatusPendingDeletion:
			deletes = append(deletes, draft)
		}
	}

	result := &UpsertSlotsResult{
		Upserted: make([]domain.Slot, 0, len(creates)),
		Deleted:  make([]domain.SlotRef, 0, len(deletes)),
	}

	if len(creates) > 0 {
		now := s.now().UTC()
		slots := make([]domain.Slot, 0, len(creates))
		for _, draft := range creates {
			slot, err := draftToSlot(draft, now)
			if err != nil {
				return nil, err
			}
			slots = append(slots, *slot)
		}

		written, err := s.slots.CreateSlots(ctx, slots)
		if err != nil {
			return nil, err
		}
		result.Upserted = written
		for i := range written {
			s.publishSlotChange(ctx, &written[i], kafka.ChangeKindInsert)
		}
	}

	if len(deletes) > 0 {
		refs := make([]domain.SlotRef, 0, len(deletes))
		for _, draft := range deletes {
			if draft.SubjectKey == "" || draft.TimeKey == "" {
				return nil, fmt.Errorf("%w: delete draft missing slot ref", domain.ErrValidation)
			}
			timeKey, err := domain.NormalizeTimeKey(draft.TimeKey)
			if err != nil {
				return nil, err
			}
			ref := domain.SlotRef{SubjectKey: draft.SubjectKey, TimeKey: timeKey}
			// The repository's batch delete is unconditional; the booked
			// check lives here, one layer up.
			stored, err := s.slots.GetSlot(ctx, ref)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return nil, err
			}
			if stored.Status == domain.SlotStatusBooked {
				return nil, fmt.Errorf("%w: slot %s is booked and cannot be deleted", domain.ErrValidation, ref.TimeKey)
			}
			refs = append(refs, ref)
		}

		deleted, err := s.slots.DeleteSlots(ctx, refs)
		if err != nil {
			return nil, err
		}
		result.Deleted = deleted
	}

	if len(result.Upserted) > 0 || len(result.Deleted) > 0 {
		if s.cache != nil {
			if err := s.cache.InvalidateSlots(ctx); err != nil {
				s.logger.Warn("failed to invalidate slot listings", zap.Error(err))
			}
		}
	}
	return result, nil
}

func (s *ScheduleService) publishSlotChange(ctx context.Context, slot *domain.Slot, kind string) {
	if s.producer == nil || s.changesTopic == "" {
		return
	}
	event := kafka.ChangeEvent{
		EventID:    s.newID(),
		EntityType: kafka.EntityTypeSlot,
		ChangeKind: kind,
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

func draftToSlot(draft SlotDraft, now time.Time) (*domain.Slot, error) {
	if draft.SubjectKey == "" || draft.TimeKey == "" {
		return nil, fmt.Errorf("%w: slot draft missing subject or time key", domain.ErrValidation)
	}
	if strings.HasPrefix(draft.SubjectKey, domain.BookingKeyPrefix) {
		return nil, fmt.Errorf("%w: subject key %q collides with booking keyspace", domain.ErrValidation, draft.SubjectKey)
	}
	timeKey, err := domain.NormalizeTimeKey(draft.TimeKey)
	if err != nil {
		return nil, fmt.Errorf("%w: slot time key must be RFC3339", domain.ErrValidation)
	}
	if draft.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", domain.ErrValidation)
	}
	if draft.Category == "" {
		return nil, fmt.Errorf("%w: category is required", domain.ErrValidation)
	}
	if draft.Provider.ID == "" {
		return nil, fmt.Errorf("%w: provider is required", domain.ErrValidation)
	}
	return &domain.Slot{
		SubjectKey:      draft.SubjectKey,
		TimeKey:         timeKey,
		Status:          domain.SlotStatusAvailable,
		DurationMinutes: draft.DurationMinutes,
		Category:        draft.Category,
		Provider:        draft.Provider,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// rangeBounds normalizes query bounds to UTC RFC3339 time keys. Bare dates
// are interpreted at local midnight in the reference timezone.
func (s *ScheduleService) rangeBounds(from, to string) (string, string, error) {
	fromKey, err := s.parseBound(from)
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid from bound %q", domain.ErrValidation, from)
	}
	toKey, err := s.parseBound(to)
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid to bound %q", domain.ErrValidation, to)
	}
	if toKey <= fromKey {
		return "", "", fmt.Errorf("%w: to bound must be after from bound", domain.ErrValidation)
	}
	return fromKey, toKey, nil
}

func (s *ScheduleService) parseBound(value string) (string, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format(time.RFC3339), nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, s.location)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(time.RFC3339), nil
}

var _ ScheduleUseCase = (*ScheduleService)(nil)
