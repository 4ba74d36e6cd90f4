package repository

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/apptbooking/internal/domain"
)

// Both entity kinds live in one physical table, disambiguated by key prefix
// and the entity_type attribute. Every query must filter on entity_type.
const (
	entityTypeSlot    = "slot"
	entityTypeBooking = "booking"
)

const recordColumns = `pk, sk, entity_type, status, category, duration_minutes, provider_id, provider_first_name, provider_last_name, booking_ref, slot_pk, slot_sk, customer_id, customer_first_name, customer_last_name, customer_email, customer_phone, appointment_details, created_at, updated_at`

type recordRow struct {
	pk                string
	sk                string
	entityType        string
	status            string
	category          *string
	durationMinutes   *int
	providerID        *string
	providerFirstName *string
	providerLastName  *string
	bookingRef        *string
	slotPK            *string
	slotSK            *string
	customerID        *string
	customerFirstName *string
	customerLastName  *string
	customerEmail     *string
	customerPhone     *string
	details           []byte
	createdAt         time.Time
	updatedAt         time.Time
}

// scanTargets matches the order of recordColumns.
func (r *recordRow) scanTargets() []any {
	return []any{
		&r.pk, &r.sk, &r.entityType, &r.status, &r.category, &r.durationMinutes,
		&r.providerID, &r.providerFirstName, &r.providerLastName,
		&r.bookingRef, &r.slotPK, &r.slotSK,
		&r.customerID, &r.customerFirstName, &r.customerLastName,
		&r.customerEmail, &r.customerPhone,
		&r.details, &r.createdAt, &r.updatedAt,
	}
}

// Record is the decoded variant of a raw record row. Exactly one field is
// set; raw rows never travel past the repository boundary.
type Record struct {
	Slot    *domain.Slot
	Booking *domain.Booking
}

func (r *recordRow) decode() (Record, error) {
	isBookingKey := strings.HasPrefix(r.pk, domain.BookingKeyPrefix)
	switch r.entityType {
	case entityTypeBooking:
		if !isBookingKey {
			return Record{}, fmt.Errorf("record %q/%q: booking type with non-booking key", r.pk, r.sk)
		}
		b, err := r.booking()
		if err != nil {
			return Record{}, err
		}
		return Record{Booking: b}, nil
	case entityTypeSlot:
		if isBookingKey {
			return Record{}, fmt.Errorf("record %q/%q: slot type with booking key", r.pk, r.sk)
		}
		return Record{Slot: r.slot()}, nil
	default:
		return Record{}, fmt.Errorf("record %q/%q: unknown entity type %q", r.pk, r.sk, r.entityType)
	}
}

func (r *recordRow) slot() *domain.Slot {
	s := &domain.Slot{
		SubjectKey: r.pk,
		TimeKey:    r.sk,
		Status:     domain.SlotStatus(r.status),
		Category:   strVal(r.category),
		Provider: domain.ProviderSummary{
			ID:        strVal(r.providerID),
			FirstName: strVal(r.providerFirstName),
			LastName:  strVal(r.providerLastName),
		},
		BookingRef: strVal(r.bookingRef),
		CreatedAt:  r.createdAt,
		UpdatedAt:  r.updatedAt,
	}
	if r.durationMinutes != nil {
		s.DurationMinutes = *r.durationMinutes
	}
	if r.customerID != nil {
		s.Customer = &domain.CustomerSummary{
			ID:        strVal(r.customerID),
			FirstName: strVal(r.customerFirstName),
			LastName:  strVal(r.customerLastName),
			Email:     strVal(r.customerEmail),
			Phone:     strVal(r.customerPhone),
		}
	}
	return s
}

func (r *recordRow) booking() (*domain.Booking, error) {
	b := &domain.Booking{
		BookingKey: r.pk,
		TimeKey:    r.sk,
		Status:     domain.BookingStatus(r.status),
		SlotRef: domain.SlotRef{
			SubjectKey: strVal(r.slotPK),
			TimeKey:    strVal(r.slotSK),
		},
		Customer: domain.CustomerSummary{
			ID:        strVal(r.customerID),
			FirstName: strVal(r.customerFirstName),
			LastName:  strVal(r.customerLastName),
			Email:     strVal(r.customerEmail),
			Phone:     strVal(r.customerPhone),
		},
		Provider: domain.ProviderSummary{
			ID:        strVal(r.providerID),
			FirstName: strVal(r.providerFirstName),
			LastName:  strVal(r.providerLastName),
		},
		Category:  strVal(r.category),
		CreatedAt: r.createdAt,
		UpdatedAt: r.updatedAt,
	}
	if r.durationMinutes != nil {
		b.DurationMinutes = *r.durationMinutes
	}
	if len(r.details) > 0 {
		var d domain.AppointmentDetails
		if err := json.Unmarshal(r.details, &d); err != nil {
			return nil, fmt.Errorf("record %q/%q: decode appointment details: %w", r.pk, r.sk, err)
		}
		b.Details = &d
	}
	return b, nil
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
