package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/apptbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	GetBooking(ctx context.Context, bookingKey string) (*domain.Booking, error)
	QueryBookingsByCustomer(ctx context.Context, customerID, fromTime string) ([]domain.Booking, error)
	QueryBookingsByTimeRange(ctx context.Context, from, to string) ([]domain.Booking, error)
	CreateBooked(ctx context.Context, booking *domain.Booking) (*domain.BookingTransition, error)
	Cancel(ctx context.Context, bookingKey string, details domain.AppointmentDetails, now time.Time) (*domain.BookingTransition, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

// CreateBooked performs the booked transition as one atomic transaction:
// a conditional claim of the slot (must still be available with no booking
// reference) plus the insert of the booking record. Either both items commit
// or neither does; a failed condition surfaces as ErrSlotUnavailable.
func (r *PGBookingRepository) CreateBooked(ctx context.Context, booking *domain.Booking) (*domain.BookingTransition, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `UPDATE records SET
			status=$1, booking_ref=$2,
			customer_id=$3, customer_first_name=$4, customer_last_name=$5,
			customer_email=$6, customer_phone=$7,
			updated_at=$8
		WHERE pk=$9 AND sk=$10 AND entity_type=$11 AND status=$12 AND booking_ref IS NULL
		RETURNING `+recordColumns,
		domain.SlotStatusBooked, booking.BookingKey,
		booking.Customer.ID, booking.Customer.FirstName, booking.Customer.LastName,
		booking.Customer.Email, booking.Customer.Phone,
		booking.UpdatedAt,
		booking.SlotRef.SubjectKey, booking.SlotRef.TimeKey, entityTypeSlot, domain.SlotStatusAvailable)

	var slotRec recordRow
	if err := row.Scan(slotRec.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSlotUnavailable
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
	}
	decoded, err := slotRec.decode()
	if err != nil {
		return nil, err
	}
	slot := decoded.Slot

	// The slot's own attributes are authoritative over whatever the client
	// sent; the booking snapshot is taken from the claimed slot image.
	if slot.Provider.ID != "" {
		booking.Provider = slot.Provider
	}
	if slot.Category != "" {
		booking.Category = slot.Category
	}
	if slot.DurationMinutes > 0 {
		booking.DurationMinutes = slot.DurationMinutes
	}

	if _, err := tx.Exec(ctx, `INSERT INTO records (pk, sk, entity_type, status, category, duration_minutes,
			provider_id, provider_first_name, provider_last_name, slot_pk, slot_sk,
			customer_id, customer_first_name, customer_last_name, customer_email, customer_phone,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		booking.BookingKey, booking.TimeKey, entityTypeBooking, booking.Status,
		booking.Category, booking.DurationMinutes,
		booking.Provider.ID, booking.Provider.FirstName, booking.Provider.LastName,
		booking.SlotRef.SubjectKey, booking.SlotRef.TimeKey,
		booking.Customer.ID, booking.Customer.FirstName, booking.Customer.LastName,
		booking.Customer.Email, booking.Customer.Phone,
		booking.CreatedAt, booking.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
	}

	return &domain.BookingTransition{Booking: booking, Slot: slot}, nil
}

// Cancel flips the booking to cancelled (keeping the record, with the
// appointment snapshot attached) and reverts the slot to available in the
// same transaction. The slot write is guarded on its booking_ref still
// pointing at this booking; a mismatch aborts the whole transaction.
func (r *PGBookingRepository) Cancel(ctx context.Context, bookingKey string, details domain.AppointmentDetails, now time.Time) (*domain.BookingTransition, error) {
	payload, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `UPDATE records SET status=$1, appointment_details=$2, updated_at=$3
		WHERE pk=$4 AND entity_type=$5
		RETURNING `+recordColumns,
		domain.BookingStatusCancelled, payload, now, bookingKey, entityTypeBooking)

	var bookingRec recordRow
	if err := row.Scan(bookingRec.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
	}
	decodedBooking, err := bookingRec.decode()
	if err != nil {
		return nil, err
	}

	slotRef := decodedBooking.Booking.SlotRef
	row = tx.QueryRow(ctx, `UPDATE records SET
			status=$1, booking_ref=NULL,
			customer_id=NULL, customer_first_name=NULL, customer_last_name=NULL,
			customer_email=NULL, customer_phone=NULL,
			updated_at=$2
		WHERE pk=$3 AND sk=$4 AND entity_type=$5 AND booking_ref=$6
		RETURNING `+recordColumns,
		domain.SlotStatusAvailable, now,
		slotRef.SubjectKey, slotRef.TimeKey, entityTypeSlot, bookingKey)

	var slotRec recordRow
	if err := row.Scan(slotRec.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: slot no longer references booking %s", domain.ErrTransactionAborted, bookingKey)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
	}

	decodedSlot, err := slotRec.decode()
	if err != nil {
		return nil, err
	}
	return &domain.BookingTransition{Booking: decodedBooking.Booking, Slot: decodedSlot.Slot}, nil
}

func (r *PGBookingRepository) GetBooking(ctx context.Context, bookingKey string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE pk=$1 AND entity_type=$2`,
		bookingKey, entityTypeBooking)

	var rec recordRow
	if err := row.Scan(rec.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	decoded, err := rec.decode()
	if err != nil {
		return nil, err
	}
	return decoded.Booking, nil
}

// QueryBookingsByCustomer returns the customer's bookings, cancelled ones
// included, with time key at or after fromTime.
func (r *PGBookingRepository) QueryBookingsByCustomer(ctx context.Context, customerID, fromTime string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM records
		WHERE entity_type=$1 AND customer_id=$2 AND sk >= $3 ORDER BY sk ASC`,
		entityTypeBooking, customerID, fromTime)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

// QueryBookingsByTimeRange returns active bookings in [from, to), used for
// reminder digests; cancelled bookings are excluded here.
func (r *PGBookingRepository) QueryBookingsByTimeRange(ctx context.Context, from, to string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM records
		WHERE entity_type=$1 AND status=$2 AND sk >= $3 AND sk < $4 ORDER BY sk ASC`,
		entityTypeBooking, domain.BookingStatusBooked, from, to)
	if err != nil {
		return nil, err
	}
	return scanBookings(rows)
}

func scanBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var rec recordRow
		if err := rows.Scan(rec.scanTargets()...); err != nil {
			return nil, err
		}
		decoded, err := rec.decode()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *decoded.Booking)
	}
	return bookings, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
