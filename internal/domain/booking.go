package domain

import "time"

type BookingStatus string

const (
	BookingStatusBooked    BookingStatus = "booked"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// BookingKeyPrefix distinguishes booking keys from slot subject keys in the
// shared record table.
const BookingKeyPrefix = "booking#"

// AppointmentDetails is the snapshot of the slot's attributes persisted on
// the booking at cancellation time, for historical display.
type AppointmentDetails struct {
	TimeKey         string `json:"time_key"`
	Category        string `json:"category"`
	DurationMinutes int    `json:"duration_minutes"`
}

type Booking struct {
	BookingKey      string // "booking#<uuid>"
	TimeKey         string // mirrors the slot's time key
	Status          BookingStatus
	SlotRef         SlotRef
	Customer        CustomerSummary
	Provider        ProviderSummary
	Category        string
	DurationMinutes int
	Details         *AppointmentDetails // set once cancelled
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BookingTransition is the committed outcome of an atomic two-item state
// transition: the post-write images of both entities.
type BookingTransition struct {
	Booking *Booking
	Slot    *Slot
}
