package domain

import (
	"fmt"
	"time"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusBooked    SlotStatus = "booked"
	SlotStatusCancelled SlotStatus = "cancelled"
)

// SubjectKeyAppointments is the subject key under which appointment slots
// are partitioned.
const SubjectKeyAppointments = "appt"

// SlotRef is the composite identity of a slot: a category-scoped subject key
// (e.g. "appt") and an RFC3339 time key acting as sort key.
type SlotRef struct {
	SubjectKey string `json:"subject_key"`
	TimeKey    string `json:"time_key"`
}

type ProviderSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CustomerSummary is a denormalized snapshot captured at booking time.
// A later identity change does not update historical snapshots.
type CustomerSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type Slot struct {
	SubjectKey      string
	TimeKey         string
	Status          SlotStatus
	DurationMinutes int
	Category        string
	Provider        ProviderSummary
	BookingRef      string           // empty unless status is booked
	Customer        *CustomerSummary // nil unless status is booked
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NormalizeTimeKey parses an RFC3339 time key and rewrites it in UTC. Time
// keys double as lexicographic sort keys, so an offset form like
// "2024-01-11T01:00:00+02:00" must be stored and queried as its "Z"
// equivalent or range scans can miss it.
func NormalizeTimeKey(key string) (string, error) {
	t, err := time.Parse(time.RFC3339, key)
	if err != nil {
		return "", fmt.Errorf("%w: time key must be RFC3339", ErrValidation)
	}
	return t.UTC().Format(time.RFC3339), nil
}

func (s *Slot) Ref() SlotRef {
	return SlotRef{SubjectKey: s.SubjectKey, TimeKey: s.TimeKey}
}
