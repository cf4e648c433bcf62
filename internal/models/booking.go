package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidBooking is returned for bookings whose end does not come after their start.
var ErrInvalidBooking = errors.New("invalid booking")

type Booking struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	ProjectID string    `json:"project_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	// Price is the pre-priced amount of this booking. Only set by billing.PriceBookings.
	Price     *float64  `json:"price,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Duration returns the booking length in hours, always derived from start and end.
func (b Booking) Duration() float64 {
	return b.EndTime.Sub(b.StartTime).Hours()
}

func (b Booking) Validate() error {
	if !b.EndTime.After(b.StartTime) {
		return fmt.Errorf("%w: %q ends at %s, not after start %s", ErrInvalidBooking, b.ID,
			b.EndTime.Format(time.RFC3339), b.StartTime.Format(time.RFC3339))
	}
	return nil
}

// ValidateBookings checks every booking and returns the first failure.
func ValidateBookings(bookings []Booking) error {
	for i := range bookings {
		if err := bookings[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SlotStatus is the classification of a single 1-hour calendar cell.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBuffer    SlotStatus = "buffer"
	SlotBooked    SlotStatus = "booked"
)

type TimeSlot struct {
	Time    time.Time  `json:"time"`
	Status  SlotStatus `json:"status"`
	Booking *Booking   `json:"booking,omitempty"`
}

type DaySlots struct {
	Date  time.Time  `json:"date"`
	Slots []TimeSlot `json:"slots"`
}

// SessionRange is a continuous block of studio time built from merged bookings.
type SessionRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
