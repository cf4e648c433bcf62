// Package availability classifies the studio's hourly slots against existing bookings.
// Every function is pure: callers pass a snapshot of bookings and get a fresh result.
package availability

import (
	"time"

	"sessionsnap/internal/models"
)

// Hours describes the studio's operating window and the buffer kept around bookings.
type Hours struct {
	Start  int
	End    int
	Buffer time.Duration
}

func DefaultHours() Hours {
	return Hours{
		Start:  models.DefaultStartHour,
		End:    models.DefaultEndHour,
		Buffer: models.DefaultBufferHours * time.Hour,
	}
}

// Classification is the result of checking one slot.
// Booking is nil for available slots and set for booked or buffer slots.
type Classification struct {
	Status  models.SlotStatus
	Booking *models.Booking
}

// operatingDays is the number of calendar days shown per week, Monday to Saturday.
const operatingDays = 6

// WeekDates returns Monday through Saturday of the week containing ref,
// each at midnight in ref's location. Sunday belongs to the week that began the Monday before.
func WeekDates(ref time.Time) []time.Time {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)

	dates := make([]time.Time, 0, operatingDays)
	for i := 0; i < operatingDays; i++ {
		dates = append(dates, monday.AddDate(0, 0, i))
	}
	return dates
}

// DaySlots returns the start instant of every slot of date, from Start:00 up to (End-1):00.
func (h Hours) DaySlots(date time.Time) []time.Time {
	if h.End <= h.Start {
		return nil
	}
	slots := make([]time.Time, 0, h.End-h.Start)
	for hour := h.Start; hour < h.End; hour++ {
		slots = append(slots, time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location()))
	}
	return slots
}

// Classify reports whether the 1-hour slot starting at slotStart is booked, in a buffer
// or available. Booked is checked against every booking before any buffer window.
// The window before a booking is [start-buffer, start); the window after it is
// [end, end+buffer], so the slot starting exactly buffer after the end is still held back.
func (h Hours) Classify(slotStart time.Time, bookings []models.Booking) (Classification, error) {
	if err := models.ValidateBookings(bookings); err != nil {
		return Classification{}, err
	}
	return h.classify(slotStart, bookings), nil
}

func (h Hours) classify(slotStart time.Time, bookings []models.Booking) Classification {
	slotEnd := slotStart.Add(models.SlotDuration)

	for i := range bookings {
		if overlaps(slotStart, slotEnd, bookings[i].StartTime, bookings[i].EndTime) {
			return Classification{Status: models.SlotBooked, Booking: &bookings[i]}
		}
	}

	for i := range bookings {
		b := &bookings[i]
		before := b.StartTime.Add(-h.Buffer)
		after := b.EndTime.Add(h.Buffer)
		if !slotStart.Before(before) && slotStart.Before(b.StartTime) {
			return Classification{Status: models.SlotBuffer, Booking: b}
		}
		if !slotStart.Before(b.EndTime) && !slotStart.After(after) {
			return Classification{Status: models.SlotBuffer, Booking: b}
		}
	}

	return Classification{Status: models.SlotAvailable}
}

// overlaps uses inclusive-start, exclusive-end intervals.
func overlaps(slotStart, slotEnd, bookStart, bookEnd time.Time) bool {
	startsDuring := !slotStart.Before(bookStart) && slotStart.Before(bookEnd)
	endsDuring := slotEnd.After(bookStart) && !slotEnd.After(bookEnd)
	contains := !bookStart.Before(slotStart) && !bookEnd.After(slotEnd)
	return startsDuring || endsDuring || contains
}

// IsBookable reports whether a new 1-hour booking may start at slotStart.
func (h Hours) IsBookable(slotStart time.Time, bookings []models.Booking) (bool, error) {
	c, err := h.Classify(slotStart, bookings)
	if err != nil {
		return false, err
	}
	return c.Status == models.SlotAvailable, nil
}

// GridFor classifies every slot of every date. Bookings are validated once up front.
func (h Hours) GridFor(weekDates []time.Time, bookings []models.Booking) ([]models.DaySlots, error) {
	if err := models.ValidateBookings(bookings); err != nil {
		return nil, err
	}

	grid := make([]models.DaySlots, 0, len(weekDates))
	for _, date := range weekDates {
		starts := h.DaySlots(date)
		day := models.DaySlots{Date: date, Slots: make([]models.TimeSlot, 0, len(starts))}
		for _, start := range starts {
			c := h.classify(start, bookings)
			day.Slots = append(day.Slots, models.TimeSlot{Time: start, Status: c.Status, Booking: c.Booking})
		}
		grid = append(grid, day)
	}
	return grid, nil
}

func DaySlots(date time.Time) []time.Time {
	return DefaultHours().DaySlots(date)
}

func Classify(slotStart time.Time, bookings []models.Booking) (Classification, error) {
	return DefaultHours().Classify(slotStart, bookings)
}

func GridFor(weekDates []time.Time, bookings []models.Booking) ([]models.DaySlots, error) {
	return DefaultHours().GridFor(weekDates, bookings)
}
