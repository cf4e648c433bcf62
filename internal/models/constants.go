package models

import "time"

const (
	// DefaultStartHour is the first bookable hour of the studio day.
	DefaultStartHour = 9
	// DefaultEndHour is the closing hour; the last slot runs 18:00-19:00.
	DefaultEndHour = 19
	// DefaultBufferHours is the margin kept free around each booking.
	DefaultBufferHours = 1

	// SlotDuration is the fixed width of a calendar slot.
	SlotDuration = time.Hour

	// DefaultDraftTTL is how long an unconfirmed slot selection survives.
	DefaultDraftTTL = 24 * time.Hour

	// ShareRateLimitMessages suggestions allowed per operator within ShareRateLimitWindow.
	ShareRateLimitMessages = 10
	ShareRateLimitWindow   = time.Minute

	// ShareMessageMaxLength caps generated share messages.
	ShareMessageMaxLength = 200

	InternalClientID   = "client_internal"
	InternalClientName = "Studio Internal"
	GeneralProjectID   = "project_general_calendar"
	GeneralProjectName = "General Calendar Bookings"
)
