package handlers

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/courtside/court-booking/internal/models"
)

// Calendar answers "what date is it today" for booking validation and the upcoming-bookings
// filter. Production uses clockwork.NewRealClock(); tests use a fake clock.
type Calendar struct {
	Clock    clockwork.Clock
	Location *time.Location
}

// Today returns the current date in the booking timezone.
func (c Calendar) Today() models.Date {
	clock := c.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return models.Today(clock.Now(), loc)
}

// Now returns the current instant.
func (c Calendar) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}
