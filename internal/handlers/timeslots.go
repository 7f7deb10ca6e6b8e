package handlers

// timeslots.go answers "which slots of this court are still free on this date?".
// Slots are fixed per court (seeded when the court is created); availability is
// computed on every request from the bookings table, never stored.

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside/court-booking/internal/models"
)

// availableSlots returns the court's slots that have no booking on date, ordered by start time.
// A non-nil exclude ignores that booking, so a user rescheduling keeps seeing their own slot.
func availableSlots(db *gorm.DB, courtID uuid.UUID, date models.Date, exclude uuid.UUID) ([]models.TimeSlot, error) {
	taken := db.Model(&models.Booking{}).
		Select("1").
		Where("bookings.time_slot_id = time_slots.id AND bookings.booking_date = ?", date)
	if exclude != uuid.Nil {
		taken = taken.Where("bookings.id <> ?", exclude)
	}

	// Passing a *gorm.DB as a query argument embeds it as a subquery, so this becomes
	//   SELECT * FROM time_slots WHERE court_id = ? AND NOT EXISTS (SELECT 1 FROM bookings ...)
	// make(..., 0) keeps the JSON answer "[]" rather than "null" when nothing is free.
	slots := make([]models.TimeSlot, 0)
	err := db.Model(&models.TimeSlot{}).
		Where("time_slots.court_id = ?", courtID).
		Where("NOT EXISTS (?)", taken).
		Order("time_slots.start_time ASC").
		Find(&slots).Error
	return slots, err
}

// AvailableSlots returns a handler for GET /api/user/time-slots/:courtId/:date.
// Optional query param ?exclude_booking=<id> treats that booking's slot as free.
func AvailableSlots(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courtID, err := uuidParam(c, "courtId")
		if err != nil {
			return err
		}
		date, err := models.ParseDate(c.Params("date"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be in YYYY-MM-DD format")
		}

		exclude := uuid.Nil
		if raw := c.Query("exclude_booking"); raw != "" {
			if exclude, err = uuid.Parse(raw); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid exclude_booking")
			}
		}

		slots, err := availableSlots(db.WithContext(c.UserContext()), courtID, date, exclude)
		if err != nil {
			return err
		}
		return c.JSON(slots)
	}
}
