package handlers

// bookings.go implements the booking lifecycle:
//
//	requested -> confirmed (insert)  or  rejected (validation)
//	confirmed -> rescheduled (date/slot updated)  or  cancelled (row deleted)
//
// There is no "completed" state; past bookings drop out of the upcoming list.
//
// --- Concurrency ---
// Two users can ask for the same slot at the same moment. Each write runs inside
// db.Transaction, and the bookings table has a unique index on
// (court_id, time_slot_id, booking_date). The loser of the race either sees the
// winner's row in slotTaken or hits the index on insert; both answer 409.
//
// Every successful write is also published to the booking feed (see internal/feed),
// which drives the admin dashboard's live stream.

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside/court-booking/internal/feed"
	"github.com/courtside/court-booking/internal/middleware"
	"github.com/courtside/court-booking/internal/models"
)

var (
	errPastDate   = fiber.NewError(fiber.StatusBadRequest, "Booking date cannot be in the past")
	errBadDate    = fiber.NewError(fiber.StatusBadRequest, "booking_date must be in YYYY-MM-DD format")
	errSlotTaken  = fiber.NewError(fiber.StatusConflict, "Time slot is already booked for this date")
	errWrongSlot  = fiber.NewError(fiber.StatusBadRequest, "time_slot_id does not belong to this court")
	errNoBooking  = fiber.NewError(fiber.StatusNotFound, "Booking not found")
	errCourtOff   = fiber.NewError(fiber.StatusBadRequest, "Court is disabled")
	errBadSlotID  = fiber.NewError(fiber.StatusBadRequest, "invalid time_slot_id")
	errBadUserID  = fiber.NewError(fiber.StatusBadRequest, "invalid user_id")
	errNoSuchUser = fiber.NewError(fiber.StatusNotFound, "User not found")
)

// Publisher receives booking activity. *feed.Hub satisfies it.
type Publisher interface {
	PublishEvent(feed.Event)
}

// CreateBookingRequest is the JSON body of POST /api/user/book/:courtId.
// user_id may be omitted when the request carries a valid bearer token.
type CreateBookingRequest struct {
	BookingDate string `json:"booking_date"` // "YYYY-MM-DD" (a full timestamp is accepted, date part kept)
	UserID      string `json:"user_id"`      // Booking owner; falls back to the bearer token's subject
	TimeSlotID  string `json:"time_slot_id"` // Must be one of this court's slots
}

// RescheduleBookingRequest is the JSON body of PATCH /api/user/bookings/:bookingId.
type RescheduleBookingRequest struct {
	BookingDate string `json:"booking_date"` // New date, same rules as on create
	TimeSlotID  string `json:"time_slot_id"` // New slot of the booking's court
}

// UserBooking is one row of a user's upcoming bookings, with court, sport and slot joined in.
type UserBooking struct {
	ID            uuid.UUID   `json:"id"`
	BookingDate   models.Date `json:"booking_date"`
	Price         float64     `json:"price"`
	CreatedAt     time.Time   `json:"created_at"`
	CourtID       uuid.UUID   `json:"court_id"`
	CourtType     string      `json:"court_type"`
	CourtNumber   int         `json:"court_number"`
	CourtImageURL *string     `json:"court_image_url"`
	SportID       uuid.UUID   `json:"sport_id"`
	SportName     string      `json:"sport_name"`
	TimeSlotID    uuid.UUID   `json:"time_slot_id"`
	StartTime     string      `json:"start_time"`
	EndTime       string      `json:"end_time"`
}

// parseBookingDate validates a requested date: well-formed and not before today.
func parseBookingDate(raw string, today models.Date) (models.Date, error) {
	date, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, errBadDate
	}
	if date.Before(today) {
		return models.Date{}, errPastDate
	}
	return date, nil
}

// slotTaken reports whether another booking already holds (slot, date).
func slotTaken(tx *gorm.DB, slotID uuid.UUID, date models.Date, exclude uuid.UUID) (bool, error) {
	q := tx.Model(&models.Booking{}).Where("time_slot_id = ? AND booking_date = ?", slotID, date)
	if exclude != uuid.Nil {
		q = q.Where("id <> ?", exclude)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

// slotOfCourt loads the slot and checks it belongs to courtID.
func slotOfCourt(tx *gorm.DB, slotID, courtID uuid.UUID) (models.TimeSlot, error) {
	var slot models.TimeSlot
	err := tx.Take(&slot, "id = ? AND court_id = ?", slotID, courtID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return slot, errWrongSlot
	}
	return slot, err
}

func publish(p Publisher, kind string, b models.Booking, at time.Time) {
	if p == nil {
		return
	}
	p.PublishEvent(feed.Event{Type: kind, Booking: b, At: at})
}

// callerID returns the user id a verified bearer token put in c.Locals, if any.
func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.LocalUserID).(string)
	return id
}

// CreateBooking returns a handler for POST /api/user/book/:courtId.
//
// Past dates are rejected before any query runs. The court price is copied onto the
// booking, and the free-slot check plus insert run in one transaction backed by the
// unique (court, slot, date) index, so two racing requests cannot both win.
func CreateBooking(db *gorm.DB, cal Calendar, pub Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courtID, err := uuidParam(c, "courtId")
		if err != nil {
			return err
		}

		var req CreateBookingRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		date, err := parseBookingDate(req.BookingDate, cal.Today())
		if err != nil {
			return err
		}
		if req.UserID == "" {
			req.UserID = callerID(c)
		}
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			return errBadUserID
		}
		slotID, err := uuid.Parse(req.TimeSlotID)
		if err != nil {
			return errBadSlotID
		}

		booking := models.Booking{
			UserID:      userID,
			CourtID:     courtID,
			TimeSlotID:  slotID,
			BookingDate: date,
		}

		// Everything below runs on one transaction (tx). Returning an error from the
		// closure rolls it back; returning nil commits.
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			// 1. The court must exist and be open for booking.
			var court models.Court
			if err := tx.Take(&court, "id = ?", courtID).Error; err != nil {
				return notFoundAs(err, "Court not found")
			}
			if court.IsDisabled {
				return errCourtOff
			}

			// 2. The user must exist.
			var users int64
			if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&users).Error; err != nil {
				return err
			}
			if users == 0 {
				return errNoSuchUser
			}

			// 3. The slot must belong to this court and be free on that date.
			if _, err := slotOfCourt(tx, slotID, courtID); err != nil {
				return err
			}
			taken, err := slotTaken(tx, slotID, date, uuid.Nil)
			if err != nil {
				return err
			}
			if taken {
				return errSlotTaken
			}

			// 4. Copy the court's current price onto the booking and insert it.
			// Later price changes leave this row (and revenue) untouched.
			booking.Price = court.Price
			return tx.Create(&booking).Error
		})
		// gorm.ErrDuplicatedKey comes from the unique index when a concurrent request won.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errSlotTaken
		}
		if err != nil {
			return err
		}

		publish(pub, feed.EventBookingCreated, booking, cal.Now())
		return c.Status(fiber.StatusCreated).JSON(booking)
	}
}

// RescheduleBooking returns a handler for PATCH /api/user/bookings/:bookingId.
// It moves the booking to a new date and slot of the same court. The price stays as booked.
func RescheduleBooking(db *gorm.DB, cal Calendar, pub Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bookingID, err := uuidParam(c, "bookingId")
		if err != nil {
			return err
		}

		var req RescheduleBookingRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		date, err := parseBookingDate(req.BookingDate, cal.Today())
		if err != nil {
			return err
		}
		slotID, err := uuid.Parse(req.TimeSlotID)
		if err != nil {
			return errBadSlotID
		}

		var booking models.Booking
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Take(&booking, "id = ?", bookingID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errNoBooking
				}
				return err
			}
			if _, err := slotOfCourt(tx, slotID, booking.CourtID); err != nil {
				return err
			}
			taken, err := slotTaken(tx, slotID, date, booking.ID)
			if err != nil {
				return err
			}
			if taken {
				return errSlotTaken
			}

			booking.BookingDate = date
			booking.TimeSlotID = slotID
			return tx.Model(&booking).Updates(map[string]any{
				"booking_date": date,
				"time_slot_id": slotID,
			}).Error
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errSlotTaken
		}
		if err != nil {
			return err
		}

		publish(pub, feed.EventBookingRescheduled, booking, cal.Now())
		return c.JSON(booking)
	}
}

// CancelBooking returns a handler for DELETE /api/user/bookings/:bookingId and returns
// the deleted row.
func CancelBooking(db *gorm.DB, cal Calendar, pub Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bookingID, err := uuidParam(c, "bookingId")
		if err != nil {
			return err
		}

		var booking models.Booking
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Take(&booking, "id = ?", bookingID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errNoBooking
				}
				return err
			}
			return tx.Delete(&booking).Error
		})
		if err != nil {
			return err
		}

		publish(pub, feed.EventBookingCancelled, booking, cal.Now())
		return c.JSON(booking)
	}
}

// UserBookings returns a handler for GET /api/user/bookings/:userId: the user's bookings
// from today on, ordered by date then slot start time.
func UserBookings(db *gorm.DB, cal Calendar) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := uuidParam(c, "userId")
		if err != nil {
			return err
		}

		rows := make([]UserBooking, 0)
		err = db.WithContext(c.UserContext()).
			Table("bookings b").
			Select(`b.id, b.booking_date, b.price, b.created_at,
				b.court_id, c.court_type, c.number AS court_number, c.image_url AS court_image_url,
				s.id AS sport_id, s.name AS sport_name,
				b.time_slot_id, ts.start_time, ts.end_time`).
			Joins("JOIN courts c ON c.id = b.court_id").
			Joins("JOIN sports s ON s.id = c.sport_id").
			Joins("JOIN time_slots ts ON ts.id = b.time_slot_id").
			Where("b.user_id = ? AND b.booking_date >= ?", userID, cal.Today()).
			Order("b.booking_date ASC, ts.start_time ASC").
			Scan(&rows).Error
		if err != nil {
			return err
		}
		return c.JSON(rows)
	}
}
