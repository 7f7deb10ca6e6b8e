package handlers

// admin.go holds the dashboard and booking-overview routes under /api/admin.
// Sport and court management live in sports.go and courts.go.

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/courtside/court-booking/internal/feed"
	"github.com/courtside/court-booking/internal/models"
)

// latestBookingsLimit is the size of the dashboard's "latest bookings" widget.
const latestBookingsLimit = 5

// streamKeepAlive is how often an idle event stream gets a comment line.
const streamKeepAlive = 25 * time.Second

// DashboardStats is the body of GET /api/admin/stats.
type DashboardStats struct {
	TotalRevenue  float64 `json:"total_revenue"`
	TotalBookings int64   `json:"total_bookings"`
	TotalUsers    int64   `json:"total_users"`
}

// AdminBooking is one row of the full booking listing. User, court, sport and slot columns
// are nullable because deleting those rows leaves bookings behind.
type AdminBooking struct {
	ID          uuid.UUID   `json:"id"`
	BookingDate models.Date `json:"booking_date"`
	Price       float64     `json:"price"`
	CreatedAt   time.Time   `json:"created_at"`
	UserID      uuid.UUID   `json:"user_id"`
	UserName    *string     `json:"user_name"`
	UserEmail   *string     `json:"user_email"`
	CourtID     uuid.UUID   `json:"court_id"`
	CourtType   *string     `json:"court_type"`
	CourtNumber *int        `json:"court_number"`
	SportName   *string     `json:"sport_name"`
	TimeSlotID  uuid.UUID   `json:"time_slot_id"`
	StartTime   *string     `json:"start_time"`
	EndTime     *string     `json:"end_time"`
}

// Stats returns a handler for GET /api/admin/stats (also /dashboard-stats).
// Revenue sums each booking's stored price, so changing a court's price later
// does not rewrite past revenue.
func Stats(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctxDB := db.WithContext(c.UserContext())
		var stats DashboardStats

		if err := ctxDB.Model(&models.Booking{}).
			Select("COALESCE(SUM(price), 0)").
			Scan(&stats.TotalRevenue).Error; err != nil {
			return err
		}
		if err := ctxDB.Model(&models.Booking{}).Count(&stats.TotalBookings).Error; err != nil {
			return err
		}
		if err := ctxDB.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
			return err
		}
		return c.JSON(stats)
	}
}

// LatestBookings returns a handler for GET /api/admin/bookings/limit.
func LatestBookings(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bookings := make([]models.Booking, 0, latestBookingsLimit)
		err := db.WithContext(c.UserContext()).
			Order("booking_date DESC, created_at DESC").
			Limit(latestBookingsLimit).
			Find(&bookings).Error
		if err != nil {
			return err
		}
		return c.JSON(bookings)
	}
}

// AdminListBookings returns a handler for GET /api/admin/bookings: every booking joined
// with its user, court, sport and slot.
func AdminListBookings(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows := make([]AdminBooking, 0)
		err := db.WithContext(c.UserContext()).
			Table("bookings b").
			Select(`b.id, b.booking_date, b.price, b.created_at,
				b.user_id, u.full_name AS user_name, u.email AS user_email,
				b.court_id, c.court_type, c.number AS court_number,
				s.name AS sport_name,
				b.time_slot_id, ts.start_time, ts.end_time`).
			Joins("LEFT JOIN users u ON u.id = b.user_id").
			Joins("LEFT JOIN courts c ON c.id = b.court_id").
			Joins("LEFT JOIN sports s ON s.id = c.sport_id").
			Joins("LEFT JOIN time_slots ts ON ts.id = b.time_slot_id").
			Order("b.booking_date DESC, ts.start_time ASC").
			Scan(&rows).Error
		if err != nil {
			return err
		}
		return c.JSON(rows)
	}
}

// BookingStream returns a handler for GET /api/admin/bookings/stream, a server-sent events
// feed of booking activity. Optional ?court_id= narrows it to one court.
func BookingStream(hub *feed.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		topic := feed.TopicAll
		if raw := c.Query("court_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid court_id")
			}
			topic = id.String()
		}

		sub := hub.Subscribe(topic)
		if sub == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "feed is shutting down")
		}

		// Server-sent events: a long-lived response made of text frames
		//   event: booking
		//   data: {...json...}
		// separated by blank lines. Lines starting with ":" are comments the browser ignores.
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		// Fiber runs on fasthttp. SetBodyStreamWriter lets us keep writing the body after
		// this handler returns; the callback runs until it returns or the client leaves.
		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer hub.Unsubscribe(sub)

			ticker := time.NewTicker(streamKeepAlive)
			defer ticker.Stop()

			fmt.Fprint(w, ": connected\n\n")
			if w.Flush() != nil {
				return
			}
			for {
				select {
				case data, ok := <-sub.Send:
					// A closed channel means the hub stopped or dropped us.
					if !ok {
						return
					}
					fmt.Fprintf(w, "event: booking\ndata: %s\n\n", data)
				case <-ticker.C:
					fmt.Fprint(w, ": ping\n\n")
				}
				// A failed flush means the client went away.
				if w.Flush() != nil {
					return
				}
			}
		}))
		return nil
	}
}
