package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/courtside/court-booking/internal/auth"
	"github.com/courtside/court-booking/internal/config"
	"github.com/courtside/court-booking/internal/feed"
	"github.com/courtside/court-booking/internal/middleware"
)

// Deps is everything the route table needs.
type Deps struct {
	DB       *gorm.DB
	Calendar Calendar
	// Tokens is nil when no JWT secret is configured; responses then carry no token.
	Tokens   *auth.Tokens
	AuthMode string
	Feed     *feed.Hub
	Log      zerolog.Logger

	// AccessLog turns on Fiber's per-request logger.
	AccessLog   bool
	CORSOrigins string
}

// NewApp builds the Fiber app with global middleware and every route mounted.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Court Booking API",
		ErrorHandler: ErrorHandler(d.Log),
	})

	// --- Global middleware ---
	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New())
	}
	origins := d.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.RoleHeader,
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
	}))

	Mount(app, d)
	return app
}

// Mount registers the public, auth, user and admin route groups on app.
func Mount(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck)
	app.Get("/ready", Ready(d.DB))

	// app.Group returns a router whose routes all share the prefix and any middleware
	// passed to it. Authenticate only ever adds caller identity; it never blocks.
	api := app.Group("/api")
	if d.Tokens != nil {
		api.Use(middleware.Authenticate(d.Tokens))
	}

	// Auth routes
	// POST /api/auth/login   credential check
	// POST /api/auth/signup  create account, 409 on a taken email (/register is the older path)
	authGroup := api.Group("/auth")
	authGroup.Post("/login", Login(d.DB, d.Tokens))
	authGroup.Post("/signup", Signup(d.DB, d.Tokens))
	authGroup.Post("/register", Signup(d.DB, d.Tokens))

	// User routes: browsing and the booking lifecycle.
	// ":courtId" style segments are route parameters, read in handlers with c.Params.
	user := api.Group("/user")
	user.Get("/sports", ListSports(d.DB))
	user.Get("/explore-sports", ExploreSports(d.DB))
	user.Get("/courts/:sportId", ListCourts(d.DB))
	user.Get("/court/:courtId", GetCourt(d.DB))
	user.Get("/time-slots/:courtId/:date", AvailableSlots(d.DB))
	user.Post("/book/:courtId", CreateBooking(d.DB, d.Calendar, publisherOf(d.Feed)))
	user.Get("/bookings/:userId", UserBookings(d.DB, d.Calendar))
	user.Patch("/bookings/:bookingId", RescheduleBooking(d.DB, d.Calendar, publisherOf(d.Feed)))
	user.Delete("/bookings/:bookingId", CancelBooking(d.DB, d.Calendar, publisherOf(d.Feed)))

	// Admin routes: every one passes the role gate first
	admin := api.Group("/admin", middleware.RoleGate(authMode(d.AuthMode), d.Tokens))
	admin.Get("/stats", Stats(d.DB))
	admin.Get("/dashboard-stats", Stats(d.DB))

	admin.Get("/bookings", AdminListBookings(d.DB))
	admin.Get("/bookings/limit", LatestBookings(d.DB))
	if d.Feed != nil {
		admin.Get("/bookings/stream", BookingStream(d.Feed))
	}

	admin.Get("/sports", ListSports(d.DB))
	admin.Post("/sports", CreateSport(d.DB))
	admin.Delete("/sports/:sportId", DeleteSport(d.DB))

	admin.Get("/courts/:sportId", AdminListCourts(d.DB))
	admin.Post("/courts/:sportId", CreateCourt(d.DB))
	admin.Delete("/courts/:courtId", DeleteCourt(d.DB))
	admin.Patch("/courts/:courtId", UpdateCourtPrice(d.DB))
	admin.Patch("/courts/:courtId/disable", SetCourtDisabled(d.DB, true))
	admin.Patch("/courts/:courtId/enable", SetCourtDisabled(d.DB, false))
}

func authMode(mode string) string {
	if mode == "" {
		return config.AuthModeHeader
	}
	return mode
}

// publisherOf avoids handing handlers a non-nil interface wrapping a nil *feed.Hub.
func publisherOf(hub *feed.Hub) Publisher {
	if hub == nil {
		return nil
	}
	return hub
}
