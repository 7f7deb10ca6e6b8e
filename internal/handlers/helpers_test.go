package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/courtside/court-booking/internal/auth"
	"github.com/courtside/court-booking/internal/config"
	"github.com/courtside/court-booking/internal/database/dbtest"
	"github.com/courtside/court-booking/internal/feed"
	"github.com/courtside/court-booking/internal/handlers"
	"github.com/courtside/court-booking/internal/middleware"
	"github.com/courtside/court-booking/internal/models"
)

// now is the fixed "current time" of every handler test: 19 Oct 2026, 10:00 UTC.
var now = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

const testSecret = "test-secret"

const (
	today     = "2026-10-19"
	yesterday = "2026-10-18"
	tomorrow  = "2026-10-20"
	nextWeek  = "2026-10-26"
)

type testEnv struct {
	t      *testing.T
	app    *fiber.App
	db     *gorm.DB
	tokens *auth.Tokens
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnvWithFeed(t, nil)
}

// newEnvWithFeed is newEnv with the booking feed mounted on hub (nil leaves it off).
func newEnvWithFeed(t *testing.T, hub *feed.Hub) *testEnv {
	t.Helper()
	db := dbtest.New(t)
	tokens := auth.NewTokens(testSecret, time.Hour, func() time.Time { return now })
	app := handlers.NewApp(handlers.Deps{
		DB: db,
		Calendar: handlers.Calendar{
			Clock:    clockwork.NewFakeClockAt(now),
			Location: time.UTC,
		},
		Tokens:   tokens,
		AuthMode: config.AuthModeHeader,
		Feed:     hub,
		Log:      zerolog.Nop(),
	})
	return &testEnv{t: t, app: app, db: db, tokens: tokens}
}

// with returns a copy of e that reports to t, for use inside subtests.
func (e *testEnv) with(t *testing.T) *testEnv {
	c := *e
	c.t = t
	return &c
}

// newRequest builds a request with body encoded as JSON.
func newRequest(t testing.TB, method, path string, body any) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// do sends a request and returns the status code and raw body.
func (e *testEnv) do(method, path string, body any, headers map[string]string) (int, []byte) {
	e.t.Helper()

	req := newRequest(e.t, method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, out
}

// admin sends a request carrying the admin role header.
func (e *testEnv) admin(method, path string, body any) (int, []byte) {
	e.t.Helper()
	return e.do(method, path, body, map[string]string{middleware.RoleHeader: "admin"})
}

// decode unmarshals body into a new T, failing the test on error.
func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func expectStatus(t *testing.T, got, want int, body []byte) {
	t.Helper()
	if got != want {
		t.Fatalf("status = %d, want %d (body %s)", got, want, body)
	}
}

func (e *testEnv) seedUser(email string, role models.UserRole) models.User {
	e.t.Helper()
	hash, err := auth.HashPassword("password")
	if err != nil {
		e.t.Fatalf("hash: %v", err)
	}
	u := models.User{FullName: "User " + email, Email: email, Password: hash, Role: role}
	if err := e.db.Create(&u).Error; err != nil {
		e.t.Fatalf("seed user: %v", err)
	}
	return u
}

func (e *testEnv) seedSport(name string) models.Sport {
	e.t.Helper()
	s := models.Sport{Name: name}
	if err := e.db.Create(&s).Error; err != nil {
		e.t.Fatalf("seed sport: %v", err)
	}
	return s
}

// seedCourt inserts a court with its default slots and returns both.
func (e *testEnv) seedCourt(sportID uuid.UUID, number int, price float64) (models.Court, []models.TimeSlot) {
	e.t.Helper()
	c := models.Court{SportID: sportID, CourtType: "Hard", Number: number, Price: price}
	if err := e.db.Create(&c).Error; err != nil {
		e.t.Fatalf("seed court: %v", err)
	}
	slots := models.DefaultSlots(c.ID)
	if err := e.db.Create(&slots).Error; err != nil {
		e.t.Fatalf("seed slots: %v", err)
	}
	return c, slots
}

// seedBooking inserts a booking directly, bypassing the past-date rule.
func (e *testEnv) seedBooking(user models.User, court models.Court, slot models.TimeSlot, date string, price float64) models.Booking {
	e.t.Helper()
	d, err := models.ParseDate(date)
	if err != nil {
		e.t.Fatalf("parse date: %v", err)
	}
	b := models.Booking{UserID: user.ID, CourtID: court.ID, TimeSlotID: slot.ID, BookingDate: d, Price: price}
	if err := e.db.Create(&b).Error; err != nil {
		e.t.Fatalf("seed booking: %v", err)
	}
	return b
}

func (e *testEnv) count(model any) int64 {
	e.t.Helper()
	var n int64
	if err := e.db.Model(model).Count(&n).Error; err != nil {
		e.t.Fatalf("count: %v", err)
	}
	return n
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	return decode[map[string]string](t, body)["error"]
}
