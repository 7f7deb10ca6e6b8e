// Package models defines the data structures (models) that map to database tables.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags (the backtick strings like `gorm:"..."`) tell GORM how to handle
// each field: its column type, constraints, default values, and indexes.
//
// The data model represents a sports-court booking platform where:
//   - Admins create Sports and Courts; every new Court gets ten hourly TimeSlots
//   - Users reserve one TimeSlot of one Court on one calendar date (a Booking)
//   - A Booking keeps the price the Court had when it was made
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole represents a user's global permission level.
type UserRole string

const (
	UserRoleAdmin UserRole = "admin" // Can manage sports, courts and see every booking
	UserRoleUser  UserRole = "user"  // Regular player: browses courts and books slots
)

// --- Models ---
// GORM uses the struct name (snake_cased and pluralized) as the table name:
// User -> users, TimeSlot -> time_slots, etc.

// User is a registered account. Password holds a bcrypt hash and is never serialised.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName  string    `gorm:"not null" json:"full_name"`
	Email     string    `gorm:"uniqueIndex:idx_users_email;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Role      UserRole  `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Sport groups courts, e.g. "Tennis" or "Badminton".
type Sport struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	ImageURL  *string   `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Court is one bookable court of a sport. Price is what a booking of one slot costs right now;
// bookings copy it at creation time so later price edits don't rewrite history.
type Court struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SportID    uuid.UUID `gorm:"type:uuid;not null;index" json:"sport_id"`
	CourtType  string    `gorm:"not null" json:"court_type"`
	Number     int       `gorm:"not null;default:0" json:"number"`
	Price      float64   `gorm:"type:numeric(10,2);not null;default:0" json:"price"`
	ImageURL   *string   `json:"image_url"`
	IsDisabled bool      `gorm:"not null;default:false" json:"is_disabled"`
	CreatedAt  time.Time `json:"created_at"`
}

// TimeSlot is a fixed hourly interval of a court. Times are "HH:MM" strings so that
// ordering by start_time sorts them chronologically.
type TimeSlot struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourtID   uuid.UUID `gorm:"type:uuid;not null;index" json:"court_id"`
	StartTime string    `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime   string    `gorm:"type:varchar(5);not null" json:"end_time"`
}

// Booking reserves one time slot of one court on one date.
// The composite unique index idx_bookings_slot_date allows each (court, slot, date) once.
type Booking struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	CourtID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookings_slot_date" json:"court_id"`
	TimeSlotID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookings_slot_date" json:"time_slot_id"`
	BookingDate Date      `gorm:"type:date;not null;uniqueIndex:idx_bookings_slot_date" json:"booking_date"`
	Price       float64   `gorm:"type:numeric(10,2);not null;default:0" json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

// --- Hooks ---
// The SQL migration defaults ids with gen_random_uuid(), but GORM inserts the zero UUID
// explicitly unless we fill it in first. BeforeCreate runs once per row, including
// for slice inserts like the time-slot seed batch.

func (u *User) BeforeCreate(*gorm.DB) error {
	u.ID = ensureID(u.ID)
	return nil
}

func (s *Sport) BeforeCreate(*gorm.DB) error {
	s.ID = ensureID(s.ID)
	return nil
}

func (c *Court) BeforeCreate(*gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}

func (t *TimeSlot) BeforeCreate(*gorm.DB) error {
	t.ID = ensureID(t.ID)
	return nil
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	b.ID = ensureID(b.ID)
	return nil
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// All lists every model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{&User{}, &Sport{}, &Court{}, &TimeSlot{}, &Booking{}}
}
