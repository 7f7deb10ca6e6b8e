package handlers

// courts.go covers browsing courts (user routes) and managing them (admin routes).

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside/court-booking/internal/models"
)

// CreateCourtRequest is the JSON body of POST /api/admin/courts/:sportId.
type CreateCourtRequest struct {
	Type     string  `json:"type"`      // Required: surface or kind, e.g. "Clay"
	Price    float64 `json:"price"`     // Price of one slot; must not be negative
	ImageURL *string `json:"image_url"` // Optional picture; null if not set
	Number   int     `json:"number"`    // Court number shown to players
}

// UpdateCourtRequest is the JSON body of PATCH /api/admin/courts/:courtId.
type UpdateCourtRequest struct {
	Price *float64 `json:"price"` // Pointer so a missing field can be told apart from 0
}

// CourtDetail is a court with its sport's name joined in.
type CourtDetail struct {
	models.Court
	SportName *string `json:"sport_name"`
}

func listCourts(db *gorm.DB, sportID uuid.UUID, enabledOnly bool) ([]models.Court, error) {
	q := db.Where("sport_id = ?", sportID)
	if enabledOnly {
		q = q.Where("is_disabled = ?", false)
	}
	courts := make([]models.Court, 0)
	return courts, q.Order("number ASC, created_at ASC").Find(&courts).Error
}

// ListCourts returns a handler for GET /api/user/courts/:sportId.
// Disabled courts are hidden from users.
func ListCourts(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sportID, err := uuidParam(c, "sportId")
		if err != nil {
			return err
		}
		courts, err := listCourts(db.WithContext(c.UserContext()), sportID, true)
		if err != nil {
			return err
		}
		return c.JSON(courts)
	}
}

// AdminListCourts returns a handler for GET /api/admin/courts/:sportId, disabled courts included.
func AdminListCourts(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sportID, err := uuidParam(c, "sportId")
		if err != nil {
			return err
		}
		courts, err := listCourts(db.WithContext(c.UserContext()), sportID, false)
		if err != nil {
			return err
		}
		return c.JSON(courts)
	}
}

// GetCourt returns a handler for GET /api/user/court/:courtId.
func GetCourt(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courtID, err := uuidParam(c, "courtId")
		if err != nil {
			return err
		}

		var detail CourtDetail
		res := db.WithContext(c.UserContext()).
			Table("courts c").
			Select("c.*, s.name AS sport_name").
			Joins("LEFT JOIN sports s ON s.id = c.sport_id").
			Where("c.id = ?", courtID).
			Limit(1).
			Scan(&detail)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Court not found")
		}
		return c.JSON(detail)
	}
}

// CreateCourt returns a handler for POST /api/admin/courts/:sportId.
// The court and its ten default hourly time slots are inserted in one transaction,
// so a court never exists without its slots.
func CreateCourt(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sportID, err := uuidParam(c, "sportId")
		if err != nil {
			return err
		}

		var req CreateCourtRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		req.Type = strings.TrimSpace(req.Type)
		if req.Type == "" {
			return fiber.NewError(fiber.StatusBadRequest, "type is required")
		}
		if req.Price < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "price must not be negative")
		}

		court := models.Court{
			SportID:   sportID,
			CourtType: req.Type,
			Number:    req.Number,
			Price:     req.Price,
			ImageURL:  req.ImageURL,
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var sport models.Sport
			if err := tx.Select("id").Take(&sport, "id = ?", sportID).Error; err != nil {
				return notFoundAs(err, "Sport not found")
			}
			if err := tx.Create(&court).Error; err != nil {
				return err
			}
			slots := models.DefaultSlots(court.ID)
			return tx.Create(&slots).Error
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(court)
	}
}

// DeleteCourt returns a handler for DELETE /api/admin/courts/:courtId and returns the deleted row.
// Time slots and bookings that reference the court are not touched.
func DeleteCourt(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courtID, err := uuidParam(c, "courtId")
		if err != nil {
			return err
		}

		var court models.Court
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Take(&court, "id = ?", courtID).Error; err != nil {
				return notFoundAs(err, "Court not found")
			}
			return tx.Delete(&court).Error
		})
		if err != nil {
			return err
		}
		return c.JSON(court)
	}
}

// updateCourt applies updates to one court and returns the row as stored afterwards.
func updateCourt(c *fiber.Ctx, db *gorm.DB, updates map[string]any) error {
	courtID, err := uuidParam(c, "courtId")
	if err != nil {
		return err
	}

	var court models.Court
	err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Court{}).Where("id = ?", courtID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Court not found")
		}
		return tx.Take(&court, "id = ?", courtID).Error
	})
	if err != nil {
		return err
	}
	return c.JSON(court)
}

// UpdateCourtPrice returns a handler for PATCH /api/admin/courts/:courtId.
// Existing bookings keep the price they were made at.
func UpdateCourtPrice(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req UpdateCourtRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		if req.Price == nil {
			return fiber.NewError(fiber.StatusBadRequest, "price is required")
		}
		if *req.Price < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "price must not be negative")
		}
		return updateCourt(c, db, map[string]any{"price": *req.Price})
	}
}

// SetCourtDisabled returns a handler for PATCH /api/admin/courts/:courtId/disable
// (disabled = true) or /enable (disabled = false).
func SetCourtDisabled(db *gorm.DB, disabled bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return updateCourt(c, db, map[string]any{"is_disabled": disabled})
	}
}
