package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/courtside/court-booking/internal/models"
)

// explorePreviewSize is how many sports the landing page previews.
const explorePreviewSize = 3

// CreateSportRequest is the JSON body of POST /api/admin/sports.
type CreateSportRequest struct {
	Name     string  `json:"name"`
	ImageURL *string `json:"image_url"`
}

func listSports(db *gorm.DB, limit int) ([]models.Sport, error) {
	q := db.Order("created_at ASC, name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	sports := make([]models.Sport, 0)
	return sports, q.Find(&sports).Error
}

// ListSports returns a handler for GET /api/user/sports and GET /api/admin/sports.
// Optional query param ?limit=N caps the result for previews.
func ListSports(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "limit must be a non-negative integer")
			}
			limit = n
		}

		sports, err := listSports(db.WithContext(c.UserContext()), limit)
		if err != nil {
			return err
		}
		return c.JSON(sports)
	}
}

// ExploreSports returns a handler for GET /api/user/explore-sports: a short preview list.
func ExploreSports(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sports, err := listSports(db.WithContext(c.UserContext()), explorePreviewSize)
		if err != nil {
			return err
		}
		return c.JSON(sports)
	}
}

// CreateSport returns a handler for POST /api/admin/sports.
func CreateSport(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateSportRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "name is required",
			})
		}

		sport := models.Sport{Name: req.Name, ImageURL: req.ImageURL}
		if err := db.WithContext(c.UserContext()).Create(&sport).Error; err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(sport)
	}
}

// DeleteSport returns a handler for DELETE /api/admin/sports/:sportId.
// It returns the deleted row. Courts of the sport are left in place.
func DeleteSport(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuidParam(c, "sportId")
		if err != nil {
			return err
		}

		var sport models.Sport
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Take(&sport, "id = ?", id).Error; err != nil {
				return notFoundAs(err, "Sport not found")
			}
			return tx.Delete(&sport).Error
		})
		if err != nil {
			return err
		}
		return c.JSON(sport)
	}
}
