// Package handlers contains the HTTP route handler functions for the court booking API.
// Each handler corresponds to one API endpoint and is responsible for reading the
// request, running its SQL, and writing a JSON response.
//
// Handlers follow the "handler factory" pattern: a function takes its dependencies
// (usually a *gorm.DB) and returns a fiber.Handler, so nothing lives in globals.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthCheck handles GET /health.
// It only proves the process is up; no database query, no authentication.
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /ready: 200 when the database answers a ping, 503 otherwise.
func Ready(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unavailable",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
