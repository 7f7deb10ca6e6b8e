package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// internalErrorMessage is all a client ever sees of an unexpected failure.
const internalErrorMessage = "Internal server error"

// ErrorHandler is the app-wide fallback for errors returned by handlers.
//   - *fiber.Error keeps its status and message (handlers return fiber.NewError for expected failures)
//   - gorm.ErrRecordNotFound becomes 404, gorm.ErrDuplicatedKey becomes 409
//   - anything else is logged and answered with a generic 500
func ErrorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Already exists"})
		}

		log.Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": internalErrorMessage,
		})
	}
}

// uuidParam parses the named route parameter as a UUID.
func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// parseBody decodes the JSON request body into dst.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}

// notFoundAs replaces gorm.ErrRecordNotFound with a 404 carrying msg.
func notFoundAs(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, msg)
	}
	return err
}
