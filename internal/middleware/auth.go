// Package middleware contains HTTP middleware functions for the court booking API.
// Middleware sits between the HTTP server and route handlers, which makes it the place
// for cross-cutting concerns like identifying the caller and gating admin routes.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/courtside/court-booking/internal/auth"
)

// Keys under which Authenticate stores the caller identity in c.Locals.
const (
	LocalUserID   = "userID"
	LocalUserRole = "userRole"
)

// bearerToken returns the token from an "Authorization: Bearer <token>" header, or "".
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// Authenticate reads an optional bearer token and, when it verifies, stores the user id
// and role in c.Locals for downstream handlers.
//
// It never rejects a request. A missing, expired or forged token simply leaves c.Locals
// empty, so a client holding a stale token can still log in again, and routes that
// decide access some other way (the X-Role header in header mode) behave the same
// with or without it.
func Authenticate(tokens *auth.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" || tokens == nil {
			return c.Next()
		}

		// tokens.Parse checks the HS256 signature and the exp claim.
		claims, err := tokens.Parse(raw)
		if err != nil {
			return c.Next()
		}

		// c.Locals is request-scoped storage; handlers read these keys back with
		// c.Locals(LocalUserID).(string).
		c.Locals(LocalUserID, claims.Subject)
		c.Locals(LocalUserRole, claims.Role)
		return c.Next()
	}
}
