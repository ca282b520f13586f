// internal/api/middleware.go
package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"student-portal/internal/identity"
)

const callerLocal = "caller"

// requestID tags every request so log lines can be correlated.
func (s *Server) requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("requestId", id)
		c.Set("X-Request-ID", id)
		return c.Next()
	}
}

// withCaller resolves the bearer token into a Caller. A missing token
// yields the anonymous caller; a present-but-invalid one is rejected,
// never silently downgraded.
func (s *Server) withCaller() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, err := s.auth.CallerFromToken(c.Get("Authorization"))
		if err != nil {
			s.logger.Warn("token verification failed", map[string]interface{}{
				"requestId": c.Locals("requestId"),
				"error":     err.Error(),
			})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}
		c.Locals(callerLocal, caller)
		return c.Next()
	}
}

func callerFrom(c *fiber.Ctx) *identity.Caller {
	if caller, ok := c.Locals(callerLocal).(*identity.Caller); ok {
		return caller
	}
	return identity.AnonymousCaller()
}
