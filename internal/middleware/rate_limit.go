package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/php369/urop-grading-api/internal/utils"
)

// RateLimit creates a per-grader rate limiter. Anonymous requests fall back
// to the client address so unauthenticated traffic cannot starve graders.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			if claims, ok := GraderClaimsFrom(c); ok && claims.ID != 0 {
				return fmt.Sprintf("%s:%d", identifier, claims.ID)
			}
			return fmt.Sprintf("%s:%s", identifier, c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many grading requests, slow down")
		},
	})
}
