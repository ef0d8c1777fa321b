package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/php369/urop-grading-api/internal/utils"
)

// Role vocabulary of the grading API.
const (
	// RoleGrader is a teaching assistant scoring submissions.
	RoleGrader = "grader"
	// RoleFaculty owns assessments and can grade them.
	RoleFaculty = "faculty"
	// RoleAdmin additionally manages rubrics and reads the audit trail.
	RoleAdmin = "admin"
)

// GradingRoles returns every role allowed on the grading surface.
func GradingRoles() []string {
	return []string{RoleGrader, RoleFaculty, RoleAdmin}
}

// RequireRole guards a route group: the bound grader identity must carry one
// of the allowed roles. Requests without a bound identity are rejected.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		claims, ok := GraderClaimsFrom(c)
		if !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(claims.Role))]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}

		return c.Next()
	}
}
