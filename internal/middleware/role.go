package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mediscanhq/mediscan-backend/internal/authctx"
	"github.com/mediscanhq/mediscan-backend/internal/config"
	"github.com/mediscanhq/mediscan-backend/internal/dto"
	"github.com/mediscanhq/mediscan-backend/internal/models"
	"gorm.io/gorm"
)

// RoleRequired allows the request through only when the token's role
// claim matches one of the given roles. Runs after JWTProtected.
func RoleRequired(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := authctx.GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Missing role claim",
			})
		}
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Insufficient permissions",
		})
	}
}

// AdminRequired grants access via the static admin token header, the
// configured admin email allowlist, or an admin role on the account.
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	allowlist := parseCSV(cfg.AdminEmails)

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" && c.Get("X-Admin-Token") == cfg.AdminToken {
			return c.Next()
		}

		if authctx.GetRole(c) == models.RoleAdmin {
			return c.Next()
		}

		email := authctx.GetEmail(c)
		if email != "" && contains(allowlist, strings.ToLower(email)) {
			return c.Next()
		}

		// Role claims can go stale; fall back to the account record.
		if userID, err := authctx.GetUserID(c); err == nil {
			var user models.User
			if db.Select("role").First(&user, "id = ?", userID).Error == nil &&
				user.Role == models.RoleAdmin {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Admin access required",
		})
	}
}

func parseCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
