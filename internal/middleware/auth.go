package middleware

import (
	"github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/mediscanhq/mediscan-backend/internal/config"
	"github.com/mediscanhq/mediscan-backend/internal/dto"
)

// JWTProtected validates the Bearer token and parks the parsed token on
// c.Locals("user") for the handlers downstream.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Invalid or expired token",
			})
		},
	})
}
