// Package authctx extracts the authenticated caller from the JWT the
// middleware parked on the request context.
package authctx

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrNoClaims = errors.New("authctx: no token claims on request")

func claims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoClaims
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrNoClaims
	}
	return mc, nil
}

// GetUserID returns the caller's user ID from the "sub" claim.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	mc, err := claims(c)
	if err != nil {
		return uuid.Nil, err
	}
	sub, _ := mc["sub"].(string)
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, errors.New("authctx: invalid subject claim")
	}
	return id, nil
}

// GetRole returns the caller's role claim, empty when absent.
func GetRole(c *fiber.Ctx) string {
	mc, err := claims(c)
	if err != nil {
		return ""
	}
	role, _ := mc["role"].(string)
	return role
}

// GetEmail returns the caller's email claim, empty when absent.
func GetEmail(c *fiber.Ctx) string {
	mc, err := claims(c)
	if err != nil {
		return ""
	}
	email, _ := mc["email"].(string)
	return email
}
