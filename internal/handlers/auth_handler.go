package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mediscanhq/mediscan-backend/internal/authctx"
	"github.com/mediscanhq/mediscan-backend/internal/dto"
	"github.com/mediscanhq/mediscan-backend/internal/services"
	"github.com/mediscanhq/mediscan-backend/internal/session"
)

type AuthHandler struct {
	svc *services.AuthService
}

func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login authenticates the demo account for the claimed role and issues a
// token pair. Credential failures never reveal which field was wrong.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}
	if _, ok := session.ParseRole(req.Role); !ok {
		return badRequest(c, "Unknown role: "+req.Role)
	}

	id, access, refresh, err := h.svc.Login(c.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrLoginInProgress):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: true, Message: "Login already in progress"})
		case errors.Is(err, services.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Invalid credentials"})
		default:
			return serverError(c, "Login failed")
		}
	}

	return c.JSON(dto.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         *id,
	})
}

// Session reports the identity restored from the caller's role slot.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	role := authctx.GetRole(c)
	id, err := h.svc.RestoreSession(c.Context(), role)
	if errors.Is(err, services.ErrNoSession) {
		return c.JSON(dto.SessionResponse{Authenticated: false})
	}
	if err != nil {
		return serverError(c, "Could not restore session")
	}
	return c.JSON(dto.SessionResponse{Authenticated: true, User: id})
}

// Me returns the caller's account from the database.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := authctx.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
	}

	user, err := h.svc.GetUser(userID)
	if errors.Is(err, services.ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "User not found"})
	}
	if err != nil {
		return serverError(c, "Could not load user")
	}
	return c.JSON(fiber.Map{"data": user})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return badRequest(c, "Refresh token is required")
	}

	id, access, refresh, err := h.svc.Refresh(req.RefreshToken)
	if errors.Is(err, services.ErrInvalidToken) {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Invalid or expired refresh token"})
	}
	if err != nil {
		return serverError(c, "Token refresh failed")
	}

	return c.JSON(dto.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         *id,
	})
}

// Logout revokes the refresh token and clears the role's session slot.
// Always succeeds from the caller's perspective.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	_ = c.BodyParser(&req)

	h.svc.Logout(c.Context(), authctx.GetRole(c), req.RefreshToken)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

func serverError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: true, Message: msg})
}
