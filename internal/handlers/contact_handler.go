package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/mediscanhq/mediscan-backend/internal/dto"
	"github.com/mediscanhq/mediscan-backend/internal/services"
)

type ContactHandler struct {
	svc *services.ContactService
}

func NewContactHandler(svc *services.ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

// Submit stores a contact-form message. Public endpoint, rate limited at
// the router.
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var req dto.ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := h.svc.Create(req.Name, req.Email, req.Subject, req.Message)
	if errors.Is(err, services.ErrMissingContactFields) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		return serverError(c, "Could not save message")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": msg})
}

// List returns submitted messages for the admin dashboard.
func (h *ContactHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)

	messages, total, err := h.svc.List(page, pageSize)
	if err != nil {
		return serverError(c, "Could not load messages")
	}
	return c.JSON(fiber.Map{
		"data":        messages,
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
	})
}
