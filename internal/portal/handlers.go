package portal

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/mediscanhq/mediscan-backend/internal/authctx"
	"github.com/mediscanhq/mediscan-backend/internal/dto"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// --- doctor portal ---

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	dash, err := h.svc.Dashboard()
	if err != nil {
		return serverError(c, "Could not load dashboard")
	}
	return c.JSON(fiber.Map{"data": dash})
}

func (h *Handler) ListPatients(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)

	patients, total, err := h.svc.Patients(c.Query("search"), page, pageSize)
	if err != nil {
		return serverError(c, "Could not load patients")
	}
	return c.JSON(fiber.Map{
		"data":        patients,
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
	})
}

func (h *Handler) GetPatient(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid patient ID"})
	}

	patient, err := h.svc.Patient(id)
	if errors.Is(err, ErrPatientNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Patient not found"})
	}
	if err != nil {
		return serverError(c, "Could not load patient")
	}
	return c.JSON(fiber.Map{"data": patient})
}

func (h *Handler) ListAppointments(c *fiber.Ctx) error {
	var err error
	var appts []Appointment
	if c.Query("scope") == "today" {
		appts, err = h.svc.TodayAppointments()
	} else {
		appts, err = h.svc.UpcomingAppointments()
	}
	if err != nil {
		return serverError(c, "Could not load appointments")
	}
	return c.JSON(fiber.Map{"data": appts})
}

// --- patient portal ---

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	userID, err := authctx.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	profile, err := h.svc.Profile(userID)
	if err != nil {
		return serverError(c, "Could not load medical profile")
	}
	return c.JSON(fiber.Map{"data": profile})
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := authctx.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: "Invalid request body"})
	}

	profile, err := h.svc.UpdateProfile(userID, req)
	if err != nil {
		return serverError(c, "Could not update medical profile")
	}
	return c.JSON(fiber.Map{"data": profile})
}

// --- admin portal ---

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)

	users, total, err := h.svc.Users(page, pageSize)
	if err != nil {
		return serverError(c, "Could not load users")
	}
	return c.JSON(fiber.Map{
		"data":        users,
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
	})
}

func (h *Handler) ListSystemLogs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 50)

	logs, total, err := h.svc.SystemLogs(c.Query("level"), page, pageSize)
	if err != nil {
		return serverError(c, "Could not load system logs")
	}
	return c.JSON(fiber.Map{
		"data":        logs,
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}

func serverError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: true, Message: msg})
}
