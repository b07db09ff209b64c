package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/mediscanhq/mediscan-backend/internal/dto"
	"github.com/mediscanhq/mediscan-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SettingsHandler exposes the admin-managed configuration keys.
type SettingsHandler struct {
	db *gorm.DB
}

func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// SeedDefaults inserts the baseline keys if they do not exist yet.
func (h *SettingsHandler) SeedDefaults() error {
	defaults := map[string]interface{}{
		"maintenance_mode":  false,
		"detection_enabled": true,
		"max_upload_mb":     4,
		"contact_email":     "support@mediscan.example",
	}
	for key, value := range defaults {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		var existing models.Setting
		err = h.db.Where("key = ?", key).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := h.db.Create(&models.Setting{Key: key, Value: raw}).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *SettingsHandler) List(c *fiber.Ctx) error {
	var settings []models.Setting
	if err := h.db.Order("key ASC").Find(&settings).Error; err != nil {
		return serverError(c, "Could not load settings")
	}
	return c.JSON(fiber.Map{"data": settings})
}

func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	var setting models.Setting
	err := h.db.Where("key = ?", c.Params("key")).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Setting not found"})
	}
	if err != nil {
		return serverError(c, "Could not load setting")
	}
	return c.JSON(fiber.Map{"data": setting})
}

// Put creates or replaces the value of one key. The body is stored as-is
// as JSON.
func (h *SettingsHandler) Put(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return badRequest(c, "Setting key is required")
	}
	if !json.Valid(c.Body()) {
		return badRequest(c, "Value must be valid JSON")
	}
	value := datatypes.JSON(c.Body())

	var setting models.Setting
	err := h.db.Where("key = ?", key).First(&setting).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		setting = models.Setting{Key: key, Value: value}
		if err := h.db.Create(&setting).Error; err != nil {
			return serverError(c, "Could not create setting")
		}
	case err != nil:
		return serverError(c, "Could not load setting")
	default:
		setting.Value = value
		if err := h.db.Save(&setting).Error; err != nil {
			return serverError(c, "Could not update setting")
		}
	}
	return c.JSON(fiber.Map{"data": setting})
}

func (h *SettingsHandler) Delete(c *fiber.Ctx) error {
	result := h.db.Where("key = ?", c.Params("key")).Delete(&models.Setting{})
	if result.Error != nil {
		return serverError(c, "Could not delete setting")
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: true, Message: "Setting not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
