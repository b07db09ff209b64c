package services

import (
	"errors"
	"strings"

	"github.com/mediscanhq/mediscan-backend/internal/models"
	"gorm.io/gorm"
)

var ErrMissingContactFields = errors.New("name, email and message are required")

type ContactService struct {
	db *gorm.DB
}

func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{db: db}
}

func (s *ContactService) Create(name, email, subject, message string) (*models.ContactMessage, error) {
	if strings.TrimSpace(name) == "" ||
		strings.TrimSpace(email) == "" ||
		strings.TrimSpace(message) == "" {
		return nil, ErrMissingContactFields
	}

	msg := &models.ContactMessage{
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Subject: strings.TrimSpace(subject),
		Message: message,
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *ContactService) List(page, pageSize int) ([]models.ContactMessage, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var messages []models.ContactMessage
	var total int64

	if err := s.db.Model(&models.ContactMessage{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := s.db.Order("created_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}
