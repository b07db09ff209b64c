// Package portal backs the role-specific dashboards: the doctor's patient
// roster and appointments, the patient's medical profile, and the admin
// views over users and system logs.
package portal

import (
	"time"

	"github.com/google/uuid"
	"github.com/mediscanhq/mediscan-backend/internal/detection"
	"gorm.io/gorm"
)

// Patient is one entry of the doctor's roster.
type Patient struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Age       int            `gorm:"not null" json:"age"`
	Gender    string         `gorm:"size:10" json:"gender"`
	LastVisit time.Time      `json:"last_visit"`
	Condition string         `gorm:"size:255" json:"condition"`
	Status    string         `gorm:"size:50" json:"status"`
	ImageURL  string         `gorm:"type:text" json:"image_url"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Patient) TableName() string {
	return "patients"
}

// Appointment is a scheduled consultation on the doctor's calendar.
type Appointment struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PatientID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"patient_id"`
	PatientName string         `gorm:"size:255;not null" json:"patient_name"`
	Date        time.Time      `gorm:"not null;index" json:"date"`
	Time        string         `gorm:"size:20" json:"time"`
	Reason      string         `gorm:"size:255" json:"reason"`
	Status      string         `gorm:"size:50;default:scheduled" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// MedicalProfile carries the patient-entered health background shown on
// the patient dashboard.
type MedicalProfile struct {
	ID                 uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID             uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Allergies          []string               `gorm:"type:jsonb;serializer:json" json:"allergies"`
	PreviousConditions []string               `gorm:"type:jsonb;serializer:json" json:"previous_conditions"`
	CurrentMedications []detection.Medication `gorm:"type:jsonb;serializer:json" json:"current_medications"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

func (MedicalProfile) TableName() string {
	return "medical_profiles"
}

// --- DTOs ---

type UpdateProfileRequest struct {
	Allergies          []string               `json:"allergies"`
	PreviousConditions []string               `json:"previous_conditions"`
	CurrentMedications []detection.Medication `json:"current_medications"`
}

type DoctorDashboard struct {
	TotalPatients     int64         `json:"total_patients"`
	TodayAppointments []Appointment `json:"today_appointments"`
	RecentPatients    []Patient     `json:"recent_patients"`
}
