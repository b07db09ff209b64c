package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// ValidRole reports whether s names one of the three account roles.
func ValidRole(s string) bool {
	return s == RoleAdmin || s == RoleDoctor || s == RolePatient
}

// User is an account in one of the three role slots. The role is fixed at
// creation; re-authentication replaces the whole identity, never the role.
type User struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string         `gorm:"size:120;not null" json:"name"`
	Email         string         `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password      string         `gorm:"not null" json:"-"`
	Role          string         `gorm:"size:20;not null;index" json:"role"`
	DoctorProfile *DoctorProfile `gorm:"foreignKey:UserID" json:"doctor_profile,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// DoctorProfile holds the doctor-only fields. Keeping them in their own table
// means a patient or admin row simply has no profile, rather than a struct
// full of empty optionals.
type DoctorProfile struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	Specialization string    `gorm:"size:120" json:"specialization"`
	Location       string    `gorm:"size:255" json:"location"`
	Contact        string    `gorm:"size:40" json:"contact"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

func (DoctorProfile) TableName() string {
	return "doctor_profiles"
}
