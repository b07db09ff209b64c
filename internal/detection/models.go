package detection

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record is one completed detection persisted to the user's history.
// The raw image is not stored; ImageURL keeps the upload marker or an
// external URL, matching what the history screens display.
type Record struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	DetectionType   string         `gorm:"size:10;not null;index" json:"detection_type"`
	ImageURL        string         `gorm:"type:text" json:"image_url"`
	Confidence      float64        `gorm:"not null" json:"confidence"`
	Diagnosis       string         `gorm:"size:255;not null" json:"diagnosis"`
	Recommendations []string       `gorm:"type:jsonb;serializer:json" json:"recommendations"`
	Medications     []Medication   `gorm:"type:jsonb;serializer:json" json:"medications"`
	NearbyDoctors   []NearbyDoctor `gorm:"type:jsonb;serializer:json" json:"nearby_doctors"`
	AnalyzedAt      time.Time      `gorm:"not null" json:"analyzed_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Record) TableName() string {
	return "detection_records"
}

// --- DTOs ---

type SessionResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Phase     string    `json:"phase"`
	Type      string    `json:"type,omitempty"`
	HasImage  bool      `json:"has_image"`
	Result    *Result   `json:"result,omitempty"`
}

type SelectTypeRequest struct {
	Type string `json:"type"`
}

type UploadResponse struct {
	SessionID   uuid.UUID `json:"session_id"`
	Phase       string    `json:"phase"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
}

type HistoryResponse struct {
	Data       []Record `json:"data"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalCount int64    `json:"total_count"`
}

type StatsResponse struct {
	TypeDistribution  map[string]int `json:"type_distribution"`
	TotalDetections   int64          `json:"total_detections"`
	AverageConfidence float64        `json:"average_confidence"`
}
