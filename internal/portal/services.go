package portal

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mediscanhq/mediscan-backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrPatientNotFound = errors.New("portal: patient not found")
	ErrProfileNotFound = errors.New("portal: medical profile not found")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Models() []interface{} {
	return []interface{}{&Patient{}, &Appointment{}, &MedicalProfile{}}
}

// --- doctor portal ---

// Patients lists the roster, optionally filtered by a name search.
func (s *Service) Patients(search string, page, pageSize int) ([]Patient, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := s.db.Model(&Patient{})
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var patients []Patient
	err := query.Order("last_visit DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&patients).Error
	if err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

func (s *Service) Patient(id uuid.UUID) (*Patient, error) {
	var patient Patient
	err := s.db.First(&patient, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

// TodayAppointments lists appointments scheduled for the current day.
func (s *Service) TodayAppointments() ([]Appointment, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.Add(24 * time.Hour)

	var appts []Appointment
	err := s.db.Where("date >= ? AND date < ?", start, end).
		Order("time ASC").
		Find(&appts).Error
	return appts, err
}

// UpcomingAppointments lists everything from today onward.
func (s *Service) UpcomingAppointments() ([]Appointment, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var appts []Appointment
	err := s.db.Where("date >= ?", start).
		Order("date ASC, time ASC").
		Find(&appts).Error
	return appts, err
}

// Dashboard assembles the doctor's landing view in one call.
func (s *Service) Dashboard() (*DoctorDashboard, error) {
	var total int64
	if err := s.db.Model(&Patient{}).Count(&total).Error; err != nil {
		return nil, err
	}

	today, err := s.TodayAppointments()
	if err != nil {
		return nil, err
	}

	var recent []Patient
	if err := s.db.Order("last_visit DESC").Limit(5).Find(&recent).Error; err != nil {
		return nil, err
	}

	return &DoctorDashboard{
		TotalPatients:     total,
		TodayAppointments: today,
		RecentPatients:    recent,
	}, nil
}

// --- patient portal ---

// Profile returns the user's medical profile, creating an empty one on
// first access.
func (s *Service) Profile(userID uuid.UUID) (*MedicalProfile, error) {
	var profile MedicalProfile
	err := s.db.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = MedicalProfile{UserID: userID}
		if err := s.db.Create(&profile).Error; err != nil {
			return nil, err
		}
		return &profile, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Service) UpdateProfile(userID uuid.UUID, req UpdateProfileRequest) (*MedicalProfile, error) {
	profile, err := s.Profile(userID)
	if err != nil {
		return nil, err
	}

	profile.Allergies = req.Allergies
	profile.PreviousConditions = req.PreviousConditions
	profile.CurrentMedications = req.CurrentMedications

	if err := s.db.Save(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// --- admin portal ---

func (s *Service) Users(page, pageSize int) ([]models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := s.db.Preload("DoctorProfile").
		Order("created_at ASC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SystemLogs pages through persisted log rows, optionally filtered by level.
func (s *Service) SystemLogs(level string, page, pageSize int) ([]models.SystemLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	query := s.db.Model(&models.SystemLog{})
	if level != "" {
		query = query.Where("level = ?", level)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.SystemLog
	err := query.Order("timestamp DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
