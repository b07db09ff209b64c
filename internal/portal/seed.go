package portal

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mediscanhq/mediscan-backend/internal/detection"
	"github.com/mediscanhq/mediscan-backend/internal/models"
	"github.com/mediscanhq/mediscan-backend/internal/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDemo provisions the three demo accounts plus mock roster, appointment
// and history data. Idempotent: a second run is a no-op.
func SeedDemo(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	users, err := seedUsers(db)
	if err != nil {
		return err
	}
	patients, err := seedPatients(db)
	if err != nil {
		return err
	}
	if err := seedAppointments(db, patients); err != nil {
		return err
	}
	if err := seedHistory(db, users[models.RolePatient]); err != nil {
		return err
	}

	slog.Info("seeded demo data", "users", len(users), "patients", len(patients))
	return nil
}

func seedUsers(db *gorm.DB) (map[string]uuid.UUID, error) {
	type account struct {
		name     string
		email    string
		password string
		role     string
		doctor   *models.DoctorProfile
	}

	accounts := []account{
		{name: "Admin User", email: "admin@healthcare.com", password: "admin123", role: models.RoleAdmin},
		{name: "Dr. Sharma", email: "doctor@healthcare.com", password: "doctor123", role: models.RoleDoctor,
			doctor: &models.DoctorProfile{
				Specialization: "Dermatology",
				Location:       "Vadodara, Gujarat",
				Contact:        "+91-9876543210",
			}},
		{name: "Rahul Patel", email: "patient@healthcare.com", password: "patient123", role: models.RolePatient},
	}

	ids := make(map[string]uuid.UUID, len(accounts))
	for _, a := range accounts {
		hash, err := session.HashPassword(a.password, bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", a.email, err)
		}
		user := models.User{
			ID:       uuid.New(),
			Name:     a.name,
			Email:    a.email,
			Password: hash,
			Role:     a.role,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user %s: %w", a.email, err)
		}
		if a.doctor != nil {
			a.doctor.UserID = user.ID
			if err := db.Create(a.doctor).Error; err != nil {
				return nil, fmt.Errorf("create doctor profile: %w", err)
			}
		}
		ids[a.role] = user.ID
	}
	return ids, nil
}

func seedPatients(db *gorm.DB) ([]Patient, error) {
	now := time.Now()
	patients := []Patient{
		{ID: uuid.New(), Name: "Rahul Patel", Age: 32, Gender: "male", LastVisit: now.AddDate(0, 0, -3), Condition: "Suspicious melanoma", Status: "under_treatment"},
		{ID: uuid.New(), Name: "Priya Sharma", Age: 28, Gender: "female", LastVisit: now.AddDate(0, 0, -7), Condition: "Eczema", Status: "recovering"},
		{ID: uuid.New(), Name: "Sanjay Singh", Age: 45, Gender: "male", LastVisit: now.AddDate(0, 0, -14), Condition: "Basal cell carcinoma", Status: "under_treatment"},
		{ID: uuid.New(), Name: "Meera Kapoor", Age: 36, Gender: "female", LastVisit: now.AddDate(0, 0, -21), Condition: "Psoriasis", Status: "stable"},
		{ID: uuid.New(), Name: "Arjun Reddy", Age: 52, Gender: "male", LastVisit: now.AddDate(0, -1, 0), Condition: "Melanoma", Status: "referred"},
	}
	if err := db.Create(&patients).Error; err != nil {
		return nil, fmt.Errorf("create patients: %w", err)
	}
	return patients, nil
}

func seedAppointments(db *gorm.DB, patients []Patient) error {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	appointments := []Appointment{
		{ID: uuid.New(), PatientID: patients[0].ID, PatientName: patients[0].Name, Date: today, Time: "10:00 AM", Reason: "Follow-up on melanoma treatment", Status: "scheduled"},
		{ID: uuid.New(), PatientID: patients[1].ID, PatientName: patients[1].Name, Date: today, Time: "11:30 AM", Reason: "Eczema flare-up review", Status: "scheduled"},
		{ID: uuid.New(), PatientID: patients[2].ID, PatientName: patients[2].Name, Date: today.AddDate(0, 0, 1), Time: "09:30 AM", Reason: "Post-surgery checkup", Status: "scheduled"},
		{ID: uuid.New(), PatientID: patients[3].ID, PatientName: patients[3].Name, Date: today.AddDate(0, 0, 3), Time: "02:00 PM", Reason: "Psoriasis medication review", Status: "scheduled"},
	}
	if err := db.Create(&appointments).Error; err != nil {
		return fmt.Errorf("create appointments: %w", err)
	}
	return nil
}

func seedHistory(db *gorm.DB, patientUserID uuid.UUID) error {
	records := []detection.Record{
		{
			UserID:        patientUserID,
			DetectionType: string(detection.TypeSkin),
			ImageURL:      "seed_sample",
			Confidence:    0.85,
			Diagnosis:     "Suspicious melanoma",
			Recommendations: []string{
				"Consult with a dermatologist immediately",
				"Further biopsy recommended to confirm diagnosis",
			},
			AnalyzedAt: time.Now().AddDate(0, 0, -10),
		},
		{
			UserID:        patientUserID,
			DetectionType: string(detection.TypeDental),
			ImageURL:      "seed_sample",
			Confidence:    0.78,
			Diagnosis:     "Periodontitis",
			Recommendations: []string{
				"Schedule dental appointment for professional cleaning",
			},
			AnalyzedAt: time.Now().AddDate(0, -2, 0),
		},
	}
	if err := db.Create(&records).Error; err != nil {
		return fmt.Errorf("create detection history: %w", err)
	}
	return nil
}
