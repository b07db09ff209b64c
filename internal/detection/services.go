package detection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mediscanhq/mediscan-backend/internal/config"
	"gorm.io/gorm"
)

var (
	ErrSessionNotFound = errors.New("detection: session not found")
	ErrRecordNotFound  = errors.New("detection: record not found")
)

type sessionEntry struct {
	workflow   *Workflow
	userID     uuid.UUID
	lastActive time.Time
}

// Service owns the live detection sessions and the persisted history.
// Sessions are ephemeral and in-memory; a workflow dies with the server or
// after the inactivity TTL, only completed results are persisted.
type Service struct {
	db       *gorm.DB
	cfg      *config.Config
	analyzer Analyzer

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionEntry
}

func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:       db,
		cfg:      cfg,
		analyzer: &CannedAnalyzer{Delay: cfg.AnalysisDelay},
		sessions: make(map[uuid.UUID]*sessionEntry),
	}
}

// Models returns the GORM models this package migrates.
func (s *Service) Models() []interface{} {
	return []interface{}{&Record{}}
}

// StartSession creates a fresh workflow owned by the given user.
func (s *Service) StartSession(userID uuid.UUID) uuid.UUID {
	id := uuid.New()
	s.mu.Lock()
	s.sessions[id] = &sessionEntry{
		workflow:   NewWorkflow(s.analyzer, s.cfg.MaxImageBytes),
		userID:     userID,
		lastActive: time.Now(),
	}
	s.mu.Unlock()
	return id
}

// Session returns the workflow for a session the user owns.
func (s *Service) Session(sessionID, userID uuid.UUID) (*Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok || entry.userID != userID {
		return nil, ErrSessionNotFound
	}
	entry.lastActive = time.Now()
	return entry.workflow, nil
}

// EndSession discards a live workflow.
func (s *Service) EndSession(sessionID, userID uuid.UUID) {
	s.mu.Lock()
	if entry, ok := s.sessions[sessionID]; ok && entry.userID == userID {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
}

// Analyze runs the workflow's analysis and, on success, hands the result
// off to the owner's history.
func (s *Service) Analyze(ctx context.Context, sessionID, userID uuid.UUID) (*Record, error) {
	wf, err := s.Session(sessionID, userID)
	if err != nil {
		return nil, err
	}

	res, err := wf.Analyze(ctx)
	if err != nil {
		return nil, err
	}

	record := &Record{
		UserID:          userID,
		DetectionType:   string(res.DetectionType),
		ImageURL:        "base64_upload",
		Confidence:      res.Confidence,
		Diagnosis:       res.Diagnosis,
		Recommendations: res.Recommendations,
		Medications:     res.Medications,
		NearbyDoctors:   res.NearbyDoctors,
		AnalyzedAt:      time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		// The analysis itself succeeded; the caller still gets the
		// result even if history is temporarily unavailable.
		slog.Error("failed to persist detection record", "error", err, "user_id", userID.String())
		record.ID = uuid.Nil
	}

	return record, nil
}

// History lists the user's persisted detections, newest first.
func (s *Service) History(userID uuid.UUID, page, pageSize int) ([]Record, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var records []Record
	var total int64

	if err := s.db.Model(&Record{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := s.db.Where("user_id = ?", userID).
		Order("analyzed_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// GetRecord fetches one history entry the user owns.
func (s *Service) GetRecord(userID, id uuid.UUID) (*Record, error) {
	var record Record
	err := s.db.Where("user_id = ? AND id = ?", userID, id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Stats aggregates the user's history for the portal dashboards.
func (s *Service) Stats(userID uuid.UUID) (*StatsResponse, error) {
	var records []Record
	if err := s.db.Where("user_id = ?", userID).Find(&records).Error; err != nil {
		return nil, err
	}

	stats := &StatsResponse{TypeDistribution: make(map[string]int)}
	if len(records) == 0 {
		return stats, nil
	}

	var totalConfidence float64
	for _, r := range records {
		stats.TypeDistribution[r.DetectionType]++
		totalConfidence += r.Confidence
	}
	stats.TotalDetections = int64(len(records))
	stats.AverageConfidence = totalConfidence / float64(len(records))
	return stats, nil
}

// StartJanitor sweeps idle sessions until done is closed.
func (s *Service) StartJanitor(done chan struct{}) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.expireIdle()
			case <-done:
				return
			}
		}
	}()
}

func (s *Service) expireIdle() {
	ttl := s.cfg.DetectionSessionTTL
	if ttl <= 0 {
		return
	}
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	var expired int
	for id, entry := range s.sessions {
		if entry.lastActive.Before(cutoff) {
			delete(s.sessions, id)
			expired++
		}
	}
	s.mu.Unlock()

	if expired > 0 {
		slog.Info("expired idle detection sessions", "count", expired)
	}
}
