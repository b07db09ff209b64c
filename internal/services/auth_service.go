package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mediscanhq/mediscan-backend/internal/config"
	"github.com/mediscanhq/mediscan-backend/internal/models"
	"github.com/mediscanhq/mediscan-backend/internal/session"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = errors.New("user not found")
	ErrNoSession          = errors.New("no active session")
)

// AuthService authenticates the per-role demo accounts and manages the
// token pair plus the persisted session slot for each role.
type AuthService struct {
	db    *gorm.DB
	cfg   *config.Config
	store session.Store
	dir   session.Directory

	mu       sync.Mutex
	managers map[session.Role]*session.Manager
}

func NewAuthService(db *gorm.DB, cfg *config.Config, store session.Store) *AuthService {
	return &AuthService{
		db:       db,
		cfg:      cfg,
		store:    store,
		dir:      &dbDirectory{db: db},
		managers: make(map[session.Role]*session.Manager),
	}
}

// dbDirectory resolves the single account registered for each role.
type dbDirectory struct {
	db *gorm.DB
}

func (d *dbDirectory) Lookup(ctx context.Context, role session.Role) (session.Credential, error) {
	var user models.User
	err := d.db.WithContext(ctx).
		Preload("DoctorProfile").
		Where("role = ?", string(role)).
		Order("created_at ASC").
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session.Credential{}, session.ErrUnknownRole
	}
	if err != nil {
		return session.Credential{}, err
	}

	id := session.Identity{
		ID:    user.ID.String(),
		Name:  user.Name,
		Email: user.Email,
		Role:  role,
	}
	if user.DoctorProfile != nil {
		id.Doctor = &session.DoctorInfo{
			Specialization: user.DoctorProfile.Specialization,
			Location:       user.DoctorProfile.Location,
			Contact:        user.DoctorProfile.Contact,
		}
	}

	return session.Credential{
		Email:        user.Email,
		PasswordHash: user.Password,
		Identity:     id,
	}, nil
}

// managerFor returns the long-lived session manager for a role slot,
// creating and restoring it on first use.
func (s *AuthService) managerFor(ctx context.Context, role session.Role) *session.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	mgr, ok := s.managers[role]
	if !ok {
		mgr = session.NewManager(s.store, s.dir, session.SlotKey(role), s.cfg.LoginDelay)
		_ = mgr.Restore(ctx)
		s.managers[role] = mgr
	}
	return mgr
}

// Login runs the full sign-in: role slot, simulated latency, credential
// check, slot persist, then token issuance.
func (s *AuthService) Login(ctx context.Context, email, password, roleStr string) (*session.Identity, string, string, error) {
	role, ok := session.ParseRole(roleStr)
	if !ok {
		return nil, "", "", ErrInvalidCredentials
	}

	mgr := s.managerFor(ctx, role)
	id, err := mgr.Login(ctx, email, password, role)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrEmptyField), errors.Is(err, session.ErrLoginInProgress):
			return nil, "", "", err
		default:
			return nil, "", "", ErrInvalidCredentials
		}
	}

	access, refresh, err := s.generateTokenPair(id)
	if err != nil {
		return nil, "", "", err
	}
	return id, access, refresh, nil
}

// RestoreSession reports the identity persisted in the role's slot, if any.
func (s *AuthService) RestoreSession(ctx context.Context, roleStr string) (*session.Identity, error) {
	role, ok := session.ParseRole(roleStr)
	if !ok {
		return nil, ErrNoSession
	}
	mgr := s.managerFor(ctx, role)
	if !mgr.Authenticated() {
		return nil, ErrNoSession
	}
	return mgr.Current(), nil
}

// Logout revokes the refresh token and clears the role's session slot.
func (s *AuthService) Logout(ctx context.Context, roleStr, refreshToken string) {
	if refreshToken != "" {
		hash := hashToken(refreshToken)
		s.db.Model(&models.RefreshToken{}).
			Where("token_hash = ?", hash).
			Update("revoked", true)
	}
	if role, ok := session.ParseRole(roleStr); ok {
		s.managerFor(ctx, role).Logout(ctx)
	}
}

// Refresh rotates a valid refresh token and issues a fresh pair.
func (s *AuthService) Refresh(refreshToken string) (*session.Identity, string, string, error) {
	hash := hashToken(refreshToken)

	var stored models.RefreshToken
	err := s.db.Preload("User").Preload("User.DoctorProfile").
		Where("token_hash = ? AND revoked = false AND expires_at > ?", hash, time.Now()).
		First(&stored).Error
	if err != nil {
		return nil, "", "", ErrInvalidToken
	}

	s.db.Model(&stored).Update("revoked", true)

	role, ok := session.ParseRole(stored.User.Role)
	if !ok {
		return nil, "", "", ErrInvalidToken
	}
	id := session.Identity{
		ID:    stored.User.ID.String(),
		Name:  stored.User.Name,
		Email: stored.User.Email,
		Role:  role,
	}
	if stored.User.DoctorProfile != nil {
		id.Doctor = &session.DoctorInfo{
			Specialization: stored.User.DoctorProfile.Specialization,
			Location:       stored.User.DoctorProfile.Location,
			Contact:        stored.User.DoctorProfile.Contact,
		}
	}

	access, refresh, err := s.generateTokenPair(&id)
	if err != nil {
		return nil, "", "", err
	}
	return &id, access, refresh, nil
}

// GetUser loads an account by ID for the /auth/me endpoint.
func (s *AuthService) GetUser(userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.Preload("DoctorProfile").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) generateTokenPair(id *session.Identity) (string, string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   id.ID,
		"email": id.Email,
		"role":  string(id.Role),
		"name":  id.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", "", fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.generateRefreshToken(id.ID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *AuthService) generateRefreshToken(userID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(raw)

	uid, err := uuid.Parse(userID)
	if err != nil {
		return "", err
	}
	stored := models.RefreshToken{
		UserID:    uid,
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}
	if err := s.db.Create(&stored).Error; err != nil {
		return "", err
	}
	return token, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
