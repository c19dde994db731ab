package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuslink/grievance-api/internal/models"
	"github.com/campuslink/grievance-api/pkg/config"
	appErrors "github.com/campuslink/grievance-api/pkg/errors"
)

type userRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type profileReader interface {
	StudentByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	AuthorityByUserID(ctx context.Context, userID string) (*models.AuthorityProfile, error)
}

// AuthService authenticates users and issues signed access tokens. Tokens
// embed the profile identifier so downstream handlers never touch the
// profile tables on the hot path.
type AuthService struct {
	users    userRepository
	profiles profileReader
	audit    auditWriter
	cfg      config.JWTConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(users userRepository, profiles profileReader, audit auditWriter, cfg config.JWTConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:    users,
		profiles: profiles,
		audit:    audit,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Login verifies credentials and returns a signed token with user info.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	info := models.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Role:     user.Role,
	}

	profileID := ""
	switch user.Role {
	case models.RoleStudent:
		profile, err := s.profiles.StudentByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile linked to this account")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student profile")
		}
		info.Student = profile
		profileID = profile.StudentID
	case models.RoleAuthority:
		profile, err := s.profiles.AuthorityByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "no authority profile linked to this account")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve authority profile")
		}
		info.Authority = profile
		profileID = profile.EmployeeID
	}

	issuedAt := s.now().UTC()
	token, err := s.generateAccessToken(user, profileID, issuedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, issuedAt); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.recordLogin(ctx, user, req)

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.cfg.Expiration.Seconds()),
		User:        info,
		IssuedAt:    issuedAt,
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User, profileID string, issuedAt time.Time) (string, error) {
	claims := models.JWTClaims{
		UserID:    user.ID,
		Role:      user.Role,
		Username:  user.Username,
		ProfileID: profileID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.cfg.Expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}

// Me resolves the full user info for the authenticated user.
func (s *AuthService) Me(ctx context.Context, claims *models.JWTClaims) (*models.UserInfo, error) {
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up user")
	}
	info := &models.UserInfo{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Role:     user.Role,
	}
	switch user.Role {
	case models.RoleStudent:
		if profile, err := s.profiles.StudentByUserID(ctx, user.ID); err == nil {
			info.Student = profile
		}
	case models.RoleAuthority:
		if profile, err := s.profiles.AuthorityByUserID(ctx, user.ID); err == nil {
			info.Authority = profile
		}
	}
	return info, nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) recordLogin(ctx context.Context, user *models.User, req models.LoginRequest) {
	if s.audit == nil {
		return
	}
	details, _ := json.Marshal(map[string]string{"username": user.Username})
	log := &models.AuditLog{
		UserID:    &user.ID,
		Action:    models.AuditActionLogin,
		Resource:  "session",
		Details:   details,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
	}
	if err := s.audit.Create(ctx, log); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", string(models.AuditActionLogin)), zap.Error(err))
	}
}
