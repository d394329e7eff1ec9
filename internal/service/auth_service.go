package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-cyclecount-ws/internal/model"
	"go-cyclecount-ws/internal/repository"
	"go-cyclecount-ws/pkg/jwt"
	"go-cyclecount-ws/pkg/logger"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	Authenticate(ctx context.Context, token string) (*model.User, error)
	ResetPassword(ctx context.Context, username, newPassword string) error
}

type LoginResult struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      model.UserResponse `json:"user"`
}

type authService struct {
	userRepo repository.UserRepository
	tokens   *jwt.Manager
	log      *logger.Logger
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, tokens *jwt.Manager, log *logger.Logger) AuthService {
	if log == nil {
		log = logger.Nop()
	}
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		log:      log,
		now:      time.Now,
	}
}

// Login checks credentials and rotates the token version, which signs out any other device.
func (s *authService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	version := uuid.NewString()
	now := s.now()
	if err := s.userRepo.RecordLogin(ctx, user.ID, version, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.TokenVersion = version
	user.LastLoginAt = &now

	token, expiresAt, err := s.tokens.Generate(jwt.Claims{
		UserID:       user.ID,
		Username:     user.Username,
		Name:         user.DisplayName(),
		RoleCode:     user.RoleCode(),
		Privileges:   user.PrivilegeCodes(),
		TokenVersion: version,
	})
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.log.Info(s.log.WithUserID(ctx, user.ID.String()), "user logged in")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user.ToResponse()}, nil
}

// Logout invalidates every outstanding token of the user.
func (s *authService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.userRepo.UpdateTokenVersion(ctx, userID, uuid.NewString())
}

// Authenticate validates the token and that it still matches the user's current session.
func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionRevoked
	}
	return user, nil
}

// ResetPassword sets a new password and revokes existing sessions.
func (s *authService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if len(newPassword) < 6 {
		return errors.New("new password must be at least 6 characters")
	}
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := user.SetPassword(newPassword); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return err
	}
	return s.userRepo.UpdateTokenVersion(ctx, user.ID, uuid.NewString())
}
