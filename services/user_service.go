package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/geekyair/restaurant-backoffice/models"
	"github.com/geekyair/restaurant-backoffice/repository"
	"github.com/geekyair/restaurant-backoffice/sender"
)

// UserCreateRequest carries the POST body for a new staff user.
type UserCreateRequest struct {
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8"`
	Role     models.Role `json:"role" binding:"required"`
}

// UserService handles staff management.
type UserService struct {
	store   repository.Store
	email   sender.EmailSender
	logger  *zap.Logger
	baseURL string
}

func NewUserService(store repository.Store, email sender.EmailSender, logger *zap.Logger, baseURL string) *UserService {
	return &UserService{store: store, email: email, logger: logger, baseURL: baseURL}
}

// AddUser creates a Cashier or Waiter account. Only Super Admins and
// Managers may add users, and only those two roles can be created.
func (s *UserService) AddUser(ctx context.Context, req UserCreateRequest, actor *models.User) (*models.User, *ServiceError) {
	if !actor.Role.IsAdmin() {
		return nil, forbidden("Only Super Admins or Managers can add users")
	}
	if req.Role != models.RoleCashier && req.Role != models.RoleWaiter {
		return nil, badRequest("Invalid role. Can only add Cashier or Waiter")
	}

	if _, err := s.store.Users().FindByEmail(ctx, req.Email); err == nil {
		return nil, conflict("Email already taken")
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("Failed to check email", zap.Error(err))
		return nil, internal("Failed to create user")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Failed to hash password", zap.Error(err))
		return nil, internal("Failed to create user")
	}

	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		s.logger.Error("Failed to generate verification token", zap.Error(err))
		return nil, internal("Failed to create user")
	}

	user := &models.User{
		Name:              req.Name,
		Email:             req.Email,
		Password:          string(hashed),
		Role:              req.Role,
		VerificationToken: hex.EncodeToString(token),
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("Email already taken")
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, internal("Failed to create user")
	}

	if s.email != nil {
		verificationURL := fmt.Sprintf("%s/api/auth/verify-email?token=%s", s.baseURL, user.VerificationToken)
		subject := "Welcome to GeekyAir - Verify Your Email"
		body := fmt.Sprintf("Welcome! Please verify your email by clicking the following link: %s", verificationURL)
		if _, err := s.email.SendEmail(ctx, []string{user.Email}, subject, body); err != nil {
			s.logger.Warn("Verification email failed", zap.Error(err), zap.String("email", user.Email))
		}
	}

	return user, nil
}

// VerifyEmail marks the account matching the token as verified and clears
// the token so it cannot be reused.
func (s *UserService) VerifyEmail(ctx context.Context, token string) *ServiceError {
	if token == "" {
		return badRequest("Verification token is required")
	}

	user, err := s.store.Users().FindByVerificationToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return badRequest("Invalid or expired verification token")
	}
	if err != nil {
		s.logger.Error("Failed to look up verification token", zap.Error(err))
		return internal("Failed to verify email")
	}

	user.EmailVerified = true
	user.VerificationToken = ""
	if err := s.store.Users().Save(ctx, user); err != nil {
		s.logger.Error("Failed to mark email verified", zap.Error(err))
		return internal("Failed to verify email")
	}
	return nil
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, *ServiceError) {
	user, err := s.store.Users().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("User not found")
	}
	if err != nil {
		s.logger.Error("Failed to fetch user", zap.Error(err))
		return nil, internal("Failed to fetch user")
	}
	return user, nil
}
