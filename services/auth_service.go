package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/geekyair/restaurant-backoffice/models"
	"github.com/geekyair/restaurant-backoffice/repository"
)

// LoginRequest carries the POST body for a login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is the login payload: the user and a bearer token.
type LoginResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// AuthClaims is the JWT payload. Subject holds the user ID.
type AuthClaims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies bearer tokens.
type AuthService struct {
	store  repository.Store
	logger *zap.Logger
	secret []byte
	ttl    time.Duration
}

func NewAuthService(store repository.Store, logger *zap.Logger, secret string, ttl time.Duration) *AuthService {
	return &AuthService{store: store, logger: logger, secret: []byte(secret), ttl: ttl}
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, *ServiceError) {
	user, err := s.store.Users().FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, unauthorized("Incorrect email or password")
	}
	if err != nil {
		s.logger.Error("Failed to load user for login", zap.Error(err))
		return nil, internal("Login failed")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, unauthorized("Incorrect email or password")
	}
	if !user.EmailVerified {
		return nil, unauthorized("Email not verified")
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err))
		return nil, internal("Login failed")
	}

	return &LoginResponse{User: user, Token: token}, nil
}

// GenerateToken signs a JWT for the user.
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := AuthClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken verifies a bearer token and returns the authenticated user.
func (s *AuthService) ParseToken(ctx context.Context, tokenString string) (*models.User, *ServiceError) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, unauthorized("Token expired")
		}
		return nil, unauthorized("Invalid token")
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, unauthorized("Invalid token")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, unauthorized("Invalid token")
	}

	user, err2 := s.store.Users().FindByID(ctx, uint(id))
	if errors.Is(err2, repository.ErrNotFound) {
		return nil, unauthorized("User not found")
	}
	if err2 != nil {
		s.logger.Error("Failed to load user for token", zap.Error(err2))
		return nil, internal("Authentication failed")
	}
	return user, nil
}
