// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/clock"
	"github.com/javajoker/tastecert-backend/internal/config"
	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type AuthService struct {
	db    *gorm.DB
	cfg   *config.Config
	clock clock.Clock
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strong_password"`
	Company  string `json:"company" validate:"required,max=255"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Country  string `json:"country,omitempty" validate:"omitempty,max=100"`
	Address  string `json:"address,omitempty"`
	Website  string `json:"website,omitempty" validate:"omitempty,url"`
}

type AuthResponse struct {
	Account     *models.Account `json:"account"`
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"` // in seconds
}

func NewAuthService(db *gorm.DB, cfg *config.Config, clk clock.Clock) *AuthService {
	return &AuthService{
		db:    db,
		cfg:   cfg,
		clock: clk,
	}
}

// Register creates a producer account awaiting approval. No token is issued
// until the producer logs in.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.Account, error) {
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	email := req.Email

	// Check if account already exists
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("account with this email already exists: %w", ErrConflict)
	}

	account := &models.Account{
		Name:          strings.TrimSpace(req.Name),
		Email:         email,
		Role:          models.RoleProducer,
		Company:       strings.TrimSpace(req.Company),
		Phone:         req.Phone,
		Country:       req.Country,
		Address:       req.Address,
		Website:       req.Website,
		AccountStatus: models.AccountStatusPending,
	}

	if err := account.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("account with this email already exists: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	var account models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", req.Email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := account.CheckPassword(req.Password); err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
	}

	accessToken, err := utils.GenerateJWT(account.ID, account.Email, string(account.Role), s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	now := s.clock.Now()
	if err := s.db.WithContext(ctx).Model(&account).UpdateColumn("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	account.LastLoginAt = &now

	return &AuthResponse{
		Account:     &account,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.JWT.AccessTokenTTL * 3600, // Convert hours to seconds
	}, nil
}

func (s *AuthService) Me(ctx context.Context, actor Actor) (*models.Account, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, "id = ?", actor.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Token outlived its account
			return nil, fmt.Errorf("account %s: %w", actor.ID, ErrUnauthorized)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
