// internal/services/account_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/clock"
	"github.com/javajoker/tastecert-backend/internal/config"
	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

// AccountService moderates producer accounts.
type AccountService struct {
	db                  *gorm.DB
	cfg                 *config.Config
	clock               clock.Clock
	notificationService *NotificationService
}

type AccountFilter struct {
	utils.PaginationParams
	Status *models.AccountStatus `json:"status,omitempty"`
}

type UpdateAccountStatusRequest struct {
	AccountStatus string `json:"account_status" validate:"required,oneof=APPROVED REJECTED"`
	Reason        string `json:"reason,omitempty" validate:"max=1000"`
}

type CloseAccountResult struct {
	AccountID     uuid.UUID `json:"account_id"`
	Products      int64     `json:"products"`
	Evaluations   int64     `json:"evaluations"`
	Certificates  int64     `json:"certificates"`
	QRCodes       int64     `json:"qr_codes"`
	Notifications int64     `json:"notifications"`
}

func NewAccountService(db *gorm.DB, cfg *config.Config, clk clock.Clock, notificationService *NotificationService) *AccountService {
	return &AccountService{
		db:                  db,
		cfg:                 cfg,
		clock:               clk,
		notificationService: notificationService,
	}
}

func (s *AccountService) ListProducers(ctx context.Context, actor Actor, filter AccountFilter) ([]models.Account, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.Account{}).Where("role = ?", models.RoleProducer)

	if filter.Status != nil {
		query = query.Where("account_status = ?", *filter.Status)
	}

	if filter.Search != "" {
		pattern := utils.LikePattern(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count producers: %w", err)
	}

	allowedSortFields := []string{"created_at", "name", "company", "account_status"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields, "created_at")
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var accounts []models.Account
	if err := query.Find(&accounts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list producers: %w", err)
	}

	return accounts, total, nil
}

// UpdateStatus approves or rejects a producer. Repeating the current status
// is a no-op.
func (s *AccountService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req *UpdateAccountStatusRequest) (*models.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	switch models.AccountStatus(req.AccountStatus) {
	case models.AccountStatusApproved:
		return s.Approve(ctx, actor, id)
	case models.AccountStatusRejected:
		return s.Reject(ctx, actor, id, req.Reason)
	default:
		return nil, invalidField("account_status", "must be APPROVED or REJECTED")
	}
}

func (s *AccountService) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*models.Account, error) {
	return s.moderate(ctx, actor, id, models.AccountStatusApproved, "")
}

func (s *AccountService) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*models.Account, error) {
	return s.moderate(ctx, actor, id, models.AccountStatusRejected, reason)
}

func (s *AccountService) moderate(ctx context.Context, actor Actor, id uuid.UUID, status models.AccountStatus, reason string) (*models.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var account *models.Account
	var notice *models.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = loadProducer(tx, id)
		if err != nil {
			return err
		}

		if account.AccountStatus == status {
			return nil
		}

		oldStatus := account.AccountStatus
		updates := map[string]interface{}{"account_status": status}
		if status == models.AccountStatusApproved && account.ApprovedAt == nil {
			now := s.clock.Now()
			updates["approved_at"] = now
			account.ApprovedAt = &now
		}

		if err := tx.Model(account).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update account status: %w", err)
		}
		account.AccountStatus = status

		if status == models.AccountStatusApproved {
			notice = newNotification(account.ID, models.NotificationAccountApproved,
				"Account approved", "Your producer account was approved. You can now submit products for evaluation.",
				"account", account.ID)
		} else {
			message := "Your producer account application was not approved."
			if reason != "" {
				message += " Reason: " + reason
			}
			notice = newNotification(account.ID, models.NotificationAccountRejected,
				"Account not approved", message, "account", account.ID)
		}
		if err := s.notificationService.Notify(tx, notice); err != nil {
			return err
		}

		return recordAudit(tx, actor, "account.status", "account", account.ID,
			models.JSONB{"account_status": oldStatus},
			models.JSONB{"account_status": status, "reason": reason})
	})
	if err != nil {
		return nil, err
	}

	if notice != nil {
		s.notificationService.Deliver(account, notice)
	}

	return account, nil
}

// CloseAccount permanently deletes a producer with everything it owns.
// confirmation must equal the configured confirmation word; otherwise nothing
// is touched. The cascade is one transaction.
func (s *AccountService) CloseAccount(ctx context.Context, actor Actor, id uuid.UUID, confirmation string) (*CloseAccountResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if confirmation != s.cfg.Certification.CloseAccountWord {
		return nil, fmt.Errorf("type %s to close this account: %w", s.cfg.Certification.CloseAccountWord, ErrConfirmationRequired)
	}

	result := &CloseAccountResult{AccountID: id}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := loadProducer(tx, id)
		if err != nil {
			return err
		}

		owned := tx.Model(&models.Product{}).Select("id").Where("producer_id = ?", id)

		steps := []struct {
			model interface{}
			count *int64
			query func() *gorm.DB
		}{
			{&models.Certificate{}, &result.Certificates, func() *gorm.DB { return tx.Where("product_id IN (?)", owned) }},
			{&models.Evaluation{}, &result.Evaluations, func() *gorm.DB { return tx.Where("product_id IN (?)", owned) }},
			{&models.QRCode{}, &result.QRCodes, func() *gorm.DB { return tx.Where("product_id IN (?)", owned) }},
			{&models.Product{}, &result.Products, func() *gorm.DB { return tx.Where("producer_id = ?", id) }},
			{&models.Notification{}, &result.Notifications, func() *gorm.DB { return tx.Where("account_id = ?", id) }},
		}
		for _, step := range steps {
			res := step.query().Delete(step.model)
			if res.Error != nil {
				return fmt.Errorf("failed to delete producer data: %w", res.Error)
			}
			*step.count = res.RowsAffected
		}

		if err := tx.Delete(&models.Account{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}

		return recordAudit(tx, actor, "account.close", "account", id,
			models.JSONB{"email": account.Email, "company": account.Company},
			models.JSONB{"products": result.Products, "certificates": result.Certificates})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"account_id":   id,
		"products":     result.Products,
		"certificates": result.Certificates,
	}).Info("Producer account closed")

	return result, nil
}

// loadProducer loads a producer account. Admin accounts are not moderated
// through this path and report as forbidden.
func loadProducer(tx *gorm.DB, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := tx.First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account.Role != models.RoleProducer {
		return nil, fmt.Errorf("account %s is not a producer: %w", id, ErrForbidden)
	}
	return &account, nil
}
