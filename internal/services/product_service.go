// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/clock"
	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type ProductService struct {
	db                  *gorm.DB
	clock               clock.Clock
	notificationService *NotificationService
}

type CreateProductRequest struct {
	Name              string     `json:"name" validate:"required,min=2,max=255"`
	Description       string     `json:"description" validate:"required,min=10"`
	CategoryID        *uuid.UUID `json:"category_id,omitempty"`
	Volume            string     `json:"volume,omitempty" validate:"omitempty,max=50"`
	Brand             string     `json:"brand,omitempty" validate:"omitempty,max=255"`
	ProductionCountry string     `json:"production_country,omitempty" validate:"omitempty,max=100"`
	Vintage           *int       `json:"vintage,omitempty" validate:"omitempty,min=1800,max=2200"`
	Ingredients       []string   `json:"ingredients,omitempty" validate:"omitempty,dive,max=255"`
	ImageURL          string     `json:"image_url,omitempty" validate:"omitempty,url"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,product_status"`
	// ExpectedStatus lets the caller pin the status it last saw.
	ExpectedStatus string `json:"expected_status,omitempty" validate:"omitempty,product_status"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	Status     *models.ProductStatus `json:"status,omitempty"`
	CategoryID *uuid.UUID            `json:"category_id,omitempty"`
	ProducerID *uuid.UUID            `json:"producer_id,omitempty"`
}

func NewProductService(db *gorm.DB, clk clock.Clock, notificationService *NotificationService) *ProductService {
	return &ProductService{
		db:                  db,
		clock:               clk,
		notificationService: notificationService,
	}
}

// CreateProduct stores a submission from an approved producer. The status is
// always PENDING regardless of the request.
func (s *ProductService) CreateProduct(ctx context.Context, actor Actor, req *CreateProductRequest) (*models.Product, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	var producer models.Account
	if err := s.db.WithContext(ctx).First(&producer, "id = ?", actor.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("producer %s: %w", actor.ID, ErrUnauthorized)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !producer.CanSubmitProducts() {
		return nil, fmt.Errorf("producer account is %s: %w", producer.AccountStatus, ErrForbidden)
	}

	if req.CategoryID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", *req.CategoryID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check category: %w", err)
		}
		if count == 0 {
			return nil, invalidField("category_id", "does not exist")
		}
	}

	product := &models.Product{
		ProducerID:        producer.ID,
		CategoryID:        req.CategoryID,
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		Volume:            req.Volume,
		Brand:             req.Brand,
		ProductionCountry: req.ProductionCountry,
		Vintage:           req.Vintage,
		Ingredients:       pq.StringArray(req.Ingredients),
		ImageURL:          req.ImageURL,
		Status:            models.ProductStatusPending,
		SubmittedAt:       s.clock.Now(),
	}

	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// GetProduct returns the product with its evaluation and certificate.
// Products owned by someone else are reported as not found.
func (s *ProductService) GetProduct(ctx context.Context, actor Actor, id uuid.UUID) (*models.Product, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var product models.Product
	err := s.db.WithContext(ctx).
		Preload("Producer").Preload("Category").Preload("Evaluation").Preload("Certificate").
		First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !canAccess(actor, product.ProducerID) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}

	return &product, nil
}

// SearchProducts lists products visible to actor. Producers only ever see
// their own products.
func (s *ProductService) SearchProducts(ctx context.Context, actor Actor, params ProductSearchParams) ([]models.Product, int64, error) {
	if !actor.Authenticated() {
		return nil, 0, ErrUnauthorized
	}

	query := s.db.WithContext(ctx).Model(&models.Product{})

	if !actor.IsAdmin() {
		query = query.Where("producer_id = ?", actor.ID)
	} else if params.ProducerID != nil {
		query = query.Where("producer_id = ?", *params.ProducerID)
	}

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	if params.CategoryID != nil {
		query = query.Where("category_id = ?", *params.CategoryID)
	}

	if params.Search != "" {
		pattern := utils.LikePattern(params.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(brand) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	allowedSortFields := []string{"submitted_at", "name", "status", "updated_at"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields, "submitted_at")
	query = utils.ApplyPagination(query, params.PaginationParams)

	var products []models.Product
	if err := query.Preload("Producer").Preload("Category").Preload("Certificate").Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to search products: %w", err)
	}

	return products, total, nil
}

// DeleteProduct removes a product with its evaluation, certificate and QR
// code in one transaction.
func (s *ProductService) DeleteProduct(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := loadProduct(tx, id)
		if err != nil {
			return err
		}
		if !canAccess(actor, product.ProducerID) {
			return fmt.Errorf("product %s: %w", id, ErrNotFound)
		}

		for _, model := range []interface{}{&models.Certificate{}, &models.Evaluation{}, &models.QRCode{}} {
			if err := tx.Where("product_id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete product dependents: %w", err)
			}
		}
		if err := tx.Delete(&models.Product{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}

		return recordAudit(tx, actor, "product.delete", "product", id,
			models.JSONB{"name": product.Name, "status": product.Status}, nil)
	})
}

// UpdateStatus applies an explicit admin transition: open review, reject or
// reset to pending.
func (s *ProductService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req *UpdateStatusRequest) (*models.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	next := models.ProductStatus(req.Status)
	var product *models.Product
	var notice *models.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		product, err = loadProduct(tx, id)
		if err != nil {
			return err
		}

		current := product.Status
		if req.ExpectedStatus != "" && models.ProductStatus(req.ExpectedStatus) != current {
			return fmt.Errorf("product is %s, expected %s: %w", current, req.ExpectedStatus, ErrConflict)
		}
		if !current.CanTransition(next) {
			return fmt.Errorf("cannot move product from %s to %s: %w", current, next, ErrConflict)
		}

		if err := transitionStatus(tx, id, current, next); err != nil {
			return err
		}
		product.Status = next

		if next == models.ProductStatusRejected {
			notice = newNotification(product.ProducerID, models.NotificationProductRejected,
				"Product submission not certified",
				fmt.Sprintf("Your product %q was not accepted for certification.", product.Name),
				"product", product.ID)
			if err := s.notificationService.Notify(tx, notice); err != nil {
				return err
			}
		}

		return recordAudit(tx, actor, "product.status", "product", id,
			models.JSONB{"status": current}, models.JSONB{"status": next})
	})
	if err != nil {
		return nil, err
	}

	if notice != nil {
		s.notificationService.Deliver(loadAccountQuietly(s.db.WithContext(ctx), product.ProducerID), notice)
	}

	return product, nil
}

func loadProduct(tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := tx.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}

// transitionStatus moves a product from one status to another only if it is
// still in from. A concurrent change surfaces as ErrConflict.
func transitionStatus(tx *gorm.DB, id uuid.UUID, from, to models.ProductStatus) error {
	result := tx.Model(&models.Product{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return fmt.Errorf("failed to update product status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("product %s is no longer %s: %w", id, from, ErrConflict)
	}
	return nil
}

func loadAccountQuietly(db *gorm.DB, id uuid.UUID) *models.Account {
	var account models.Account
	if err := db.First(&account, "id = ?", id).Error; err != nil {
		return nil
	}
	return &account
}
