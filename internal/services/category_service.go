// internal/services/category_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type CategoryService struct {
	db *gorm.DB
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Slug        string `json:"slug,omitempty" validate:"omitempty,max=100"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty" validate:"omitempty,url"`
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{db: db}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) Create(ctx context.Context, actor Actor, req *CategoryRequest) (*models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	category := &models.Category{
		Name:        strings.TrimSpace(req.Name),
		Slug:        slugify(req.Slug, req.Name),
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(category).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("category slug %q already exists: %w", category.Slug, ErrConflict)
			}
			return fmt.Errorf("failed to create category: %w", err)
		}
		return recordAudit(tx, actor, "category.create", "category", category.ID, nil, models.JSONB{"name": category.Name, "slug": category.Slug})
	})
	if err != nil {
		return nil, err
	}

	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, actor Actor, id uuid.UUID, req *CategoryRequest) (*models.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	var category models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("category %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to load category: %w", err)
		}

		old := models.JSONB{"name": category.Name, "slug": category.Slug}
		category.Name = strings.TrimSpace(req.Name)
		category.Slug = slugify(req.Slug, req.Name)
		category.Description = req.Description
		category.ImageURL = req.ImageURL

		if err := tx.Save(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("category slug %q already exists: %w", category.Slug, ErrConflict)
			}
			return fmt.Errorf("failed to update category: %w", err)
		}
		return recordAudit(tx, actor, "category.update", "category", category.ID, old, models.JSONB{"name": category.Name, "slug": category.Slug})
	})
	if err != nil {
		return nil, err
	}

	return &category, nil
}

// Delete removes a category that no product references.
func (s *CategoryService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("category %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to load category: %w", err)
		}

		var inUse int64
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Count(&inUse).Error; err != nil {
			return fmt.Errorf("failed to count category products: %w", err)
		}
		if inUse > 0 {
			return fmt.Errorf("category is used by %d products: %w", inUse, ErrConflict)
		}

		if err := tx.Delete(&category).Error; err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return recordAudit(tx, actor, "category.delete", "category", id, models.JSONB{"name": category.Name, "slug": category.Slug}, nil)
	})
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(slug, name string) string {
	if strings.TrimSpace(slug) == "" {
		slug = name
	}
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(slug), "-"), "-")
}
