// internal/services/directory_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

// DirectoryService is the read-only projection of certificates joined to
// their products and producers.
type DirectoryService struct {
	db *gorm.DB
}

type WinnerFilter struct {
	utils.PaginationParams
	AwardLevel *models.AwardLevel `json:"award_level,omitempty"`
	Year       *int               `json:"year,omitempty"`
	Published  *bool              `json:"published,omitempty"`
	CategoryID *uuid.UUID         `json:"category_id,omitempty"`
}

type WinnerView struct {
	CertificateID     uuid.UUID         `json:"certificate_id"`
	CertificateNumber string            `json:"certificate_number"`
	ProductID         uuid.UUID         `json:"product_id"`
	ProductName       string            `json:"product_name"`
	Brand             string            `json:"brand,omitempty"`
	ProducerName      string            `json:"producer_name"`
	Company           string            `json:"company"`
	Country           string            `json:"country,omitempty"`
	Category          string            `json:"category,omitempty"`
	AwardLevel        models.AwardLevel `json:"award_level"`
	AwardLabel        string            `json:"award_label"`
	Score             float64           `json:"score"`
	Year              int               `json:"year"`
	IssueDate         time.Time         `json:"issue_date"`
	ImageURL          string            `json:"image_url,omitempty"`
	PDFURL            string            `json:"pdf_url,omitempty"`
	IsPublished       bool              `json:"is_published"`
}

type winnerRow struct {
	CertificateID     uuid.UUID
	CertificateNumber string
	ProductID         uuid.UUID
	ProductName       string
	Brand             string
	ProducerName      string
	Company           string
	Country           string
	Category          string
	AwardLevel        models.AwardLevel
	Score             float64
	IssueDate         time.Time
	ImageURL          string
	PDFURL            string
	IsPublished       bool
}

type DashboardStats struct {
	ProductsByStatus     map[models.ProductStatus]int64 `json:"products_by_status"`
	CertificatesByAward  map[models.AwardLevel]int64    `json:"certificates_by_award"`
	PublishedCertificate int64                          `json:"published_certificates"`
	PendingProducers     int64                          `json:"pending_producers"`
	ApprovedProducers    int64                          `json:"approved_producers"`
	TotalEvaluations     int64                          `json:"total_evaluations"`
	AverageScore         float64                        `json:"average_score"`
}

const winnerColumns = `certificates.id AS certificate_id,
	certificates.certificate_number,
	products.id AS product_id,
	products.name AS product_name,
	COALESCE(products.brand, '') AS brand,
	accounts.name AS producer_name,
	COALESCE(accounts.company, '') AS company,
	COALESCE(accounts.country, '') AS country,
	COALESCE(categories.name, '') AS category,
	certificates.award_level,
	COALESCE(evaluations.total_score, 0) AS score,
	certificates.issue_date,
	COALESCE(products.image_url, '') AS image_url,
	COALESCE(certificates.pdf_url, '') AS pdf_url,
	certificates.is_published`

func NewDirectoryService(db *gorm.DB) *DirectoryService {
	return &DirectoryService{db: db}
}

func (s *DirectoryService) base(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table("certificates").
		Joins("JOIN products ON products.id = certificates.product_id").
		Joins("JOIN accounts ON accounts.id = products.producer_id").
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Joins("LEFT JOIN evaluations ON evaluations.product_id = products.id")
}

// ListWinners pages through certificates. Public callers are limited to
// published certificates; a published filter narrows that further.
func (s *DirectoryService) ListWinners(ctx context.Context, actor Actor, filter WinnerFilter) ([]WinnerView, int64, error) {
	query := s.base(ctx)

	if !actor.IsAdmin() {
		query = query.Where("certificates.is_published = ?", true)
	}
	if filter.Published != nil {
		query = query.Where("certificates.is_published = ?", *filter.Published)
	}

	if filter.AwardLevel != nil {
		query = query.Where("certificates.award_level = ?", *filter.AwardLevel)
	}

	if filter.Year != nil {
		from := time.Date(*filter.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		query = query.Where("certificates.issue_date >= ? AND certificates.issue_date < ?", from, from.AddDate(1, 0, 0))
	}

	if filter.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filter.CategoryID)
	}

	if filter.Search != "" {
		pattern := utils.LikePattern(filter.Search)
		query = query.Where("LOWER(products.name) LIKE ? OR LOWER(accounts.name) LIKE ? OR LOWER(accounts.company) LIKE ?",
			pattern, pattern, pattern)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count winners: %w", err)
	}

	allowedSortFields := []string{"certificates.issue_date", "products.name", "score", "certificates.award_level"}
	params := filter.PaginationParams
	params.Sort = sortAlias(params.Sort)
	sorted := utils.ApplySort(query.Select(winnerColumns), params, allowedSortFields, "certificates.issue_date")

	var rows []winnerRow
	if err := utils.ApplyPagination(sorted, params).Scan(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list winners: %w", err)
	}

	views := make([]WinnerView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.view())
	}
	return views, total, nil
}

// FindByNumber returns the projection for one certificate, published or not.
func (s *DirectoryService) FindByNumber(ctx context.Context, number string) (*WinnerView, error) {
	var rows []winnerRow
	err := s.base(ctx).Select(winnerColumns).
		Where("certificates.certificate_number = ?", number).
		Limit(1).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up certificate: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("certificate %s: %w", number, ErrNotFound)
	}

	view := rows[0].view()
	return &view, nil
}

// FindByID is FindByNumber keyed by certificate id.
func (s *DirectoryService) FindByID(ctx context.Context, id uuid.UUID) (*WinnerView, error) {
	var rows []winnerRow
	err := s.base(ctx).Select(winnerColumns).
		Where("certificates.id = ?", id).
		Limit(1).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up certificate: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("certificate %s: %w", id, ErrNotFound)
	}

	view := rows[0].view()
	return &view, nil
}

func (s *DirectoryService) DashboardStats(ctx context.Context, actor Actor) (*DashboardStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	stats := &DashboardStats{
		ProductsByStatus:    make(map[models.ProductStatus]int64),
		CertificatesByAward: make(map[models.AwardLevel]int64),
	}
	for _, status := range models.AllProductStatuses {
		stats.ProductsByStatus[status] = 0
	}

	var statusCounts []struct {
		Status models.ProductStatus
		Count  int64
	}
	if err := db.Model(&models.Product{}).Select("status, COUNT(*) AS count").Group("status").Scan(&statusCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	for _, row := range statusCounts {
		stats.ProductsByStatus[row.Status] = row.Count
	}

	var awardCounts []struct {
		AwardLevel models.AwardLevel
		Count      int64
	}
	if err := db.Model(&models.Certificate{}).Select("award_level, COUNT(*) AS count").Group("award_level").Scan(&awardCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to count certificates: %w", err)
	}
	for _, row := range awardCounts {
		stats.CertificatesByAward[row.AwardLevel] = row.Count
	}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.PublishedCertificate, db.Model(&models.Certificate{}).Where("is_published = ?", true)},
		{&stats.PendingProducers, db.Model(&models.Account{}).Where("role = ? AND account_status = ?", models.RoleProducer, models.AccountStatusPending)},
		{&stats.ApprovedProducers, db.Model(&models.Account{}).Where("role = ? AND account_status = ?", models.RoleProducer, models.AccountStatusApproved)},
		{&stats.TotalEvaluations, db.Model(&models.Evaluation{})},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
		}
	}

	if stats.TotalEvaluations > 0 {
		var avg struct{ Average float64 }
		if err := db.Model(&models.Evaluation{}).Select("AVG(total_score) AS average").Scan(&avg).Error; err != nil {
			return nil, fmt.Errorf("failed to average scores: %w", err)
		}
		stats.AverageScore = avg.Average
	}

	return stats, nil
}

func (r winnerRow) view() WinnerView {
	return WinnerView{
		CertificateID:     r.CertificateID,
		CertificateNumber: r.CertificateNumber,
		ProductID:         r.ProductID,
		ProductName:       r.ProductName,
		Brand:             r.Brand,
		ProducerName:      r.ProducerName,
		Company:           r.Company,
		Country:           r.Country,
		Category:          r.Category,
		AwardLevel:        r.AwardLevel,
		AwardLabel:        r.AwardLevel.Label(),
		Score:             r.Score,
		Year:              r.IssueDate.Year(),
		IssueDate:         r.IssueDate,
		ImageURL:          r.ImageURL,
		PDFURL:            r.PDFURL,
		IsPublished:       r.IsPublished,
	}
}

// sortAlias maps public sort keys onto qualified columns.
func sortAlias(sort string) string {
	switch sort {
	case "issue_date":
		return "certificates.issue_date"
	case "name", "product_name":
		return "products.name"
	case "award", "award_level":
		return "certificates.award_level"
	default:
		return sort
	}
}
