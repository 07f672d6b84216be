// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/tastecert-backend/internal/config"
	"github.com/javajoker/tastecert-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	// Connect to database
	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)
	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	}

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("driver", cfg.Driver).Info("Database connection established")
	return db, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed")
	}
}

// AllModels lists every table managed by migrations.
func AllModels() []interface{} {
	return []interface{}{
		&models.Account{},
		&models.Category{},
		&models.Product{},
		&models.Evaluation{},
		&models.Certificate{},
		&models.CertificateSequence{},
		&models.QRCode{},
		&models.Notification{},
		&models.AuditLog{},
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_producer_status ON products(producer_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_products_submitted_at ON products(submitted_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_certificates_published_issue ON certificates(is_published, issue_date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_accounts_role_status ON accounts(role, account_status)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_account_read ON notifications(account_id, read_at)",
	}

	if db.Dialector.Name() == "postgres" {
		indexes = append(indexes,
			"CREATE INDEX IF NOT EXISTS idx_products_search ON products USING GIN(to_tsvector('simple', name || ' ' || coalesce(brand, '')))",
		)
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData creates the default admin account and categories when the
// tables are empty.
func SeedInitialData(db *gorm.DB, adminEmail, adminPassword string) error {
	logrus.Info("Seeding initial data...")

	// Create default admin user
	var adminCount int64
	db.Model(&models.Account{}).Where("role = ?", models.RoleAdmin).Count(&adminCount)

	if adminCount == 0 {
		now := time.Now()
		admin := &models.Account{
			Name:          "System Administrator",
			Email:         adminEmail,
			Role:          models.RoleAdmin,
			AccountStatus: models.AccountStatusApproved,
			ApprovedAt:    &now,
		}

		if err := admin.SetPassword(adminPassword); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}

		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		logrus.WithField("email", adminEmail).Info("Default admin account created")
	}

	defaultCategories := []models.Category{
		{Name: "Wine", Slug: "wine", Description: "Still, sparkling and fortified wines"},
		{Name: "Spirits", Slug: "spirits", Description: "Distilled beverages"},
		{Name: "Beer & Cider", Slug: "beer-cider", Description: "Fermented grain and fruit beverages"},
		{Name: "Olive Oil", Slug: "olive-oil", Description: "Extra virgin and virgin olive oils"},
		{Name: "Cheese", Slug: "cheese", Description: "Fresh and aged cheeses"},
		{Name: "Coffee & Tea", Slug: "coffee-tea", Description: "Roasted coffee and blended teas"},
		{Name: "Non-Alcoholic Beverages", Slug: "non-alcoholic", Description: "Juices, soft drinks and waters"},
	}

	for _, category := range defaultCategories {
		var count int64
		db.Model(&models.Category{}).Where("slug = ?", category.Slug).Count(&count)

		if count == 0 {
			if err := db.Create(&category).Error; err != nil {
				logrus.WithError(err).WithField("slug", category.Slug).Warn("Failed to create category")
			}
		}
	}

	logrus.Info("Initial data seeding completed")
	return nil
}
