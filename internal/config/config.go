// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string
	Server        ServerConfig
	Database      DatabaseConfig
	JWT           JWTConfig
	AWS           AWSConfig
	Storage       StorageConfig
	Certification CertificationConfig
	Collaborators CollaboratorConfig
	Email         EmailConfig
	I18n          I18nConfig
	Frontend      FrontendConfig
	Log           LogConfig
}

type FrontendConfig struct {
	BaseURL string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
	CORSOrigins  []string
	PublicURL    string
}

type DatabaseConfig struct {
	Driver       string // postgres or sqlite
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
}

type StorageConfig struct {
	LocalPath    string
	PublicURL    string
	MaxImageSize int64 // in bytes
}

type CertificationConfig struct {
	NumberPrefix     string
	AllocateRetries  int
	CloseAccountWord string
}

// CollaboratorConfig points at the external PDF renderer and QR image service.
type CollaboratorConfig struct {
	PDFRendererURL     string
	PDFRendererTimeout int // in seconds
	QRImageBaseURL     string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

type I18nConfig struct {
	DefaultLocale string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
			CORSOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			PublicURL:    getEnv("SERVER_PUBLIC_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "tastecert"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			SQLitePath:   getEnv("DB_SQLITE_PATH", "tastecert.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "eu-west-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "tastecert-assets"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Storage: StorageConfig{
			LocalPath:    getEnv("STORAGE_LOCAL_PATH", "./uploads"),
			PublicURL:    getEnv("STORAGE_PUBLIC_URL", "http://localhost:8080/uploads"),
			MaxImageSize: int64(getEnvAsInt("STORAGE_MAX_IMAGE_MB", 5)) * 1024 * 1024,
		},
		Certification: CertificationConfig{
			NumberPrefix:     getEnv("CERTIFICATE_NUMBER_PREFIX", "TC"),
			AllocateRetries:  getEnvAsInt("CERTIFICATE_ALLOCATE_RETRIES", 3),
			CloseAccountWord: getEnv("CLOSE_ACCOUNT_CONFIRMATION", "DELETE"),
		},
		Collaborators: CollaboratorConfig{
			PDFRendererURL:     getEnv("PDF_RENDERER_URL", ""),
			PDFRendererTimeout: getEnvAsInt("PDF_RENDERER_TIMEOUT", 30),
			QRImageBaseURL:     getEnv("QR_IMAGE_BASE_URL", "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data="),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@tastecert.org"),
			FromName:     getEnv("FROM_NAME", "TasteCert"),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:3000"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Database.Password == "" && c.Database.Driver == "postgres" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Storage.MaxImageSize <= 0 {
		return fmt.Errorf("storage max image size must be positive")
	}

	if c.Certification.AllocateRetries < 1 {
		return fmt.Errorf("certificate allocation retries must be at least 1")
	}

	if strings.TrimSpace(c.Certification.CloseAccountWord) == "" {
		return fmt.Errorf("close account confirmation word cannot be empty")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
