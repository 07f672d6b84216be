// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/tastecert-backend/internal/config"
)

// StorageService stores uploaded images and generated documents on S3 when
// credentials are configured and on local disk otherwise.
type StorageService struct {
	s3Client s3iface.S3API
	config   *config.Config
	now      func() time.Time
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
	IsPublic     bool
}

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Local disk for development
		return &StorageService{config: config, now: time.Now}, nil
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
		now:      time.Now,
	}, nil
}

// NewStorageServiceWithClient uses client for S3 calls.
func NewStorageServiceWithClient(config *config.Config, client s3iface.S3API) *StorageService {
	return &StorageService{s3Client: client, config: config, now: time.Now}
}

func (s *StorageService) ImageUploadOptions(folder string) UploadOptions {
	types := make([]string, 0, len(imageTypes))
	for mimeType := range imageTypes {
		types = append(types, mimeType)
	}
	return UploadOptions{
		Folder:       folder,
		MaxSize:      s.config.Storage.MaxImageSize,
		AllowedTypes: types,
		IsPublic:     true,
	}
}

// UploadFile validates an uploaded file by size and sniffed content type and
// stores it.
func (s *StorageService) UploadFile(ctx context.Context, file multipart.File, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	// Validate file size
	if options.MaxSize > 0 && header.Size > options.MaxSize {
		return nil, invalidField("file", fmt.Sprintf("exceeds the maximum size of %d bytes", options.MaxSize))
	}

	// Read no more than MaxSize+1 so a lying header cannot exhaust memory
	reader := io.Reader(file)
	if options.MaxSize > 0 {
		reader = io.LimitReader(file, options.MaxSize+1)
	}
	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if options.MaxSize > 0 && int64(len(fileBytes)) > options.MaxSize {
		return nil, invalidField("file", fmt.Sprintf("exceeds the maximum size of %d bytes", options.MaxSize))
	}

	contentType := http.DetectContentType(fileBytes)
	if len(options.AllowedTypes) > 0 && !contains(options.AllowedTypes, contentType) {
		return nil, invalidField("file", fmt.Sprintf("type %s is not allowed", contentType))
	}

	key := s.generateFileName(header.Filename, contentType, options.Folder)
	return s.Put(ctx, key, contentType, fileBytes, options.IsPublic)
}

// Put stores data under key.
func (s *StorageService) Put(ctx context.Context, key, contentType string, data []byte, isPublic bool) (*UploadResult, error) {
	if s.s3Client != nil {
		return s.uploadToS3(ctx, data, key, contentType, isPublic)
	}
	return s.uploadToLocal(data, key, contentType)
}

func (s *StorageService) uploadToS3(ctx context.Context, fileBytes []byte, key, contentType string, isPublic bool) (*UploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
	}

	if isPublic {
		params.ACL = aws.String("public-read")
	}

	if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %v: %w", err, ErrCollaboratorUnavailable)
	}

	return &UploadResult{
		URL:      s.getS3URL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(fileBytes []byte, key, contentType string) (*UploadResult, error) {
	path := filepath.Join(s.config.Storage.LocalPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(path, fileBytes, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &UploadResult{
		URL:      strings.TrimRight(s.config.Storage.PublicURL, "/") + "/" + key,
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) DeleteFile(ctx context.Context, key string) error {
	if s.s3Client == nil {
		path := filepath.Join(s.config.Storage.LocalPath, filepath.FromSlash(key))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}

// KeyFromURL maps a URL produced by this service back to its storage key.
func (s *StorageService) KeyFromURL(url string) (string, bool) {
	prefixes := []string{strings.TrimRight(s.config.Storage.PublicURL, "/") + "/"}
	if s.s3Client != nil {
		prefixes = []string{s.getS3URL("")}
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(url, prefix) {
			return strings.TrimPrefix(url, prefix), true
		}
	}
	return "", false
}

func (s *StorageService) generateFileName(originalName, contentType, folder string) string {
	id := uuid.New()

	ext, ok := imageTypes[contentType]
	if !ok {
		ext = strings.ToLower(filepath.Ext(originalName))
	}

	// Create filename with timestamp and UUID
	timestamp := s.now().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, id.String()[:8], ext)

	if folder != "" {
		return fmt.Sprintf("%s/%s", folder, filename)
	}

	return filename
}

func (s *StorageService) getS3URL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.config.AWS.CloudFrontURL, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func logStorageError(err error, key string) {
	logrus.WithError(err).WithField("key", key).Warn("Failed to remove stored file")
}
