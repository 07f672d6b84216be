// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/config"
	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

type NotificationService struct {
	db       *gorm.DB
	config   *config.Config
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:       db,
		config:   config,
		sendMail: smtp.SendMail,
	}
}

// Notify stores n through tx. Email delivery is a separate step, see Deliver,
// and must only happen after tx commits.
func (s *NotificationService) Notify(tx *gorm.DB, n *models.Notification) error {
	if err := tx.Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// Deliver emails a stored notification to its account. Failures are logged
// and never surface to the caller.
func (s *NotificationService) Deliver(account *models.Account, n *models.Notification) {
	if account == nil || n == nil {
		return
	}

	tmpl := s.getEmailTemplate(n.Type)
	body, err := s.renderTemplate(tmpl.Body, map[string]interface{}{
		"Name":         account.Name,
		"Title":        n.Title,
		"Message":      n.Message,
		"DashboardURL": s.config.Frontend.BaseURL + "/dashboard",
	})
	if err != nil {
		logrus.WithError(err).WithField("type", n.Type).Error("Failed to render email template")
		return
	}

	if err := s.sendEmail(account.Email, tmpl.Subject, body); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"account_id": account.ID,
			"type":       n.Type,
		}).Warn("Failed to send notification email")
	}
}

func (s *NotificationService) List(ctx context.Context, actor Actor, params utils.PaginationParams, unreadOnly bool) ([]models.Notification, int64, error) {
	if !actor.Authenticated() {
		return nil, 0, ErrUnauthorized
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("account_id = ?", actor.ID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var notifications []models.Notification
	err := utils.ApplyPagination(query.Order("created_at DESC"), params).Find(&notifications).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, total, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id uuid.UUID) (*models.Notification, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}

	var notification models.Notification
	err := s.db.WithContext(ctx).Where("id = ? AND account_id = ?", id, actor.ID).First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}

	if notification.ReadAt == nil {
		now := time.Now()
		if err := s.db.WithContext(ctx).Model(&notification).Update("read_at", now).Error; err != nil {
			return nil, fmt.Errorf("failed to mark notification read: %w", err)
		}
		notification.ReadAt = &now
	}

	return &notification, nil
}

func newNotification(accountID uuid.UUID, kind models.NotificationType, title, message, resourceType string, resourceID uuid.UUID) *models.Notification {
	n := &models.Notification{
		AccountID:           accountID,
		Type:                kind,
		Title:               title,
		Message:             message,
		RelatedResourceType: resourceType,
	}
	if resourceID != uuid.Nil {
		n.RelatedResourceID = &resourceID
	}
	return n
}

func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Debug("Email delivery disabled")
		return nil
	}

	// Setup authentication
	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	// Compose message
	from := fmt.Sprintf("%s <%s>", s.config.Email.FromName, s.config.Email.FromEmail)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", from, to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return s.sendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

const emailLayout = `
<!DOCTYPE html>
<html>
<body>
	<h2>{{.Title}}</h2>
	<p>Hello {{.Name}},</p>
	<p>{{.Message}}</p>
	<a href="{{.DashboardURL}}">Open your dashboard</a>
	<p>Best regards,<br>TasteCert Team</p>
</body>
</html>`

func (s *NotificationService) getEmailTemplate(kind models.NotificationType) EmailTemplate {
	templates := map[models.NotificationType]EmailTemplate{
		models.NotificationAccountApproved:   {Subject: "Your producer account was approved", Body: emailLayout},
		models.NotificationAccountRejected:   {Subject: "Your producer account application", Body: emailLayout},
		models.NotificationProductEvaluated:  {Subject: "Your product was evaluated", Body: emailLayout},
		models.NotificationProductRejected:   {Subject: "Your product submission", Body: emailLayout},
		models.NotificationCertificateIssued: {Subject: "Your certificate was issued", Body: emailLayout},
	}

	if tmpl, exists := templates[kind]; exists {
		return tmpl
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
