// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/tastecert-backend/internal/i18n"
	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/services"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

const (
	ContextAccountID = "account_id"
	ContextEmail     = "email"
	ContextRole      = "role"
)

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthRequired))
			return
		}

		// Extract token from "Bearer <token>"
		token, ok := bearerToken(authHeader)
		if !ok {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			return
		}

		claims, err := utils.ValidateJWT(token)
		if err != nil {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthTokenExpired))
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// RoleRequired must run after AuthRequired.
func RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.Role(c.GetString(ContextRole))
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		utils.ForbiddenResponse(c, "")
	}
}

func AdminRequired() gin.HandlerFunc {
	return RoleRequired(models.RoleAdmin)
}

func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		// Set account info in context if token is valid
		if claims, err := utils.ValidateJWT(token); err == nil {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// GetActor returns the caller set by AuthRequired or OptionalAuth, or an
// anonymous actor.
func GetActor(c *gin.Context) services.Actor {
	actor := services.Actor{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	id, err := uuid.Parse(c.GetString(ContextAccountID))
	if err != nil {
		return actor
	}
	actor.ID = id
	actor.Role = models.Role(c.GetString(ContextRole))
	return actor
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func setClaims(c *gin.Context, claims *utils.JWTClaims) {
	c.Set(ContextAccountID, claims.AccountID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextRole, claims.Role)
}
