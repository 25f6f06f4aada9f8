package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"portfolio/api/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthRequired.
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextIsAdmin   = "is_admin"
)

const serviceEmail = "service"

// AuthRequired accepts either the service API key in X-API-KEY or a JWT from
// the jwt_token cookie or an Authorization bearer header. The service key is
// only honoured when it is configured.
func AuthRequired(jwtManager *utils.JWTManager, serviceKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if serviceKey != "" {
			apiKey := c.GetHeader("X-API-KEY")
			if apiKey != "" && subtle.ConstantTimeCompare([]byte(apiKey), []byte(serviceKey)) == 1 {
				c.Set(ContextUserID, 0)
				c.Set(ContextUserEmail, serviceEmail)
				c.Set(ContextIsAdmin, true)
				c.Next()
				return
			}
		}

		tokenString, err := c.Cookie("jwt_token")
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if tokenString == "" {
				slog.Debug("auth: no JWT token found in cookie or header", "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
				return
			}
		}

		claims, err := jwtManager.ValidateJWT(tokenString)
		if err != nil {
			slog.Info("auth: invalid JWT token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsAdmin) {
			slog.Info("auth: admin access denied", "email", c.GetString(ContextUserEmail), "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: admin access required"})
			return
		}
		c.Next()
	}
}
