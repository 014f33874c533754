package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"helpdesk_backend/internal/auth"
	"helpdesk_backend/internal/models"
)

// AuthMiddleware - middleware проверки JWT. Ядро потребляет только
// личность текущего оператора; сам флоу входа живет снаружи.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing or invalid"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.ParseToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		// Сохраняем claims в контекст
		c.Set("operatorID", claims.OperatorID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireAdmin пропускает только операторов
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get("role")
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: no role"})
			return
		}

		role, _ := roleVal.(string)
		if models.Role(role) != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied: insufficient permissions"})
			return
		}

		c.Next()
	}
}

// OperatorID извлекает id оператора из gin-контекста
func OperatorID(c *gin.Context) string {
	if id, exists := c.Get("operatorID"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
