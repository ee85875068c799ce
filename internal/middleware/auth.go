package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mvhoang/Solvio/internal/dto"
	"github.com/mvhoang/Solvio/internal/service"
)

// ContextUserIDKey is where RequireAuth stores the authenticated user id.
const ContextUserIDKey = "userID"

// RequireAuth validates the bearer token and aborts with 401 before any
// handler work when it is missing or invalid.
func RequireAuth(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Missing bearer token"})
			return
		}
		userID, err := authService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Invalid or expired token"})
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}
	return ""
}

// UserID reads the authenticated user id set by RequireAuth.
func UserID(c *gin.Context) uint {
	id, _ := c.Get(ContextUserIDKey)
	userID, _ := id.(uint)
	return userID
}
