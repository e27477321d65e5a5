package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/docsafe/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// userIDContextKey is the gin context key carrying the authenticated user ID.
const userIDContextKey = "userID"

// authRequired validates the bearer token and stores the user ID in the
// request context. Missing or invalid tokens get 401 without reaching the
// handler.
func authRequired(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		userID, err := auth.GetUserIDFromToken(token, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).String(),
		)
	}
}
