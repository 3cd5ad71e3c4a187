package middleware

import (
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/workflow-scheduler/internal/repository"
	"github.com/gin-gonic/gin"
)

// EnsureUser runs after Auth and makes sure the subject has a user row, so
// ownership checks and notification lookups always find one.
func EnsureUser(repo repository.UserRepository, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := repo.Upsert(c.Request.Context(), UserID(c)); err != nil {
			logger.ErrorContext(c.Request.Context(), "ensure user upsert", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				gin.H{"error": "Internal server error"})
			return
		}
		c.Next()
	}
}
