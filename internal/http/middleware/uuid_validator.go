package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
)

// UUIDValidator проверяет, что параметр с указанным именем является валидным UUID.
// Использование: router.GET("/jobs/:id", UUIDValidator("id"), handler.GetJob)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		idStr := c.Param(paramName)
		if idStr == "" {
			abortWithError(c, apperror.Validation("параметр "+paramName+" обязателен"))
			return
		}

		if _, err := uuid.Parse(idStr); err != nil {
			abortWithError(c, apperror.Validation("параметр "+paramName+" должен быть валидным UUID"))
			return
		}

		c.Next()
	}
}
