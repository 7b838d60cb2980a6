package common

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/dto"
	"github.com/ignatzorin/taskfi-backend/internal/http/middleware"
	"github.com/ignatzorin/taskfi-backend/internal/logger"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/service"
)

var (
	// ErrUserNotFound is returned when user is not found in context
	ErrUserNotFound = errors.New("пользователь не найден в контексте")

	// ErrInvalidUUID is returned when UUID parsing fails
	ErrInvalidUUID = errors.New("неверный формат UUID")
)

// CurrentUserID extracts user ID from Gin context
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return uuid.Nil, ErrUserNotFound
	}

	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, ErrUserNotFound
	}

	return userID, nil
}

// CurrentActor собирает участника операции из userID и роли, положенных AuthMiddleware.
func CurrentActor(c *gin.Context) (service.Actor, bool) {
	userID, err := CurrentUserID(c)
	if err != nil {
		RespondAppError(c, apperror.ErrUnauthorized)
		return service.Actor{}, false
	}

	role, ok := c.Get(middleware.ContextRoleKey)
	if !ok {
		RespondAppError(c, apperror.ErrUnauthorized)
		return service.Actor{}, false
	}
	r, ok := role.(valueobject.Role)
	if !ok {
		RespondAppError(c, apperror.ErrUnauthorized)
		return service.Actor{}, false
	}

	return service.Actor{ID: userID, Role: r}, true
}

// ParseUUIDParam parses UUID from URL parameter
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, fmt.Errorf("параметр %s отсутствует", paramName)
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}

	return parsed, nil
}

// UUIDParam разбирает параметр пути и сам отвечает 400 при ошибке.
func UUIDParam(c *gin.Context, paramName string) (uuid.UUID, bool) {
	id, err := ParseUUIDParam(c, paramName)
	if err != nil {
		RespondAppError(c, apperror.Validation(fmt.Sprintf("параметр %s должен быть валидным UUID", paramName)))
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON разбирает тело запроса и отвечает VALIDATION_ERROR при ошибке.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		RespondAppError(c, apperror.Validation("ошибка валидации запроса: "+err.Error()))
		return false
	}
	return true
}

// RespondAppError отправляет ошибку в формате {"error": {"code", "message"}}.
// Причины внутренних ошибок пишутся в лог и не отдаются клиенту.
func RespondAppError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal(err, "внутренняя ошибка сервера")
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	entry := logger.Log.WithFields(logrus.Fields{
		"code":   appErr.Code,
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else if appErr.Cause != nil {
		entry.WithError(appErr.Cause).Warn("request rejected")
	}

	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: dto.ErrorBody{
		Code:    string(appErr.Code),
		Message: appErr.Message,
	}})
}

// ParseIntQuery safely reads an integer query parameter with a fallback value
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination extracts limit and offset from query parameters with defaults
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}
