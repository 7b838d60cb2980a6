package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskfi-backend/internal/logger"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки, добавленные через c.Error, и паники в хэндлерах.
// Маскирует внутренние ошибки: клиент получает только код и сообщение AppError.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Log.WithFields(logrus.Fields{
					"panic":  r,
					"path":   c.Request.URL.Path,
					"method": c.Request.Method,
				}).Error("panic в обработчике запроса")
				if !c.Writer.Written() {
					abortWithError(c, apperror.New(apperror.ErrCodeInternal, "внутренняя ошибка сервера"))
				}
			}
		}()

		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			appErr = apperror.Internal(err, "внутренняя ошибка сервера")
		}

		entry := logger.Log.WithFields(logrus.Fields{
			"error":  err.Error(),
			"code":   appErr.Code,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
		if appErr.HTTPStatus >= http.StatusInternalServerError || appErr.HTTPStatus == 0 {
			entry.Error("request error")
		} else {
			entry.Info("request rejected")
		}

		abortWithError(c, appErr)
	}
}
