package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeInternal          ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation        ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidState      ErrorCode = "INVALID_STATE"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodePolicyViolation   ErrorCode = "POLICY_VIOLATION"
	ErrCodeGateway           ErrorCode = "GATEWAY_ERROR"
	ErrCodeRateLimited       ErrorCode = "RATE_LIMITED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду и сообщению, чтобы errors.Is работал с предопределёнными ошибками.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidState, ErrCodeInvalidTransition:
		return http.StatusConflict
	case ErrCodePolicyViolation:
		return http.StatusUnprocessableEntity
	case ErrCodeGateway:
		return http.StatusBadGateway
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки приложения или INTERNAL_ERROR для прочих ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	return CodeOf(err) == ErrCodeForbidden
}

func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

// Validation, Forbidden и т.д. - короткие конструкторы для сервисного слоя.
func Validation(message string) *AppError { return New(ErrCodeValidation, message) }

func Forbidden(message string) *AppError { return New(ErrCodeForbidden, message) }

func InvalidState(message string) *AppError { return New(ErrCodeInvalidState, message) }

func InvalidTransition(message string) *AppError { return New(ErrCodeInvalidTransition, message) }

func PolicyViolation(message string) *AppError { return New(ErrCodePolicyViolation, message) }

func Conflict(message string) *AppError { return New(ErrCodeConflict, message) }

func Gateway(err error, message string) *AppError { return Wrap(err, ErrCodeGateway, message) }

func Internal(err error, message string) *AppError { return Wrap(err, ErrCodeInternal, message) }

var (
	ErrJobNotFound          = New(ErrCodeNotFound, "заказ не найден")
	ErrApplicationNotFound  = New(ErrCodeNotFound, "отклик не найден")
	ErrPaymentNotFound      = New(ErrCodeNotFound, "платёж не найден")
	ErrGigNotFound          = New(ErrCodeNotFound, "услуга не найдена")
	ErrUserNotFound         = New(ErrCodeNotFound, "пользователь не найден")
	ErrNotificationNotFound = New(ErrCodeNotFound, "уведомление не найдено")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden            = New(ErrCodeForbidden, "недостаточно прав")

	// ErrConcurrentUpdate сообщает о проигранной гонке: клиент должен обновить данные
	// и повторить только решение, а не платёжное действие.
	ErrConcurrentUpdate = New(ErrCodeConflict, "данные изменились параллельно, обновите страницу и повторите решение")
)

var (
	ErrGigPackageNotFound        = New(ErrCodeNotFound, "пакет услуги не найден")
	ErrGigOrderNotFound          = New(ErrCodeNotFound, "заказ услуги не найден")
	ErrSettlementRequestNotFound = New(ErrCodeNotFound, "запрос к шлюзу не найден")
)
