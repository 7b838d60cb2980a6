package common

import (
	"errors"

	"github.com/lib/pq"
)

// Коды SQLSTATE, которые репозитории обрабатывают отдельно.
const (
	pqUniqueViolation      = "23505"
	pqCheckViolation       = "23514"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsUniqueViolation сообщает о нарушении уникального индекса.
func IsUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

// IsCheckViolation сообщает о нарушении CHECK-ограничения.
func IsCheckViolation(err error) bool {
	return pqCode(err) == pqCheckViolation
}

// IsRetryable сообщает, что транзакцию можно повторить целиком.
func IsRetryable(err error) bool {
	switch pqCode(err) {
	case pqSerializationFailure, pqDeadlockDetected:
		return true
	}
	return false
}
