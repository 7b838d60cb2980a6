package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
)

// User описывает участника площадки. Идентичность выводится из адреса кошелька.
type User struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	WalletAddress string           `db:"wallet_address" json:"wallet_address"`
	Username      string           `db:"username" json:"username"`
	Role          valueobject.Role `db:"role" json:"role"`
	TotalEarned   decimal.Decimal  `db:"total_earned" json:"total_earned"`
	TotalSpent    decimal.Decimal  `db:"total_spent" json:"total_spent"`
	CompletedJobs int              `db:"completed_jobs" json:"completed_jobs"`
	IsActive      bool             `db:"is_active" json:"is_active"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// UserTotalsDelta - изменение агрегатов пользователя в рамках одного перехода.
type UserTotalsDelta struct {
	UserID        uuid.UUID
	EarnedDelta   decimal.Decimal
	SpentDelta    decimal.Decimal
	CompletedJobs int
}

// IsZero сообщает, что дельта ничего не меняет.
func (d UserTotalsDelta) IsZero() bool {
	return d.EarnedDelta.IsZero() && d.SpentDelta.IsZero() && d.CompletedJobs == 0
}
