package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
)

// Job - заказ, размещённый нанимателем.
type Job struct {
	ID           uuid.UUID               `db:"id" json:"id"`
	HirerID      uuid.UUID               `db:"hirer_id" json:"hirer_id"`
	FreelancerID *uuid.UUID              `db:"freelancer_id" json:"freelancer_id,omitempty"`
	Title        string                  `db:"title" json:"title"`
	Description  string                  `db:"description" json:"description"`
	Budget       decimal.Decimal         `db:"budget" json:"budget"`
	Currency     string                  `db:"currency" json:"currency"`
	Status       valueobject.OrderStatus `db:"status" json:"status"`
	DeadlineAt   *time.Time              `db:"deadline_at" json:"deadline_at,omitempty"`
	CreatedAt    time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time               `db:"updated_at" json:"updated_at"`
}

// JobApplication - отклик фрилансера. IsAccepted: nil - ожидает решения,
// true - принят, false - отклонён.
type JobApplication struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	JobID          uuid.UUID       `db:"job_id" json:"job_id"`
	FreelancerID   uuid.UUID       `db:"freelancer_id" json:"freelancer_id"`
	CoverLetter    string          `db:"cover_letter" json:"cover_letter"`
	ProposedBudget decimal.Decimal `db:"proposed_budget" json:"proposed_budget"`
	DeliveryDays   *int            `db:"delivery_days" json:"delivery_days,omitempty"`
	IsAccepted     *bool           `db:"is_accepted" json:"is_accepted"`
	DecidedAt      *time.Time      `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

func (a *JobApplication) IsPending() bool {
	return a.IsAccepted == nil
}

func (a *JobApplication) Accepted() bool {
	return a.IsAccepted != nil && *a.IsAccepted
}
