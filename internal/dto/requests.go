package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateJobRequest - тело POST /jobs.
type CreateJobRequest struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description" binding:"required"`
	Budget      *decimal.Decimal `json:"budget" binding:"required"`
	Currency    string           `json:"currency"`
	DeadlineAt  *time.Time       `json:"deadline_at"`
}

// ApplyRequest - тело POST /jobs/:id/applications.
type ApplyRequest struct {
	CoverLetter    string           `json:"cover_letter" binding:"required"`
	ProposedBudget *decimal.Decimal `json:"proposed_budget" binding:"required"`
	DeliveryDays   *int             `json:"delivery_days"`
}

// DecisionRequest - решение по одному отклику.
type DecisionRequest struct {
	ApplicationID uuid.UUID `json:"application_id" binding:"required"`
	Accept        bool      `json:"accept"`
}

// DecideRequest - тело PUT /jobs/:id/applications.
type DecideRequest struct {
	Decisions []DecisionRequest `json:"decisions"`
}

// SingleDecisionRequest - тело PUT /jobs/:id/applications/:applicationId.
type SingleDecisionRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

// GigPackageRequest - пакет услуги.
type GigPackageRequest struct {
	Name         string           `json:"name" binding:"required"`
	Description  string           `json:"description"`
	Price        *decimal.Decimal `json:"price" binding:"required"`
	DeliveryDays int              `json:"delivery_days"`
}

// CreateGigRequest - тело POST /gigs.
type CreateGigRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	Currency    string              `json:"currency"`
	Packages    []GigPackageRequest `json:"packages" binding:"required,dive"`
}

// PurchaseGigRequest - тело POST /gigs/:id/orders.
type PurchaseGigRequest struct {
	PackageID uuid.UUID `json:"package_id" binding:"required"`
}

// CreatePaymentRequest - тело POST /payments.
type CreatePaymentRequest struct {
	JobID  uuid.UUID        `json:"job_id" binding:"required"`
	Amount *decimal.Decimal `json:"amount"`
}

// EscrowActionRequest - тело PUT /payments/:id/escrow.
type EscrowActionRequest struct {
	Action string `json:"action" binding:"required,oneof=release dispute"`
	Reason string `json:"reason"`
}

// UpdatePaymentRequest - тело PUT /payments/:id.
type UpdatePaymentRequest struct {
	Status      string           `json:"status" binding:"required"`
	Reason      string           `json:"reason"`
	PayerAmount *decimal.Decimal `json:"payer_amount"`
	PayeeAmount *decimal.Decimal `json:"payee_amount"`
}
