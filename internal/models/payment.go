package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
)

// Payment - платёж по заказу, проходящий через escrow.
// Привязан ровно к одному из JobID или GigOrderID.
type Payment struct {
	ID              uuid.UUID                 `db:"id" json:"id"`
	JobID           *uuid.UUID                `db:"job_id" json:"job_id,omitempty"`
	GigOrderID      *uuid.UUID                `db:"gig_order_id" json:"gig_order_id,omitempty"`
	PayerID         uuid.UUID                 `db:"payer_id" json:"payer_id"`
	PayeeID         uuid.UUID                 `db:"payee_id" json:"payee_id"`
	Amount          decimal.Decimal           `db:"amount" json:"amount"`
	Currency        string                    `db:"currency" json:"currency"`
	Status          valueobject.PaymentStatus `db:"status" json:"status"`
	EscrowAddress   *string                   `db:"escrow_address" json:"escrow_address,omitempty"`
	TransactionHash *string                   `db:"transaction_hash" json:"transaction_hash,omitempty"`
	DisputeReason   *string                   `db:"dispute_reason" json:"dispute_reason,omitempty"`
	ReleaseDate     *time.Time                `db:"release_date" json:"release_date,omitempty"`
	ReleasedAmount  decimal.Decimal           `db:"released_amount" json:"released_amount"`
	RefundedAmount  decimal.Decimal           `db:"refunded_amount" json:"refunded_amount"`
	FundedAt        *time.Time                `db:"funded_at" json:"funded_at,omitempty"`
	DisputedAt      *time.Time                `db:"disputed_at" json:"disputed_at,omitempty"`
	SettledAt       *time.Time                `db:"settled_at" json:"settled_at,omitempty"`
	CreatedAt       time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                 `db:"updated_at" json:"updated_at"`
}

// PaymentHistory - запись аудита о применённом переходе платежа.
type PaymentHistory struct {
	ID              uuid.UUID                 `db:"id" json:"id"`
	PaymentID       uuid.UUID                 `db:"payment_id" json:"payment_id"`
	ActorID         *uuid.UUID                `db:"actor_id" json:"actor_id,omitempty"`
	FromStatus      valueobject.PaymentStatus `db:"from_status" json:"from_status"`
	ToStatus        valueobject.PaymentStatus `db:"to_status" json:"to_status"`
	TransactionHash *string                   `db:"transaction_hash" json:"transaction_hash,omitempty"`
	Note            *string                   `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time                 `db:"created_at" json:"created_at"`
}

// SettlementAction - действие, запрошенное у шлюза расчётов.
type SettlementAction string

const (
	SettlementActionFund    SettlementAction = "fund"
	SettlementActionRelease SettlementAction = "release"
	SettlementActionDispute SettlementAction = "dispute"
	SettlementActionRefund  SettlementAction = "refund"
)

// Статусы записи журнала запросов к шлюзу.
const (
	SettlementStatusPending   = "pending"
	SettlementStatusConfirmed = "confirmed"
	SettlementStatusApplied   = "applied"
	SettlementStatusFailed    = "failed"
)

// SettlementRequest - журнал обращений к шлюзу. Ключ запроса уникален и служит
// ключом идемпотентности: подтверждённый результат можно применить повторно.
type SettlementRequest struct {
	ID              uuid.UUID                 `db:"id" json:"id"`
	RequestKey      string                    `db:"request_key" json:"request_key"`
	PaymentID       uuid.UUID                 `db:"payment_id" json:"payment_id"`
	Action          SettlementAction          `db:"action" json:"action"`
	FromStatus      valueobject.PaymentStatus `db:"from_status" json:"from_status"`
	ToStatus        valueobject.PaymentStatus `db:"to_status" json:"to_status"`
	Status          string                    `db:"status" json:"status"`
	Params          json.RawMessage           `db:"params" json:"params"`
	EscrowAddress   *string                   `db:"escrow_address" json:"escrow_address,omitempty"`
	TransactionHash *string                   `db:"transaction_hash" json:"transaction_hash,omitempty"`
	ConfirmedAmount decimal.NullDecimal       `db:"confirmed_amount" json:"confirmed_amount"`
	Attempts        int                       `db:"attempts" json:"attempts"`
	LastError       *string                   `db:"last_error" json:"last_error,omitempty"`
	CreatedAt       time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                 `db:"updated_at" json:"updated_at"`
}

// SettlementParams - параметры перехода, сохраняемые вместе с запросом,
// чтобы сверка могла применить его без участия клиента.
type SettlementParams struct {
	ActorID     uuid.UUID        `json:"actor_id"`
	ActorRole   valueobject.Role `json:"actor_role"`
	Reason      string           `json:"reason,omitempty"`
	PayerAmount *decimal.Decimal `json:"payer_amount,omitempty"`
	PayeeAmount *decimal.Decimal `json:"payee_amount,omitempty"`
}

// DecodeParams разбирает сохранённые параметры перехода.
func (r *SettlementRequest) DecodeParams() (SettlementParams, error) {
	var params SettlementParams
	if len(r.Params) == 0 {
		return params, nil
	}
	err := json.Unmarshal(r.Params, &params)
	return params, err
}
