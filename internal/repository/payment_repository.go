package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/repository/common"
)

// PaymentRepository отвечает за платежи.
type PaymentRepository struct {
	db common.DB
}

// NewPaymentRepository создаёт репозиторий платежей.
func NewPaymentRepository(db common.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create сохраняет платёж в статусе PENDING. Второй незавершённый платёж
// по тому же заказу отсекается частичным уникальным индексом.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, job_id, gig_order_id, payer_id, payee_id, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING released_amount, refunded_amount
	`
	err := r.db.QueryRowxContext(ctx, query,
		payment.ID,
		payment.JobID,
		payment.GigOrderID,
		payment.PayerID,
		payment.PayeeID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Scan(&payment.ReleasedAmount, &payment.RefundedAmount)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return apperror.Conflict("по заказу уже есть незавершённый платёж")
		}
		return fmt.Errorf("payment repository: create %w", err)
	}
	return nil
}

// GetByID возвращает платёж.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return common.GetByID[models.Payment](ctx, r.db, "payments", id, apperror.ErrPaymentNotFound)
}

// GetByIDForUpdate возвращает платёж и блокирует его строку.
func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return common.GetByIDForUpdate[models.Payment](ctx, r.db, "payments", id, apperror.ErrPaymentNotFound)
}

// Update сохраняет изменяемые поля платежа, если статус в базе равен expected.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment, expected valueobject.PaymentStatus) (bool, error) {
	query := `
		UPDATE payments
		SET status = $3,
		    escrow_address = $4,
		    transaction_hash = $5,
		    dispute_reason = $6,
		    release_date = $7,
		    released_amount = $8,
		    refunded_amount = $9,
		    funded_at = $10,
		    disputed_at = $11,
		    settled_at = $12,
		    updated_at = $13
		WHERE id = $1 AND status = $2
	`
	ok, err := common.Affected(r.db.ExecContext(ctx, query,
		payment.ID,
		expected,
		payment.Status,
		payment.EscrowAddress,
		payment.TransactionHash,
		payment.DisputeReason,
		payment.ReleaseDate,
		payment.ReleasedAmount,
		payment.RefundedAmount,
		payment.FundedAt,
		payment.DisputedAt,
		payment.SettledAt,
		payment.UpdatedAt,
	))
	if err != nil {
		return false, fmt.Errorf("payment repository: update %w", err)
	}
	return ok, nil
}

// ListOverdueEscrows возвращает платежи в ESCROW, у которых наступила дата выплаты.
func (r *PaymentRepository) ListOverdueEscrows(ctx context.Context, now time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	query := `
		SELECT * FROM payments
		WHERE status = $1 AND release_date IS NOT NULL AND release_date <= $2
		ORDER BY release_date ASC
		LIMIT $3
	`
	if err := sqlx.SelectContext(ctx, r.db, &payments, query, valueobject.PaymentStatusEscrow, now, limit); err != nil {
		return nil, fmt.Errorf("payment repository: list overdue escrows %w", err)
	}
	return payments, nil
}
