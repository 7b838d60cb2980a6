package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/repository/common"
)

type PaymentHistoryRepository struct {
	db common.DB
}

func NewPaymentHistoryRepository(db common.DB) *PaymentHistoryRepository {
	return &PaymentHistoryRepository{db: db}
}

func (r *PaymentHistoryRepository) Create(ctx context.Context, entry *models.PaymentHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO payment_history (id, payment_id, actor_id, from_status, to_status, transaction_hash, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, entry.ID, entry.PaymentID, entry.ActorID, entry.FromStatus, entry.ToStatus, entry.TransactionHash, entry.Note).
		Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("payment history repository: create %w", err)
	}
	return nil
}

func (r *PaymentHistoryRepository) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentHistory, error) {
	var history []models.PaymentHistory
	err := sqlx.SelectContext(ctx, r.db, &history, `
		SELECT * FROM payment_history WHERE payment_id = $1 ORDER BY created_at ASC
	`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("payment history repository: list %w", err)
	}
	return history, nil
}
