package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/repository/common"
)

// SettlementRequestRepository ведёт журнал обращений к шлюзу расчётов.
type SettlementRequestRepository struct {
	db common.DB
}

// NewSettlementRequestRepository создаёт репозиторий журнала.
func NewSettlementRequestRepository(db common.DB) *SettlementRequestRepository {
	return &SettlementRequestRepository{db: db}
}

// Create вставляет запрос. Если ключ уже занят, возвращает false без ошибки.
func (r *SettlementRequestRepository) Create(ctx context.Context, req *models.SettlementRequest) (bool, error) {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	params := string(req.Params)
	if params == "" {
		params = "{}"
	}

	query := `
		INSERT INTO settlement_requests (id, request_key, payment_id, action, from_status, to_status, status, params)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		ON CONFLICT (request_key) DO NOTHING
	`
	ok, err := common.Affected(r.db.ExecContext(ctx, query,
		req.ID,
		req.RequestKey,
		req.PaymentID,
		req.Action,
		req.FromStatus,
		req.ToStatus,
		req.Status,
		params,
	))
	if err != nil {
		return false, fmt.Errorf("settlement request repository: create %w", err)
	}
	return ok, nil
}

// GetByKey возвращает запрос по ключу идемпотентности.
func (r *SettlementRequestRepository) GetByKey(ctx context.Context, key string) (*models.SettlementRequest, error) {
	return common.GetByField[models.SettlementRequest](ctx, r.db, "settlement_requests", "request_key", key, apperror.ErrSettlementRequestNotFound)
}

// GetByKeyForUpdate возвращает запрос и блокирует его строку.
func (r *SettlementRequestRepository) GetByKeyForUpdate(ctx context.Context, key string) (*models.SettlementRequest, error) {
	var req models.SettlementRequest
	query := `SELECT * FROM settlement_requests WHERE request_key = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.db, &req, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrSettlementRequestNotFound
		}
		return nil, fmt.Errorf("settlement request repository: get for update %w", err)
	}
	return &req, nil
}

// ListOpenByPayment возвращает незавершённые запросы платежа.
func (r *SettlementRequestRepository) ListOpenByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.SettlementRequest, error) {
	var reqs []models.SettlementRequest
	query := `
		SELECT * FROM settlement_requests
		WHERE payment_id = $1 AND status IN ($2, $3)
		ORDER BY created_at ASC
	`
	if err := sqlx.SelectContext(ctx, r.db, &reqs, query, paymentID, models.SettlementStatusPending, models.SettlementStatusConfirmed); err != nil {
		return nil, fmt.Errorf("settlement request repository: list open %w", err)
	}
	return reqs, nil
}

// RecordAttempt увеличивает счётчик попыток и сохраняет последнюю ошибку шлюза.
func (r *SettlementRequestRepository) RecordAttempt(ctx context.Context, id uuid.UUID, lastErr string) error {
	var errText *string
	if lastErr != "" {
		errText = &lastErr
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE settlement_requests
		SET attempts = attempts + 1, last_error = $2, updated_at = NOW()
		WHERE id = $1
	`, id, errText)
	if err != nil {
		return fmt.Errorf("settlement request repository: record attempt %w", err)
	}
	return nil
}

// MarkConfirmed сохраняет подтверждение шлюза. Подтверждённый запрос не перезаписывается.
func (r *SettlementRequestRepository) MarkConfirmed(ctx context.Context, req *models.SettlementRequest) error {
	query := `
		UPDATE settlement_requests
		SET status = $2,
		    escrow_address = $3,
		    transaction_hash = $4,
		    confirmed_amount = $5,
		    last_error = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND status = $6
	`
	ok, err := common.Affected(r.db.ExecContext(ctx, query,
		req.ID,
		models.SettlementStatusConfirmed,
		req.EscrowAddress,
		req.TransactionHash,
		req.ConfirmedAmount,
		models.SettlementStatusPending,
	))
	if err != nil {
		return fmt.Errorf("settlement request repository: mark confirmed %w", err)
	}
	if !ok {
		return apperror.Conflict("запрос к шлюзу уже обработан")
	}
	req.Status = models.SettlementStatusConfirmed
	return nil
}

// MarkApplied отмечает, что результат шлюза применён к платежу.
func (r *SettlementRequestRepository) MarkApplied(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, models.SettlementStatusConfirmed, models.SettlementStatusApplied, nil)
}

// MarkFailed закрывает pending-запрос, который шлюз окончательно отклонил.
func (r *SettlementRequestRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.setStatus(ctx, id, models.SettlementStatusPending, models.SettlementStatusFailed, &reason)
}

func (r *SettlementRequestRepository) setStatus(ctx context.Context, id uuid.UUID, from, to string, lastErr *string) error {
	ok, err := common.Affected(r.db.ExecContext(ctx, `
		UPDATE settlement_requests
		SET status = $3, last_error = COALESCE($4, last_error), updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to, lastErr))
	if err != nil {
		return fmt.Errorf("settlement request repository: set status %s %w", to, err)
	}
	if !ok {
		return apperror.Conflict("запрос к шлюзу уже обработан")
	}
	return nil
}

// ListByStatus возвращает запросы в статусе status, не менявшиеся с updatedBefore.
func (r *SettlementRequestRepository) ListByStatus(ctx context.Context, status string, updatedBefore time.Time, limit int) ([]models.SettlementRequest, error) {
	var reqs []models.SettlementRequest
	query := `
		SELECT * FROM settlement_requests
		WHERE status = $1 AND updated_at <= $2
		ORDER BY updated_at ASC
		LIMIT $3
	`
	if err := sqlx.SelectContext(ctx, r.db, &reqs, query, status, updatedBefore, limit); err != nil {
		return nil, fmt.Errorf("settlement request repository: list by status %w", err)
	}
	return reqs, nil
}
