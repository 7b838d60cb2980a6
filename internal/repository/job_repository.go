package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/repository/common"
)

// JobRepository отвечает за заказы.
type JobRepository struct {
	db common.DB
}

// NewJobRepository создаёт репозиторий заказов.
func NewJobRepository(db common.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create сохраняет новый заказ.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, hirer_id, title, description, budget, currency, status, deadline_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.HirerID,
		job.Title,
		job.Description,
		job.Budget,
		job.Currency,
		job.Status,
		job.DeadlineAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("job repository: create %w", err)
	}
	return nil
}

// GetByID возвращает заказ.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return common.GetByID[models.Job](ctx, r.db, "jobs", id, apperror.ErrJobNotFound)
}

// GetByIDForUpdate возвращает заказ и блокирует его строку.
func (r *JobRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return common.GetByIDForUpdate[models.Job](ctx, r.db, "jobs", id, apperror.ErrJobNotFound)
}

// AssignFreelancer назначает исполнителя только открытому заказу без исполнителя.
func (r *JobRepository) AssignFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (bool, error) {
	query := `
		UPDATE jobs
		SET freelancer_id = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4 AND freelancer_id IS NULL
	`
	ok, err := common.Affected(r.db.ExecContext(ctx, query, jobID, freelancerID, valueobject.OrderStatusInProgress, valueobject.OrderStatusOpen))
	if err != nil {
		return false, fmt.Errorf("job repository: assign freelancer %w", err)
	}
	return ok, nil
}

// UpdateStatus меняет статус заказа, если текущий статус равен from.
func (r *JobRepository) UpdateStatus(ctx context.Context, jobID uuid.UUID, from, to valueobject.OrderStatus) (bool, error) {
	ok, err := common.Affected(r.db.ExecContext(ctx,
		`UPDATE jobs SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`, jobID, from, to))
	if err != nil {
		return false, fmt.Errorf("job repository: update status %w", err)
	}
	return ok, nil
}
