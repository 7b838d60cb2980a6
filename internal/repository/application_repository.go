package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/repository/common"
)

// ApplicationRepository отвечает за отклики на заказы.
type ApplicationRepository struct {
	db common.DB
}

// NewApplicationRepository создаёт репозиторий откликов.
func NewApplicationRepository(db common.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create сохраняет отклик. Повторный отклик того же фрилансера даёт Conflict.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.JobApplication) error {
	query := `
		INSERT INTO job_applications (id, job_id, freelancer_id, cover_letter, proposed_budget, delivery_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		app.ID,
		app.JobID,
		app.FreelancerID,
		app.CoverLetter,
		app.ProposedBudget,
		app.DeliveryDays,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return apperror.Conflict("вы уже откликнулись на этот заказ")
		}
		return fmt.Errorf("application repository: create %w", err)
	}
	return nil
}

// GetByID возвращает отклик.
func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error) {
	return common.GetByID[models.JobApplication](ctx, r.db, "job_applications", id, apperror.ErrApplicationNotFound)
}

// ListByJob возвращает отклики заказа в порядке подачи.
func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.JobApplication, error) {
	var apps []models.JobApplication
	query := `SELECT * FROM job_applications WHERE job_id = $1 ORDER BY created_at ASC`
	if err := sqlx.SelectContext(ctx, r.db, &apps, query, jobID); err != nil {
		return nil, fmt.Errorf("application repository: list by job %w", err)
	}
	return apps, nil
}

// ExistsForFreelancer проверяет, откликался ли фрилансер на заказ.
func (r *ApplicationRepository) ExistsForFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM job_applications WHERE job_id = $1 AND freelancer_id = $2)`
	if err := sqlx.GetContext(ctx, r.db, &exists, query, jobID, freelancerID); err != nil {
		return false, fmt.Errorf("application repository: exists %w", err)
	}
	return exists, nil
}

// GetAccepted возвращает принятый отклик заказа или nil.
func (r *ApplicationRepository) GetAccepted(ctx context.Context, jobID uuid.UUID) (*models.JobApplication, error) {
	var app models.JobApplication
	query := `SELECT * FROM job_applications WHERE job_id = $1 AND is_accepted = TRUE`
	if err := sqlx.GetContext(ctx, r.db, &app, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("application repository: get accepted %w", err)
	}
	return &app, nil
}

// Accept принимает отклик, если решение по нему ещё не принято.
func (r *ApplicationRepository) Accept(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.decide(ctx, id, true)
}

// Reject отклоняет отклик, если решение по нему ещё не принято.
func (r *ApplicationRepository) Reject(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.decide(ctx, id, false)
}

func (r *ApplicationRepository) decide(ctx context.Context, id uuid.UUID, accept bool) (bool, error) {
	query := `
		UPDATE job_applications
		SET is_accepted = $2, decided_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_accepted IS NULL
	`
	ok, err := common.Affected(r.db.ExecContext(ctx, query, id, accept))
	if err != nil {
		return false, fmt.Errorf("application repository: decide %w", err)
	}
	return ok, nil
}

// RejectPending отклоняет все ожидающие отклики заказа, кроме exceptID.
func (r *ApplicationRepository) RejectPending(ctx context.Context, jobID uuid.UUID, exceptID *uuid.UUID) ([]models.JobApplication, error) {
	query := `
		UPDATE job_applications
		SET is_accepted = FALSE, decided_at = NOW(), updated_at = NOW()
		WHERE job_id = $1 AND is_accepted IS NULL AND ($2::uuid IS NULL OR id <> $2)
		RETURNING *
	`
	var rejected []models.JobApplication
	if err := sqlx.SelectContext(ctx, r.db, &rejected, query, jobID, exceptID); err != nil {
		return nil, fmt.Errorf("application repository: reject pending %w", err)
	}
	return rejected, nil
}
