package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/repository/common"
)

// UserRepository отвечает за пользователей и их агрегаты.
type UserRepository struct {
	db common.DB
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db common.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create сохраняет пользователя. Вызывается сервисом идентификации.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, wallet_address, username, role, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING total_earned, total_spent, completed_jobs, is_active, created_at, updated_at
	`
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	err := r.db.QueryRowxContext(ctx, query, user.ID, user.WalletAddress, user.Username, user.Role).
		Scan(&user.TotalEarned, &user.TotalSpent, &user.CompletedJobs, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return apperror.Conflict("пользователь с таким кошельком уже существует")
		}
		return fmt.Errorf("user repository: create %w", err)
	}

	return nil
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, apperror.ErrUserNotFound)
}

// ListAdmins возвращает активных администраторов площадки.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	query := `SELECT * FROM users WHERE role = $1 AND is_active = TRUE ORDER BY created_at ASC`
	if err := sqlx.SelectContext(ctx, r.db, &admins, query, valueobject.RoleAdmin); err != nil {
		return nil, fmt.Errorf("user repository: list admins %w", err)
	}
	return admins, nil
}

// ApplyTotals прибавляет дельту к агрегатам пользователя одним UPDATE.
func (r *UserRepository) ApplyTotals(ctx context.Context, delta models.UserTotalsDelta) error {
	if delta.IsZero() {
		return nil
	}

	query := `
		UPDATE users
		SET total_earned = total_earned + $2,
		    total_spent = total_spent + $3,
		    completed_jobs = completed_jobs + $4,
		    updated_at = NOW()
		WHERE id = $1
	`
	ok, err := common.Affected(r.db.ExecContext(ctx, query, delta.UserID, delta.EarnedDelta, delta.SpentDelta, delta.CompletedJobs))
	if err != nil {
		return fmt.Errorf("user repository: apply totals %w", err)
	}
	if !ok {
		return apperror.ErrUserNotFound
	}

	return nil
}

// HasActiveObligations проверяет, есть ли у пользователя незавершённые заказы или платежи.
// Активные услуги сюда не входят: их снимают с продажи вместе с отключением.
func (r *UserRepository) HasActiveObligations(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM jobs
			WHERE (hirer_id = $1 OR freelancer_id = $1) AND status IN ('OPEN', 'IN_PROGRESS', 'DISPUTED')
		) OR EXISTS (
			SELECT 1 FROM gig_orders
			WHERE (buyer_id = $1 OR freelancer_id = $1) AND status IN ('IN_PROGRESS', 'DISPUTED')
		) OR EXISTS (
			SELECT 1 FROM payments
			WHERE (payer_id = $1 OR payee_id = $1) AND status IN ('PENDING', 'ESCROW', 'DISPUTED')
		)
	`
	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, id); err != nil {
		return false, fmt.Errorf("user repository: has active obligations %w", err)
	}
	return exists, nil
}

// Deactivate выполняет мягкое удаление пользователя.
func (r *UserRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	ok, err := common.Affected(r.db.ExecContext(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active = TRUE`, id))
	if err != nil {
		return fmt.Errorf("user repository: deactivate %w", err)
	}
	if !ok {
		return apperror.ErrUserNotFound
	}
	return nil
}
