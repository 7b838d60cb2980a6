package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/repository/common"
)

// GigRepository отвечает за услуги, их пакеты и заказы услуг.
type GigRepository struct {
	db common.DB
}

// NewGigRepository создаёт репозиторий услуг.
func NewGigRepository(db common.DB) *GigRepository {
	return &GigRepository{db: db}
}

// Create сохраняет услугу вместе с пакетами.
func (r *GigRepository) Create(ctx context.Context, gig *models.Gig) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gigs (id, freelancer_id, title, description, currency, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, gig.ID, gig.FreelancerID, gig.Title, gig.Description, gig.Currency, gig.IsActive, gig.CreatedAt, gig.UpdatedAt)
	if err != nil {
		return fmt.Errorf("gig repository: create %w", err)
	}

	for _, pkg := range gig.Packages {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO gig_packages (id, gig_id, name, description, price, delivery_days, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, pkg.ID, gig.ID, pkg.Name, pkg.Description, pkg.Price, pkg.DeliveryDays, pkg.CreatedAt)
		if err != nil {
			return fmt.Errorf("gig repository: create package %w", err)
		}
	}

	return nil
}

// GetByID возвращает услугу с пакетами.
func (r *GigRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	gig, err := common.GetByID[models.Gig](ctx, r.db, "gigs", id, apperror.ErrGigNotFound)
	if err != nil {
		return nil, err
	}

	query := `SELECT * FROM gig_packages WHERE gig_id = $1 ORDER BY price ASC`
	if err := sqlx.SelectContext(ctx, r.db, &gig.Packages, query, id); err != nil {
		return nil, fmt.Errorf("gig repository: list packages %w", err)
	}

	return gig, nil
}

// GetPackage возвращает пакет услуги.
func (r *GigRepository) GetPackage(ctx context.Context, gigID, packageID uuid.UUID) (*models.GigPackage, error) {
	var pkg models.GigPackage
	query := `SELECT * FROM gig_packages WHERE id = $1 AND gig_id = $2`
	if err := sqlx.GetContext(ctx, r.db, &pkg, query, packageID, gigID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrGigPackageNotFound
		}
		return nil, fmt.Errorf("gig repository: get package %w", err)
	}
	return &pkg, nil
}

// CreateOrder сохраняет покупку пакета.
func (r *GigRepository) CreateOrder(ctx context.Context, order *models.GigOrder) error {
	query := `
		INSERT INTO gig_orders (id, gig_id, package_id, buyer_id, freelancer_id, title, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.GigID,
		order.PackageID,
		order.BuyerID,
		order.FreelancerID,
		order.Title,
		order.Amount,
		order.Currency,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("gig repository: create order %w", err)
	}
	return nil
}

// GetOrder возвращает заказ услуги.
func (r *GigRepository) GetOrder(ctx context.Context, id uuid.UUID) (*models.GigOrder, error) {
	return common.GetByID[models.GigOrder](ctx, r.db, "gig_orders", id, apperror.ErrGigOrderNotFound)
}

// GetOrderForUpdate возвращает заказ услуги и блокирует его строку.
func (r *GigRepository) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.GigOrder, error) {
	return common.GetByIDForUpdate[models.GigOrder](ctx, r.db, "gig_orders", id, apperror.ErrGigOrderNotFound)
}

// UpdateOrderStatus меняет статус заказа услуги, если текущий статус равен from.
func (r *GigRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to valueobject.OrderStatus) (bool, error) {
	ok, err := common.Affected(r.db.ExecContext(ctx,
		`UPDATE gig_orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`, id, from, to))
	if err != nil {
		return false, fmt.Errorf("gig repository: update order status %w", err)
	}
	return ok, nil
}

// DeactivateByFreelancer снимает с продажи все услуги фрилансера.
func (r *GigRepository) DeactivateByFreelancer(ctx context.Context, freelancerID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE gigs SET is_active = FALSE, updated_at = NOW() WHERE freelancer_id = $1 AND is_active = TRUE`, freelancerID)
	if err != nil {
		return fmt.Errorf("gig repository: deactivate by freelancer %w", err)
	}
	return nil
}
