package service

import (
	"context"

	"github.com/google/uuid"

	domainrepo "github.com/ignatzorin/taskfi-backend/internal/domain/repository"
	"github.com/ignatzorin/taskfi-backend/internal/logger"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
)

// UserService - профиль текущего пользователя.
type UserService struct {
	store domainrepo.Store
}

func NewUserService(store domainrepo.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) GetMe(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.store.Users().GetByID(ctx, userID)
}

// Deactivate мягко отключает пользователя и снимает с продажи его услуги.
// Пока у него есть незавершённые заказы или платежи, отключение запрещено.
func (s *UserService) Deactivate(ctx context.Context, userID uuid.UUID) error {
	err := s.store.InTx(ctx, func(uow domainrepo.UnitOfWork) error {
		if _, err := uow.Users().GetByID(ctx, userID); err != nil {
			return err
		}
		busy, err := uow.Users().HasActiveObligations(ctx, userID)
		if err != nil {
			return err
		}
		if busy {
			return apperror.PolicyViolation("сначала завершите заказы и платежи")
		}
		if err := uow.Gigs().DeactivateByFreelancer(ctx, userID); err != nil {
			return err
		}
		return uow.Users().Deactivate(ctx, userID)
	})
	if err != nil {
		return err
	}

	logger.Log.WithField("user_id", userID).Info("user: пользователь отключён")
	return nil
}
