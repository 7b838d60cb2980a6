package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskfi-backend/internal/domain/entity"
	domainrepo "github.com/ignatzorin/taskfi-backend/internal/domain/repository"
	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/logger"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
)

// CreateGigInput - данные новой услуги.
type CreateGigInput struct {
	Title       string
	Description string
	Currency    string
	Packages    []entity.GigPackageInput
}

// PurchaseResult - созданный заказ услуги и ожидающий оплаты платёж.
type PurchaseResult struct {
	Order   *models.GigOrder
	Payment *models.Payment
}

// GigService - услуги фрилансеров и их покупка.
type GigService struct {
	store     domainrepo.Store
	publisher NotificationPublisher
}

func NewGigService(store domainrepo.Store, publisher NotificationPublisher) *GigService {
	return &GigService{
		store:     store,
		publisher: publisherOrNoop(publisher),
	}
}

func (s *GigService) CreateGig(ctx context.Context, actor Actor, in CreateGigInput) (*models.Gig, error) {
	if actor.Role != valueobject.RoleFreelancer {
		return nil, apperror.Forbidden("создавать услуги могут только фрилансеры")
	}

	gig, err := entity.NewGig(actor.ID, in.Title, in.Description, in.Currency, in.Packages)
	if err != nil {
		return nil, err
	}
	if err := s.store.Gigs().Create(ctx, gig); err != nil {
		return nil, err
	}
	return gig, nil
}

func (s *GigService) GetGig(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	return s.store.Gigs().GetByID(ctx, id)
}

// Purchase оформляет покупку пакета: заказ услуги в работе и PENDING платёж по нему.
func (s *GigService) Purchase(ctx context.Context, actor Actor, gigID, packageID uuid.UUID) (*PurchaseResult, error) {
	if actor.Role != valueobject.RoleHirer {
		return nil, apperror.Forbidden("покупать услуги могут только заказчики")
	}

	result := &PurchaseResult{}
	var notifications []models.Notification
	err := s.store.InTx(ctx, func(uow domainrepo.UnitOfWork) error {
		gig, err := uow.Gigs().GetByID(ctx, gigID)
		if err != nil {
			return err
		}
		if !gig.IsActive {
			return apperror.InvalidState("услуга снята с продажи")
		}
		if gig.FreelancerID == actor.ID {
			return apperror.PolicyViolation("нельзя купить собственную услугу")
		}
		pkg, err := uow.Gigs().GetPackage(ctx, gigID, packageID)
		if err != nil {
			return err
		}

		now := time.Now()
		order := &models.GigOrder{
			ID:           uuid.New(),
			GigID:        gig.ID,
			PackageID:    pkg.ID,
			BuyerID:      actor.ID,
			FreelancerID: gig.FreelancerID,
			Title:        fmt.Sprintf("%s: %s", gig.Title, pkg.Name),
			Amount:       pkg.Price,
			Currency:     gig.Currency,
			Status:       valueobject.OrderStatusInProgress,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := uow.Gigs().CreateOrder(ctx, order); err != nil {
			return err
		}

		orderID := order.ID
		payment := &models.Payment{
			ID:         uuid.New(),
			GigOrderID: &orderID,
			PayerID:    actor.ID,
			PayeeID:    gig.FreelancerID,
			Amount:     pkg.Price,
			Currency:   gig.Currency,
			Status:     valueobject.PaymentStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := uow.Payments().Create(ctx, payment); err != nil {
			return err
		}

		out := newOutbox(uow)
		out.addPayload(gig.FreelancerID, models.NotificationGigOrdered, "Новый заказ услуги",
			fmt.Sprintf("Пакет «%s» услуги «%s» куплен за %s", pkg.Name, gig.Title, money(pkg.Price, gig.Currency)),
			map[string]interface{}{
				"gig_id":       gig.ID,
				"gig_order_id": order.ID,
				"payment_id":   payment.ID,
				"amount":       pkg.Price.StringFixed(2),
				"currency":     gig.Currency,
			})
		notifications, err = out.flush(ctx)
		if err != nil {
			return err
		}

		result.Order = order
		result.Payment = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"gig_order_id": result.Order.ID,
		"payment_id":   result.Payment.ID,
		"buyer_id":     actor.ID,
	}).Info("gig: услуга куплена")

	s.publisher.Publish(ctx, notifications)
	return result, nil
}
