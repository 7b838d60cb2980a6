package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/service"
)

// AdmissionAPI - операции над заказами и откликами, которые нужны хэндлерам.
type AdmissionAPI interface {
	CreateJob(ctx context.Context, actor service.Actor, in service.CreateJobInput) (*models.Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	CancelJob(ctx context.Context, actor service.Actor, jobID uuid.UUID) (*models.Job, error)
	ListApplications(ctx context.Context, actor service.Actor, jobID uuid.UUID) ([]models.JobApplication, error)
	Apply(ctx context.Context, actor service.Actor, jobID uuid.UUID, in service.ApplyInput) (*models.JobApplication, error)
	Decide(ctx context.Context, actor service.Actor, jobID uuid.UUID, decisions []service.Decision) (*service.DecideResult, error)
	DecideSingle(ctx context.Context, actor service.Actor, jobID, applicationID uuid.UUID, accept bool) (*models.JobApplication, error)
}

// EscrowAPI - операции над платежами.
type EscrowAPI interface {
	CreatePayment(ctx context.Context, actor service.Actor, in service.CreatePaymentInput) (*models.Payment, error)
	GetPayment(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.Payment, error)
	History(ctx context.Context, actor service.Actor, id uuid.UUID) ([]models.PaymentHistory, error)
	Fund(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.Payment, error)
	Release(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.Payment, error)
	Dispute(ctx context.Context, actor service.Actor, id uuid.UUID, reason string) (*models.Payment, error)
	Refund(ctx context.Context, actor service.Actor, id uuid.UUID, payerAmount, payeeAmount decimal.Decimal) (*models.Payment, error)
	Transition(ctx context.Context, actor service.Actor, id uuid.UUID, in service.TransitionInput) (*models.Payment, error)
}

// GigAPI - услуги фрилансеров.
type GigAPI interface {
	CreateGig(ctx context.Context, actor service.Actor, in service.CreateGigInput) (*models.Gig, error)
	GetGig(ctx context.Context, id uuid.UUID) (*models.Gig, error)
	Purchase(ctx context.Context, actor service.Actor, gigID, packageID uuid.UUID) (*service.PurchaseResult, error)
}

// NotificationAPI - чтение и отметка уведомлений.
type NotificationAPI interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	DeleteNotification(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// UserAPI - профиль текущего пользователя.
type UserAPI interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Deactivate(ctx context.Context, userID uuid.UUID) error
}

var (
	_ AdmissionAPI    = (*service.AdmissionService)(nil)
	_ EscrowAPI       = (*service.EscrowService)(nil)
	_ GigAPI          = (*service.GigService)(nil)
	_ NotificationAPI = (*service.NotificationService)(nil)
	_ UserAPI         = (*service.UserService)(nil)
)
