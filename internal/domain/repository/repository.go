package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/models"
)

// UserRepository определяет операции с пользователями.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListAdmins(ctx context.Context) ([]models.User, error)
	// ApplyTotals атомарно прибавляет дельту к агрегатам пользователя.
	ApplyTotals(ctx context.Context, delta models.UserTotalsDelta) error
	HasActiveObligations(ctx context.Context, id uuid.UUID) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// JobRepository определяет операции с заказами.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	// GetByIDForUpdate блокирует строку заказа до конца транзакции.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Job, error)
	// AssignFreelancer переводит OPEN заказ без исполнителя в IN_PROGRESS.
	// Возвращает false, если условие уже не выполняется.
	AssignFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, jobID uuid.UUID, from, to valueobject.OrderStatus) (bool, error)
}

// ApplicationRepository определяет операции с откликами на заказ.
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.JobApplication) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.JobApplication, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.JobApplication, error)
	ExistsForFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (bool, error)
	GetAccepted(ctx context.Context, jobID uuid.UUID) (*models.JobApplication, error)
	// Accept и Reject меняют только отклики, ожидающие решения.
	Accept(ctx context.Context, id uuid.UUID) (bool, error)
	Reject(ctx context.Context, id uuid.UUID) (bool, error)
	// RejectPending отклоняет все ожидающие отклики заказа, кроме exceptID, и возвращает их.
	RejectPending(ctx context.Context, jobID uuid.UUID, exceptID *uuid.UUID) ([]models.JobApplication, error)
}

// GigRepository определяет операции с услугами и их заказами.
type GigRepository interface {
	Create(ctx context.Context, gig *models.Gig) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Gig, error)
	GetPackage(ctx context.Context, gigID, packageID uuid.UUID) (*models.GigPackage, error)
	CreateOrder(ctx context.Context, order *models.GigOrder) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.GigOrder, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (*models.GigOrder, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to valueobject.OrderStatus) (bool, error)
	// DeactivateByFreelancer снимает с продажи все услуги фрилансера.
	DeactivateByFreelancer(ctx context.Context, freelancerID uuid.UUID) error
}

// PaymentRepository определяет операции с платежами.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	// Update сохраняет платёж, только если его статус в базе всё ещё expected.
	Update(ctx context.Context, payment *models.Payment, expected valueobject.PaymentStatus) (bool, error)
	ListOverdueEscrows(ctx context.Context, now time.Time, limit int) ([]models.Payment, error)
}

// PaymentHistoryRepository хранит журнал применённых переходов.
type PaymentHistoryRepository interface {
	Create(ctx context.Context, entry *models.PaymentHistory) error
	ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentHistory, error)
}

// SettlementRequestRepository хранит журнал обращений к шлюзу расчётов.
type SettlementRequestRepository interface {
	// Create вставляет запрос; false, если запрос с таким ключом уже есть.
	Create(ctx context.Context, req *models.SettlementRequest) (bool, error)
	GetByKey(ctx context.Context, key string) (*models.SettlementRequest, error)
	GetByKeyForUpdate(ctx context.Context, key string) (*models.SettlementRequest, error)
	// ListOpenByPayment возвращает pending и confirmed запросы платежа.
	ListOpenByPayment(ctx context.Context, paymentID uuid.UUID) ([]models.SettlementRequest, error)
	RecordAttempt(ctx context.Context, id uuid.UUID, lastErr string) error
	MarkConfirmed(ctx context.Context, req *models.SettlementRequest) error
	MarkApplied(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	ListByStatus(ctx context.Context, status string, updatedBefore time.Time, limit int) ([]models.SettlementRequest, error)
}

// NotificationRepository определяет операции с уведомлениями.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// UnitOfWork даёт доступ к репозиториям, работающим в одной транзакции.
type UnitOfWork interface {
	Users() UserRepository
	Jobs() JobRepository
	Applications() ApplicationRepository
	Gigs() GigRepository
	Payments() PaymentRepository
	History() PaymentHistoryRepository
	Settlements() SettlementRequestRepository
	Notifications() NotificationRepository
}

// Store - точка входа в хранилище. Методы UnitOfWork вне InTx работают
// без транзакции и годятся только для чтения и одиночных записей.
type Store interface {
	UnitOfWork
	// InTx выполняет fn в сериализуемой транзакции. Конфликты сериализации
	// повторяются ограниченное число раз, после чего возвращается Conflict.
	InTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}
