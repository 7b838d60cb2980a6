package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	domainrepo "github.com/ignatzorin/taskfi-backend/internal/domain/repository"
	"github.com/ignatzorin/taskfi-backend/internal/logger"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/repository/common"
)

const defaultTxMaxRetries = 3

// unitOfWork собирает репозитории поверх одного исполнителя запросов: пула или транзакции.
type unitOfWork struct {
	users         *UserRepository
	jobs          *JobRepository
	applications  *ApplicationRepository
	gigs          *GigRepository
	payments      *PaymentRepository
	history       *PaymentHistoryRepository
	settlements   *SettlementRequestRepository
	notifications *NotificationRepository
}

func newUnitOfWork(db common.DB) *unitOfWork {
	return &unitOfWork{
		users:         NewUserRepository(db),
		jobs:          NewJobRepository(db),
		applications:  NewApplicationRepository(db),
		gigs:          NewGigRepository(db),
		payments:      NewPaymentRepository(db),
		history:       NewPaymentHistoryRepository(db),
		settlements:   NewSettlementRequestRepository(db),
		notifications: NewNotificationRepository(db),
	}
}

func (u *unitOfWork) Users() domainrepo.UserRepository                    { return u.users }
func (u *unitOfWork) Jobs() domainrepo.JobRepository                      { return u.jobs }
func (u *unitOfWork) Applications() domainrepo.ApplicationRepository      { return u.applications }
func (u *unitOfWork) Gigs() domainrepo.GigRepository                      { return u.gigs }
func (u *unitOfWork) Payments() domainrepo.PaymentRepository              { return u.payments }
func (u *unitOfWork) History() domainrepo.PaymentHistoryRepository        { return u.history }
func (u *unitOfWork) Settlements() domainrepo.SettlementRequestRepository { return u.settlements }
func (u *unitOfWork) Notifications() domainrepo.NotificationRepository    { return u.notifications }

// Store реализует domainrepo.Store поверх PostgreSQL.
type Store struct {
	*unitOfWork
	db         *sqlx.DB
	maxRetries int
}

// NewStore создаёт хранилище. maxRetries <= 0 означает значение по умолчанию.
func NewStore(db *sqlx.DB, maxRetries int) *Store {
	if maxRetries <= 0 {
		maxRetries = defaultTxMaxRetries
	}
	return &Store{
		unitOfWork: newUnitOfWork(db),
		db:         db,
		maxRetries: maxRetries,
	}
}

// InTx выполняет fn в транзакции SERIALIZABLE и повторяет её при конфликте сериализации.
func (s *Store) InTx(ctx context.Context, fn func(uow domainrepo.UnitOfWork) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}

	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err = common.WithTransaction(ctx, s.db, opts, func(tx *sqlx.Tx) error {
			return fn(newUnitOfWork(tx))
		})
		if err == nil {
			return nil
		}
		if !common.IsRetryable(err) {
			return translateTxError(err)
		}
		if ctx.Err() != nil {
			break
		}
		logger.Log.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("store: конфликт сериализации, повторяем транзакцию")
	}

	return apperror.Wrap(err, apperror.ErrCodeConflict, apperror.ErrConcurrentUpdate.Message)
}

// translateTxError превращает ошибки ограничений БД в ошибки приложения.
// Ошибки приложения, возвращённые из fn, проходят без изменений.
func translateTxError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if common.IsUniqueViolation(err) || common.IsCheckViolation(err) {
		return apperror.Wrap(err, apperror.ErrCodeConflict, apperror.ErrConcurrentUpdate.Message)
	}
	return fmt.Errorf("store: %w", err)
}

var _ domainrepo.Store = (*Store)(nil)
