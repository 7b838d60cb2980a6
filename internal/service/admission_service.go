package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskfi-backend/internal/domain/entity"
	domainrepo "github.com/ignatzorin/taskfi-backend/internal/domain/repository"
	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/logger"
	"github.com/ignatzorin/taskfi-backend/internal/metrics"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/validation"
)

// CreateJobInput - данные нового заказа.
type CreateJobInput struct {
	Title       string
	Description string
	Budget      decimal.Decimal
	Currency    string
	DeadlineAt  *time.Time
}

// ApplyInput - отклик фрилансера на заказ.
type ApplyInput struct {
	CoverLetter    string
	ProposedBudget decimal.Decimal
	DeliveryDays   *int
}

// Decision - решение по одному отклику.
type Decision struct {
	ApplicationID uuid.UUID
	Accept        bool
}

// DecideResult - итог пакетного решения.
type DecideResult struct {
	Job      *models.Job
	Accepted *models.JobApplication
	Rejected []models.JobApplication
}

// AdmissionService отвечает за заказы и отклики на них: подачу отклика и выбор исполнителя.
type AdmissionService struct {
	store     domainrepo.Store
	publisher NotificationPublisher
}

func NewAdmissionService(store domainrepo.Store, publisher NotificationPublisher) *AdmissionService {
	return &AdmissionService{
		store:     store,
		publisher: publisherOrNoop(publisher),
	}
}

// CreateJob размещает новый OPEN заказ.
func (s *AdmissionService) CreateJob(ctx context.Context, actor Actor, in CreateJobInput) (*models.Job, error) {
	if actor.Role != valueobject.RoleHirer {
		return nil, apperror.Forbidden("размещать заказы могут только заказчики")
	}

	job, err := entity.NewJob(actor.ID, in.Title, in.Description, in.Budget, in.Currency, in.DeadlineAt)
	if err != nil {
		return nil, err
	}
	if err := s.store.Jobs().Create(ctx, job); err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"hirer_id": actor.ID,
	}).Info("admission: заказ создан")
	return job, nil
}

func (s *AdmissionService) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.store.Jobs().GetByID(ctx, id)
}

// ListApplications возвращает отклики заказа. Заказчик и администратор видят все,
// фрилансер только свой.
func (s *AdmissionService) ListApplications(ctx context.Context, actor Actor, jobID uuid.UUID) ([]models.JobApplication, error) {
	job, err := s.store.Jobs().GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	apps, err := s.store.Applications().ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.HirerID == actor.ID || actor.IsAdmin() {
		return apps, nil
	}

	own := make([]models.JobApplication, 0, 1)
	for _, app := range apps {
		if app.FreelancerID == actor.ID {
			own = append(own, app)
		}
	}
	return own, nil
}

// Apply подаёт отклик фрилансера на открытый заказ и уведомляет заказчика.
func (s *AdmissionService) Apply(ctx context.Context, actor Actor, jobID uuid.UUID, in ApplyInput) (*models.JobApplication, error) {
	app, err := entity.NewApplication(jobID, actor.ID, in.CoverLetter, in.ProposedBudget, in.DeliveryDays)
	if err != nil {
		return nil, err
	}
	if actor.Role != valueobject.RoleFreelancer {
		return nil, apperror.Forbidden("откликаться на заказы могут только фрилансеры")
	}

	var notifications []models.Notification
	err = s.store.InTx(ctx, func(uow domainrepo.UnitOfWork) error {
		job, err := uow.Jobs().GetByIDForUpdate(ctx, jobID)
		if err != nil {
			return err
		}

		accepted, err := uow.Applications().GetAccepted(ctx, jobID)
		if err != nil {
			return err
		}
		if accepted != nil {
			return apperror.Conflict("исполнитель для заказа уже выбран")
		}
		if err := entity.CheckApplicationPolicy(job, actor.ID, in.ProposedBudget); err != nil {
			return err
		}

		exists, err := uow.Applications().ExistsForFreelancer(ctx, jobID, actor.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperror.Conflict("вы уже откликнулись на этот заказ")
		}

		if err := uow.Applications().Create(ctx, app); err != nil {
			return err
		}

		out := newOutbox(uow)
		out.addPayload(job.HirerID, models.NotificationApplicationReceived, "Новый отклик",
			fmt.Sprintf("На заказ «%s» пришёл отклик с ценой %s", job.Title, money(app.ProposedBudget, job.Currency)),
			applicationPayload(job, app))
		notifications, err = out.flush(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, notifications)
	return app, nil
}

// Decide принимает ровно один отклик и отклоняет все остальные ожидающие,
// переводя заказ в IN_PROGRESS. Из двух конкурирующих решений проходит одно,
// второе получает Conflict.
func (s *AdmissionService) Decide(ctx context.Context, actor Actor, jobID uuid.UUID, decisions []Decision) (*DecideResult, error) {
	job, err := s.store.Jobs().GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.HirerID != actor.ID && !actor.IsAdmin() {
		return nil, apperror.Forbidden("принимать решения по откликам может только заказчик")
	}

	acceptID, err := validateDecisions(decisions)
	if err != nil {
		metrics.RecordDecision("rejected_input")
		return nil, err
	}

	result := &DecideResult{}
	var notifications []models.Notification
	err = s.store.InTx(ctx, func(uow domainrepo.UnitOfWork) error {
		result.Rejected = nil

		job, err := uow.Jobs().GetByIDForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if err := s.checkOpenForDecision(ctx, uow, job); err != nil {
			return err
		}

		apps := make(map[uuid.UUID]*models.JobApplication, len(decisions))
		for _, d := range decisions {
			app, err := uow.Applications().GetByID(ctx, d.ApplicationID)
			if err != nil {
				return err
			}
			if app.JobID != jobID {
				return apperror.ErrApplicationNotFound
			}
			if !app.IsPending() {
				return apperror.Conflict("решение по отклику уже принято, обновите страницу")
			}
			apps[app.ID] = app
		}

		ok, err := uow.Applications().Accept(ctx, acceptID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.ErrConcurrentUpdate
		}
		accepted := apps[acceptID]
		ok, err = uow.Jobs().AssignFreelancer(ctx, jobID, accepted.FreelancerID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.ErrConcurrentUpdate
		}

		for _, d := range decisions {
			if d.Accept {
				continue
			}
			ok, err := uow.Applications().Reject(ctx, d.ApplicationID)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.ErrConcurrentUpdate
			}
			result.Rejected = append(result.Rejected, *apps[d.ApplicationID])
		}

		rest, err := uow.Applications().RejectPending(ctx, jobID, &acceptID)
		if err != nil {
			return err
		}
		result.Rejected = append(result.Rejected, rest...)

		now := time.Now()
		accepted.IsAccepted = boolPtr(true)
		accepted.DecidedAt = &now
		freelancerID := accepted.FreelancerID
		job.FreelancerID = &freelancerID
		job.Status = valueobject.OrderStatusInProgress
		job.UpdatedAt = now

		out := newOutbox(uow)
		out.addPayload(accepted.FreelancerID, models.NotificationApplicationAccepted, "Отклик принят",
			fmt.Sprintf("Ваш отклик на заказ «%s» принят", job.Title), applicationPayload(job, accepted))
		for i := range result.Rejected {
			rejected := &result.Rejected[i]
			rejected.IsAccepted = boolPtr(false)
			out.addPayload(rejected.FreelancerID, models.NotificationApplicationRejected, "Отклик отклонён",
				fmt.Sprintf("Заказчик выбрал другого исполнителя для заказа «%s»", job.Title), applicationPayload(job, rejected))
		}
		notifications, err = out.flush(ctx)
		if err != nil {
			return err
		}

		result.Job = job
		result.Accepted = accepted
		return nil
	})
	if err != nil {
		if apperror.IsConflict(err) {
			metrics.RecordDecision("conflict")
		}
		return nil, err
	}

	metrics.RecordDecision("accepted")
	logger.Log.WithFields(logrus.Fields{
		"job_id":         jobID,
		"application_id": acceptID,
		"rejected":       len(result.Rejected),
		"actor":          actor.ID,
	}).Info("admission: исполнитель выбран")

	s.publisher.Publish(ctx, notifications)
	return result, nil
}

// DecideSingle обрабатывает решение по одному отклику. Принятие эквивалентно Decide
// с одним решением, отклонение меняет только этот отклик.
func (s *AdmissionService) DecideSingle(ctx context.Context, actor Actor, jobID, applicationID uuid.UUID, accept bool) (*models.JobApplication, error) {
	if accept {
		res, err := s.Decide(ctx, actor, jobID, []Decision{{ApplicationID: applicationID, Accept: true}})
		if err != nil {
			return nil, err
		}
		return res.Accepted, nil
	}

	job, err := s.store.Jobs().GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.HirerID != actor.ID && !actor.IsAdmin() {
		return nil, apperror.Forbidden("принимать решения по откликам может только заказчик")
	}

	var app *models.JobApplication
	var notifications []models.Notification
	err = s.store.InTx(ctx, func(uow domainrepo.UnitOfWork) error {
		job, err := uow.Jobs().GetByIDForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		app, err = uow.Applications().GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if app.JobID != jobID {
			return apperror.ErrApplicationNotFound
		}
		if !app.IsPending() {
			return apperror.Conflict("решение по отклику уже принято, обновите страницу")
		}

		ok, err := uow.Applications().Reject(ctx, applicationID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.ErrConcurrentUpdate
		}
		now := time.Now()
		app.IsAccepted = boolPtr(false)
		app.DecidedAt = &now

		out := newOutbox(uow)
		out.addPayload(app.FreelancerID, models.NotificationApplicationRejected, "Отклик отклонён",
			fmt.Sprintf("Ваш отклик на заказ «%s» отклонён", job.Title), applicationPayload(job, app))
		notifications, err = out.flush(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDecision("rejected")
	s.publisher.Publish(ctx, notifications)
	return app, nil
}

// CancelJob отменяет открытый заказ и отклоняет ожидающие отклики.
func (s *AdmissionService) CancelJob(ctx context.Context, actor Actor, jobID uuid.UUID) (*models.Job, error) {
	var job *models.Job
	var notifications []models.Notification
	err := s.store.InTx(ctx, func(uow domainrepo.UnitOfWork) error {
		var err error
		job, err = uow.Jobs().GetByIDForUpdate(ctx, jobID)
		if err != nil {
			return err
		}
		if job.HirerID != actor.ID && !actor.IsAdmin() {
			return apperror.Forbidden("отменить заказ может только заказчик")
		}

		order := &entity.JobOrder{Job: job}
		if job.Status != valueobject.OrderStatusOpen {
			return apperror.InvalidState("отменить можно только открытый заказ")
		}
		if err := transitionOrder(ctx, uow, order, valueobject.OrderStatusCancelled); err != nil {
			return err
		}

		rejected, err := uow.Applications().RejectPending(ctx, jobID, nil)
		if err != nil {
			return err
		}

		out := newOutbox(uow)
		for i := range rejected {
			out.addPayload(rejected[i].FreelancerID, models.NotificationJobCancelled, "Заказ отменён",
				fmt.Sprintf("Заказ «%s» отменён заказчиком", job.Title), applicationPayload(job, &rejected[i]))
		}
		notifications, err = out.flush(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, notifications)
	return job, nil
}

// checkOpenForDecision проверяет, что по заказу ещё не выбран исполнитель.
func (s *AdmissionService) checkOpenForDecision(ctx context.Context, uow domainrepo.UnitOfWork, job *models.Job) error {
	accepted, err := uow.Applications().GetAccepted(ctx, job.ID)
	if err != nil {
		return err
	}
	if accepted != nil || job.FreelancerID != nil {
		return apperror.Conflict("исполнитель для заказа уже выбран, обновите страницу")
	}
	if job.Status != valueobject.OrderStatusOpen {
		return apperror.InvalidState("заказ не принимает решения по откликам")
	}
	return nil
}

// validateDecisions проверяет набор решений и возвращает id принимаемого отклика.
func validateDecisions(decisions []Decision) (uuid.UUID, error) {
	if len(decisions) == 0 {
		return uuid.Nil, apperror.Validation("список решений пуст")
	}
	if len(decisions) > validation.MaxDecisionsPerRequest {
		return uuid.Nil, apperror.Validation(fmt.Sprintf("не больше %d решений за запрос", validation.MaxDecisionsPerRequest))
	}

	seen := make(map[uuid.UUID]struct{}, len(decisions))
	var acceptID uuid.UUID
	accepts := 0
	for _, d := range decisions {
		if d.ApplicationID == uuid.Nil {
			return uuid.Nil, apperror.Validation("не указан отклик")
		}
		if _, dup := seen[d.ApplicationID]; dup {
			return uuid.Nil, apperror.Validation("отклик указан в решениях дважды")
		}
		seen[d.ApplicationID] = struct{}{}
		if d.Accept {
			accepts++
			acceptID = d.ApplicationID
		}
	}
	if accepts != 1 {
		return uuid.Nil, apperror.PolicyViolation("нужно принять ровно один отклик")
	}
	return acceptID, nil
}

func applicationPayload(job *models.Job, app *models.JobApplication) map[string]interface{} {
	return map[string]interface{}{
		"job_id":          job.ID,
		"application_id":  app.ID,
		"freelancer_id":   app.FreelancerID,
		"proposed_budget": app.ProposedBudget.StringFixed(2),
		"currency":        job.Currency,
	}
}

func boolPtr(b bool) *bool {
	return &b
}
