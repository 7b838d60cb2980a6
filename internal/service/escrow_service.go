package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskfi-backend/internal/domain/entity"
	domainrepo "github.com/ignatzorin/taskfi-backend/internal/domain/repository"
	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/gateway"
	"github.com/ignatzorin/taskfi-backend/internal/logger"
	"github.com/ignatzorin/taskfi-backend/internal/metrics"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskfi-backend/internal/validation"
)

const defaultGatewayTimeout = 15 * time.Second

// TransitionInput - запрос на перевод платежа в новый статус.
type TransitionInput struct {
	To          valueobject.PaymentStatus
	Reason      string
	PayerAmount *decimal.Decimal
	PayeeAmount *decimal.Decimal
}

// CreatePaymentInput - запрос на создание платежа по заказу.
type CreatePaymentInput struct {
	JobID  uuid.UUID
	Amount *decimal.Decimal
}

// EscrowConfig - настройки машины состояний платежа.
type EscrowConfig struct {
	GatewayTimeout time.Duration
	GracePeriod    time.Duration
}

// EscrowService реализует жизненный цикл платежа через escrow.
type EscrowService struct {
	store          domainrepo.Store
	gateway        gateway.SettlementGateway
	dispatcher     *Dispatcher
	publisher      NotificationPublisher
	gatewayTimeout time.Duration
	gracePeriod    time.Duration
}

func NewEscrowService(store domainrepo.Store, gw gateway.SettlementGateway, publisher NotificationPublisher, cfg EscrowConfig) *EscrowService {
	timeout := cfg.GatewayTimeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &EscrowService{
		store:          store,
		gateway:        gw,
		dispatcher:     NewDispatcher(grace),
		publisher:      publisherOrNoop(publisher),
		gatewayTimeout: timeout,
		gracePeriod:    grace,
	}
}

// CreatePayment создаёт PENDING платёж по заказу, который находится в работе.
// Сумма по умолчанию равна предложенному бюджету принятого отклика.
func (s *EscrowService) CreatePayment(ctx context.Context, actor Actor, in CreatePaymentInput) (*models.Payment, error) {
	if in.Amount != nil {
		if _, err := valueobject.NewMoney(*in.Amount, ""); err != nil {
			return nil, err
		}
		if err := valueobject.RequirePositive("сумма платежа", *in.Amount); err != nil {
			return nil, err
		}
	}

	var payment *models.Payment
	err := s.store.InTx(ctx, func(uow domainrepo.UnitOfWork) error {
		job, err := uow.Jobs().GetByIDForUpdate(ctx, in.JobID)
		if err != nil {
			return err
		}
		if job.HirerID != actor.ID {
			return apperror.Forbidden("создать платёж может только заказчик")
		}
		if job.Status != valueobject.OrderStatusInProgress || job.FreelancerID == nil {
			return apperror.InvalidState("платёж можно создать только по заказу в работе")
		}

		accepted, err := uow.Applications().GetAccepted(ctx, job.ID)
		if err != nil {
			return err
		}
		if accepted == nil {
			return apperror.InvalidState("у заказа нет принятого отклика")
		}

		amount := accepted.ProposedBudget
		if in.Amount != nil {
			amount = *in.Amount
		}

		now := time.Now()
		jobID := job.ID
		payment = &models.Payment{
			ID:        uuid.New(),
			JobID:     &jobID,
			PayerID:   job.HirerID,
			PayeeID:   *job.FreelancerID,
			Amount:    amount,
			Currency:  job.Currency,
			Status:    valueobject.PaymentStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return uow.Payments().Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// GetPayment возвращает платёж участнику сделки или администратору.
func (s *EscrowService) GetPayment(ctx context.Context, actor Actor, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.store.Payments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, payment) {
		return nil, apperror.ErrForbidden
	}
	return payment, nil
}

// History возвращает журнал переходов платежа.
func (s *EscrowService) History(ctx context.Context, actor Actor, id uuid.UUID) ([]models.PaymentHistory, error) {
	if _, err := s.GetPayment(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.History().ListByPayment(ctx, id)
}

// Fund переводит платёж PENDING → ESCROW.
func (s *EscrowService) Fund(ctx context.Context, actor Actor, id uuid.UUID) (*models.Payment, error) {
	return s.Transition(ctx, actor, id, TransitionInput{To: valueobject.PaymentStatusEscrow})
}

// Release переводит средства исполнителю.
func (s *EscrowService) Release(ctx context.Context, actor Actor, id uuid.UUID) (*models.Payment, error) {
	return s.Transition(ctx, actor, id, TransitionInput{To: valueobject.PaymentStatusReleased})
}

// Dispute открывает спор по платежу.
func (s *EscrowService) Dispute(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*models.Payment, error) {
	return s.Transition(ctx, actor, id, TransitionInput{To: valueobject.PaymentStatusDisputed, Reason: reason})
}

// Refund решает спор возвратом, возможно с разделением суммы.
func (s *EscrowService) Refund(ctx context.Context, actor Actor, id uuid.UUID, payerAmount, payeeAmount decimal.Decimal) (*models.Payment, error) {
	return s.Transition(ctx, actor, id, TransitionInput{
		To:          valueobject.PaymentStatusRefunded,
		PayerAmount: &payerAmount,
		PayeeAmount: &payeeAmount,
	})
}

// Transition - общая точка входа для всех переходов платежа.
//
// Порядок: проверка входа и прав без записи, запись запроса в журнал,
// вызов шлюза вне транзакции, сохранение подтверждения, применение перехода
// в одной сериализуемой транзакции. Если последний шаг не удался, подтверждённый
// запрос остаётся в журнале и применяется повторным вызовом или сверкой.
func (s *EscrowService) Transition(ctx context.Context, actor Actor, id uuid.UUID, in TransitionInput) (*models.Payment, error) {
	payment, err := s.store.Payments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, payment) {
		return nil, apperror.ErrForbidden
	}

	params, keyParams, err := s.prepare(payment, in)
	if err != nil {
		return nil, err
	}

	if payment.Status == in.To {
		if done, err := s.alreadyApplied(ctx, payment, in.To, keyParams); err != nil || done {
			return payment, err
		}
	}

	rule, err := payment.Status.TransitionRule(in.To)
	if err != nil {
		return nil, err
	}
	if !rule.Allows(actor.ID == payment.PayerID, actor.Role) {
		return nil, apperror.Forbidden("недостаточно прав для этого перехода платежа")
	}
	if in.To != valueobject.PaymentStatusEscrow && payment.EscrowAddress == nil {
		return nil, apperror.InvalidState("у платежа нет адреса escrow")
	}

	params.ActorID = actor.ID
	params.ActorRole = actor.Role
	req, err := s.journal(ctx, payment, in.To, params, keyParams)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case models.SettlementStatusApplied:
		return s.store.Payments().GetByID(ctx, id)
	case models.SettlementStatusPending:
		if err := s.callGateway(ctx, payment, req); err != nil {
			return nil, err
		}
	}

	return s.ApplyConfirmed(ctx, req)
}

// prepare проверяет параметры перехода и возвращает то, что нужно сохранить в журнале,
// и существенные параметры для ключа идемпотентности.
func (s *EscrowService) prepare(payment *models.Payment, in TransitionInput) (models.SettlementParams, []string, error) {
	var params models.SettlementParams

	switch in.To {
	case valueobject.PaymentStatusEscrow, valueobject.PaymentStatusReleased:
		return params, nil, nil

	case valueobject.PaymentStatusDisputed:
		if err := validation.ValidateDisputeReason(in.Reason); err != nil {
			return params, nil, apperror.Validation(err.Error())
		}
		params.Reason = strings.TrimSpace(in.Reason)
		return params, nil, nil

	case valueobject.PaymentStatusRefunded:
		payerAmount, payeeAmount, err := resolveSplit(payment.Amount, in.PayerAmount, in.PayeeAmount)
		if err != nil {
			return params, nil, err
		}
		params.PayerAmount = &payerAmount
		params.PayeeAmount = &payeeAmount
		return params, []string{payerAmount.StringFixed(2), payeeAmount.StringFixed(2)}, nil
	}

	if !in.To.IsValid() {
		return params, nil, apperror.Validation("некорректный статус платежа")
	}
	return params, nil, apperror.InvalidTransition(fmt.Sprintf("переход платежа в %s недопустим", in.To))
}

// resolveSplit проверяет разделение суммы при возврате. Без суммы - полный возврат плательщику.
func resolveSplit(amount decimal.Decimal, payer, payee *decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	switch {
	case payer == nil && payee == nil:
		return amount, decimal.Zero, nil
	case payer == nil:
		p := amount.Sub(*payee)
		payer = &p
	case payee == nil:
		p := amount.Sub(*payer)
		payee = &p
	}

	for _, v := range []decimal.Decimal{*payer, *payee} {
		if _, err := valueobject.NewMoney(v, ""); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}
	if !payer.IsPositive() {
		return decimal.Zero, decimal.Zero, apperror.Validation("сумма возврата плательщику должна быть положительной")
	}
	if !valueobject.AmountsMatch(payer.Add(*payee), amount) {
		return decimal.Zero, decimal.Zero, apperror.Validation("сумма возврата и выплаты должна равняться сумме платежа")
	}
	return *payer, *payee, nil
}

// alreadyApplied сообщает, что платёж уже перешёл в to по запросу с теми же параметрами.
// Отклонённые запросы проходятся по цепочке RetryKey так же, как в journal.
func (s *EscrowService) alreadyApplied(ctx context.Context, payment *models.Payment, to valueobject.PaymentStatus, keyParams []string) (bool, error) {
	for _, from := range to.Predecessors() {
		key := gateway.RequestKey(payment.ID, string(from), string(to), keyParams...)
		for {
			req, err := s.store.Settlements().GetByKey(ctx, key)
			if errors.Is(err, apperror.ErrSettlementRequestNotFound) {
				break
			}
			if err != nil {
				return false, err
			}
			if req.Status == models.SettlementStatusApplied {
				return true, nil
			}
			if req.Status != models.SettlementStatusFailed {
				break
			}
			key = gateway.RetryKey(key)
		}
	}
	return false, nil
}

// journal находит или создаёт запись о запросе к шлюзу.
// Окончательно отклонённые запросы пропускаются по цепочке RetryKey.
func (s *EscrowService) journal(ctx context.Context, payment *models.Payment, to valueobject.PaymentStatus, params models.SettlementParams, keyParams []string) (*models.SettlementRequest, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, apperror.Internal(err, "не удалось сохранить параметры перехода")
	}
	key := gateway.RequestKey(payment.ID, string(payment.Status), string(to), keyParams...)

	var req *models.SettlementRequest
	err = s.store.InTx(ctx, func(uow domainrepo.UnitOfWork) error {
		for {
			existing, err := uow.Settlements().GetByKeyForUpdate(ctx, key)
			if errors.Is(err, apperror.ErrSettlementRequestNotFound) {
				break
			}
			if err != nil {
				return err
			}
			if existing.Status != models.SettlementStatusFailed {
				req = existing
				return nil
			}
			key = gateway.RetryKey(key)
		}

		open, err := uow.Settlements().ListOpenByPayment(ctx, payment.ID)
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return apperror.Conflict("по платежу уже выполняется другая операция, повторите позже")
		}

		req = &models.SettlementRequest{
			RequestKey: key,
			PaymentID:  payment.ID,
			Action:     actionFor(to),
			FromStatus: payment.Status,
			ToStatus:   to,
			Status:     models.SettlementStatusPending,
			Params:     rawParams,
		}
		created, err := uow.Settlements().Create(ctx, req)
		if err != nil {
			return err
		}
		if !created {
			return apperror.ErrConcurrentUpdate
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// callGateway выполняет запрос к шлюзу и сохраняет подтверждение.
// При ошибке платёж не меняется, запрос остаётся pending или становится failed.
func (s *EscrowService) callGateway(ctx context.Context, payment *models.Payment, req *models.SettlementRequest) error {
	params, err := req.DecodeParams()
	if err != nil {
		return apperror.Internal(err, "повреждены параметры запроса к шлюзу")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	start := time.Now()
	att, err := s.invoke(callCtx, payment, req, params)
	log := logger.Log.WithFields(logrus.Fields{
		"payment_id":  payment.ID,
		"action":      req.Action,
		"request_key": req.RequestKey,
	})

	if err != nil {
		metrics.RecordGatewayCall(string(req.Action), "error", time.Since(start))
		log.WithError(err).Warn("escrow: ошибка шлюза расчётов")

		if recErr := s.store.Settlements().RecordAttempt(ctx, req.ID, err.Error()); recErr != nil {
			log.WithError(recErr).Error("escrow: не удалось записать попытку")
		}
		if errors.Is(err, gateway.ErrRejected) {
			if failErr := s.store.Settlements().MarkFailed(ctx, req.ID, err.Error()); failErr != nil {
				log.WithError(failErr).Error("escrow: не удалось закрыть отклонённый запрос")
			}
		}
		return apperror.Gateway(err, "шлюз расчётов не подтвердил операцию, повторите запрос")
	}
	metrics.RecordGatewayCall(string(req.Action), "ok", time.Since(start))

	return s.confirm(ctx, payment, req, att)
}

// confirm проверяет подтверждение шлюза и сохраняет его в журнале.
func (s *EscrowService) confirm(ctx context.Context, payment *models.Payment, req *models.SettlementRequest, att *gateway.Attestation) error {
	if req.Action == models.SettlementActionFund {
		if !att.Amount.Valid || !valueobject.AmountsMatch(att.Amount.Decimal, payment.Amount) {
			reason := "сумма, подтверждённая шлюзом, не совпадает с суммой платежа"
			if err := s.store.Settlements().MarkFailed(ctx, req.ID, reason); err != nil {
				return err
			}
			return apperror.PolicyViolation(reason)
		}
		if att.EscrowAddress == "" {
			return apperror.Gateway(nil, "шлюз не вернул адрес escrow")
		}
	}

	req.EscrowAddress = stringPtr(att.EscrowAddress)
	req.TransactionHash = stringPtr(att.TransactionHash)
	req.ConfirmedAmount = att.Amount
	return s.store.Settlements().MarkConfirmed(ctx, req)
}

func (s *EscrowService) invoke(ctx context.Context, payment *models.Payment, req *models.SettlementRequest, params models.SettlementParams) (*gateway.Attestation, error) {
	escrowAddress := ""
	if payment.EscrowAddress != nil {
		escrowAddress = *payment.EscrowAddress
	}

	switch req.Action {
	case models.SettlementActionFund:
		ref, err := entity.RefForPayment(payment)
		if err != nil {
			return nil, err
		}
		orderRef, err := gateway.OrderRef(string(ref.Kind), ref.ID)
		if err != nil {
			return nil, err
		}
		return s.gateway.Fund(ctx, gateway.FundRequest{
			RequestKey: req.RequestKey,
			OrderRef:   orderRef,
			Amount:     payment.Amount,
			Currency:   payment.Currency,
			Deadline:   time.Now().Add(s.gracePeriod),
		})
	case models.SettlementActionRelease:
		return s.gateway.Release(ctx, req.RequestKey, escrowAddress)
	case models.SettlementActionDispute:
		return s.gateway.Dispute(ctx, req.RequestKey, escrowAddress, params.Reason)
	case models.SettlementActionRefund:
		if params.PayerAmount == nil || params.PayeeAmount == nil {
			return nil, fmt.Errorf("в запросе нет разделения суммы")
		}
		return s.gateway.RefundOrSplit(ctx, req.RequestKey, escrowAddress, *params.PayerAmount, *params.PayeeAmount)
	}
	return nil, fmt.Errorf("неизвестное действие %q", req.Action)
}

// ApplyConfirmed применяет подтверждённый шлюзом запрос к платежу.
// Повторный вызов для уже применённого запроса возвращает текущий платёж.
func (s *EscrowService) ApplyConfirmed(ctx context.Context, req *models.SettlementRequest) (*models.Payment, error) {
	params, err := req.DecodeParams()
	if err != nil {
		return nil, apperror.Internal(err, "повреждены параметры запроса к шлюзу")
	}

	var payment *models.Payment
	var notifications []models.Notification
	err = s.store.InTx(ctx, func(uow domainrepo.UnitOfWork) error {
		current, err := uow.Settlements().GetByKeyForUpdate(ctx, req.RequestKey)
		if err != nil {
			return err
		}

		payment, err = uow.Payments().GetByIDForUpdate(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		if current.Status == models.SettlementStatusApplied {
			return nil
		}
		if current.Status != models.SettlementStatusConfirmed {
			return apperror.InvalidState("запрос к шлюзу ещё не подтверждён")
		}
		if payment.Status != current.FromStatus {
			return apperror.ErrConcurrentUpdate
		}

		order, err := loadOrder(ctx, uow, payment)
		if err != nil {
			return err
		}

		t := Transition{
			Payment: payment,
			Order:   order,
			To:      current.ToStatus,
			Actor:   Actor{ID: params.ActorID, Role: params.ActorRole},
			Reason:  params.Reason,
			Now:     time.Now(),
		}
		if current.EscrowAddress != nil {
			t.Attestation.EscrowAddress = *current.EscrowAddress
		}
		if current.TransactionHash != nil {
			t.Attestation.TransactionHash = *current.TransactionHash
		}
		if params.PayerAmount != nil {
			t.PayerAmount = *params.PayerAmount
		}
		if params.PayeeAmount != nil {
			t.PayeeAmount = *params.PayeeAmount
		}

		notifications, err = s.dispatcher.Apply(ctx, uow, t)
		if err != nil {
			return err
		}
		return uow.Settlements().MarkApplied(ctx, current.ID)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, notifications)
	return payment, nil
}

// ResolvePending спрашивает у шлюза о зависшем pending-запросе и продвигает его.
// Возвращает true, если запрос был применён к платежу.
func (s *EscrowService) ResolvePending(ctx context.Context, req *models.SettlementRequest) (bool, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	res, err := s.gateway.Lookup(lookupCtx, req.RequestKey)
	if err != nil {
		return false, apperror.Gateway(err, "не удалось получить состояние запроса у шлюза")
	}

	switch res.State {
	case gateway.LookupConfirmed:
		payment, err := s.store.Payments().GetByID(ctx, req.PaymentID)
		if err != nil {
			return false, err
		}
		if err := s.confirm(ctx, payment, req, res.Attestation); err != nil {
			return false, err
		}
		if _, err := s.ApplyConfirmed(ctx, req); err != nil {
			return false, err
		}
		return true, nil
	case gateway.LookupFailed:
		reason := res.Reason
		if reason == "" {
			reason = "шлюз не выполнил запрос"
		}
		return false, s.store.Settlements().MarkFailed(ctx, req.ID, reason)
	}
	// pending и unknown: запрос мог ещё не дойти до шлюза, он остаётся pending,
	// и повтор уйдёт с тем же ключом идемпотентности.
	return false, nil
}

func actionFor(to valueobject.PaymentStatus) models.SettlementAction {
	switch to {
	case valueobject.PaymentStatusEscrow:
		return models.SettlementActionFund
	case valueobject.PaymentStatusDisputed:
		return models.SettlementActionDispute
	case valueobject.PaymentStatusRefunded:
		return models.SettlementActionRefund
	}
	return models.SettlementActionRelease
}

func canView(actor Actor, p *models.Payment) bool {
	return actor.IsAdmin() || actor.ID == p.PayerID || actor.ID == p.PayeeID
}
