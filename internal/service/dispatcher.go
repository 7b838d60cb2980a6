package service

import (
	"context"
	"encoding/json"
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
)

// DefaultGracePeriod - через сколько после пополнения escrow наступает рекомендуемая дата выплаты.
const DefaultGracePeriod = 7 * 24 * time.Hour

// Transition описывает один переход платежа вместе с данными, подтверждёнными шлюзом.
type Transition struct {
	Payment     *models.Payment
	Order       entity.Order
	To          valueobject.PaymentStatus
	Actor       Actor
	Attestation AttestationData
	Reason      string
	PayerAmount decimal.Decimal
	PayeeAmount decimal.Decimal
	Now         time.Time
}

// AttestationData - сохранённое подтверждение шлюза.
type AttestationData struct {
	EscrowAddress   string
	TransactionHash string
}

// Dispatcher - единственное место, где применяется переход платежа: статус и поля платежа,
// агрегаты пользователей, статус заказа, уведомления и запись в историю.
// Все изменения выполняются через переданный UnitOfWork и коммитятся вместе.
type Dispatcher struct {
	gracePeriod time.Duration
}

func NewDispatcher(gracePeriod time.Duration) *Dispatcher {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &Dispatcher{gracePeriod: gracePeriod}
}

// Apply применяет переход и возвращает созданные уведомления.
// Повторов нет: любая ошибка прерывает всю единицу работы.
func (d *Dispatcher) Apply(ctx context.Context, uow domainrepo.UnitOfWork, t Transition) ([]models.Notification, error) {
	p := t.Payment
	from := p.Status
	if !from.CanTransitionTo(t.To) {
		return nil, apperror.InvalidTransition(fmt.Sprintf("переход платежа из %s в %s недопустим", from, t.To))
	}
	if err := checkParties(p, t.Order); err != nil {
		return nil, err
	}

	now := t.Now
	if now.IsZero() {
		now = time.Now()
	}
	p.Status = t.To
	p.UpdatedAt = now

	out := newOutbox(uow)
	amount := money(p.Amount, p.Currency)
	title := t.Order.Title()

	var deltas []models.UserTotalsDelta
	var orderTarget valueobject.OrderStatus

	switch t.To {
	case valueobject.PaymentStatusEscrow:
		releaseDate := now.Add(d.gracePeriod)
		p.EscrowAddress = stringPtr(t.Attestation.EscrowAddress)
		p.TransactionHash = stringPtr(t.Attestation.TransactionHash)
		p.FundedAt = &now
		p.ReleaseDate = &releaseDate

		deltas = append(deltas, models.UserTotalsDelta{UserID: p.PayerID, SpentDelta: p.Amount})
		out.add(p.PayeeID, models.NotificationPaymentFunded, "Заказ оплачен",
			fmt.Sprintf("Средства %s по заказу «%s» зарезервированы в escrow", amount, title), p, t.Actor)

	case valueobject.PaymentStatusReleased:
		p.TransactionHash = stringPtr(t.Attestation.TransactionHash)
		p.ReleasedAmount = p.Amount
		p.SettledAt = &now

		deltas = append(deltas, models.UserTotalsDelta{UserID: p.PayeeID, EarnedDelta: p.Amount, CompletedJobs: 1})
		orderTarget = valueobject.OrderStatusCompleted
		out.add(p.PayeeID, models.NotificationPaymentReleased, "Оплата получена",
			fmt.Sprintf("Средства %s по заказу «%s» переведены вам", amount, title), p, t.Actor)
		if from == valueobject.PaymentStatusDisputed {
			out.add(p.PayerID, models.NotificationPaymentReleased, "Спор решён в пользу исполнителя",
				fmt.Sprintf("Средства %s по заказу «%s» переведены исполнителю", amount, title), p, t.Actor)
		}

	case valueobject.PaymentStatusDisputed:
		reason := t.Reason
		p.DisputeReason = &reason
		p.DisputedAt = &now
		if t.Attestation.TransactionHash != "" {
			p.TransactionHash = stringPtr(t.Attestation.TransactionHash)
		}

		orderTarget = valueobject.OrderStatusDisputed
		admins, err := uow.Users().ListAdmins(ctx)
		if err != nil {
			return nil, err
		}
		message := fmt.Sprintf("По заказу «%s» на сумму %s открыт спор: %s", title, amount, reason)
		for _, admin := range admins {
			out.add(admin.ID, models.NotificationPaymentDisputed, "Открыт спор", message, p, t.Actor)
		}
		out.add(p.PayeeID, models.NotificationPaymentDisputed, "Открыт спор", message, p, t.Actor)

	case valueobject.PaymentStatusRefunded:
		p.TransactionHash = stringPtr(t.Attestation.TransactionHash)
		p.RefundedAmount = t.PayerAmount
		p.ReleasedAmount = t.PayeeAmount
		p.SettledAt = &now

		deltas = append(deltas, models.UserTotalsDelta{UserID: p.PayerID, SpentDelta: t.PayerAmount.Neg()})
		orderTarget = valueobject.OrderStatusCancelled
		if t.PayeeAmount.IsPositive() {
			orderTarget = valueobject.OrderStatusCompleted
			deltas = append(deltas, models.UserTotalsDelta{UserID: p.PayeeID, EarnedDelta: t.PayeeAmount, CompletedJobs: 1})
		}

		refunded := money(t.PayerAmount, p.Currency)
		out.add(p.PayerID, models.NotificationPaymentRefunded, "Средства возвращены",
			fmt.Sprintf("По заказу «%s» вам возвращено %s", title, refunded), p, t.Actor)
		out.add(p.PayeeID, models.NotificationPaymentRefunded, "Спор решён",
			fmt.Sprintf("По заказу «%s» вам переведено %s, плательщику возвращено %s", title, money(t.PayeeAmount, p.Currency), refunded), p, t.Actor)
	}

	ok, err := uow.Payments().Update(ctx, p, from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrConcurrentUpdate
	}

	if orderTarget != "" {
		if err := transitionOrder(ctx, uow, t.Order, orderTarget); err != nil {
			return nil, err
		}
	}

	for _, delta := range deltas {
		if err := uow.Users().ApplyTotals(ctx, delta); err != nil {
			return nil, err
		}
	}

	notifications, err := out.flush(ctx)
	if err != nil {
		return nil, err
	}

	entry := &models.PaymentHistory{
		PaymentID:       p.ID,
		FromStatus:      from,
		ToStatus:        t.To,
		TransactionHash: p.TransactionHash,
	}
	if t.Actor.ID != uuid.Nil {
		actorID := t.Actor.ID
		entry.ActorID = &actorID
	}
	if t.Reason != "" {
		note := t.Reason
		entry.Note = &note
	}
	if err := uow.History().Create(ctx, entry); err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(from), string(t.To))
	logger.Log.WithFields(logrus.Fields{
		"payment_id": p.ID,
		"from":       from,
		"to":         t.To,
		"actor":      t.Actor.ID,
	}).Info("escrow: переход платежа применён")

	return notifications, nil
}

// checkParties сверяет стороны платежа со сторонами заказа.
func checkParties(p *models.Payment, order entity.Order) error {
	payee, assigned := order.PayeeID()
	if order.PayerID() != p.PayerID || !assigned || payee != p.PayeeID {
		return apperror.Internal(nil, "стороны платежа не совпадают с заказом")
	}
	return nil
}

// loadOrder загружает и блокирует заказ, к которому привязан платёж.
func loadOrder(ctx context.Context, uow domainrepo.UnitOfWork, p *models.Payment) (entity.Order, error) {
	ref, err := entity.RefForPayment(p)
	if err != nil {
		return nil, err
	}

	switch ref.Kind {
	case entity.OrderKindJob:
		job, err := uow.Jobs().GetByIDForUpdate(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return &entity.JobOrder{Job: job}, nil
	default:
		order, err := uow.Gigs().GetOrderForUpdate(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return &entity.GigOrder{Order: order}, nil
	}
}

// transitionOrder меняет статус заказа в памяти и сохраняет его условным UPDATE.
func transitionOrder(ctx context.Context, uow domainrepo.UnitOfWork, order entity.Order, to valueobject.OrderStatus) error {
	from := order.Status()
	if err := order.TransitionTo(to); err != nil {
		return err
	}

	var ok bool
	var err error
	switch order.Kind() {
	case entity.OrderKindJob:
		ok, err = uow.Jobs().UpdateStatus(ctx, order.OrderID(), from, to)
	default:
		ok, err = uow.Gigs().UpdateOrderStatus(ctx, order.OrderID(), from, to)
	}
	if err != nil {
		return err
	}
	if !ok {
		return apperror.ErrConcurrentUpdate
	}
	return nil
}

// outbox копит уведомления перехода и вставляет их в той же транзакции.
type outbox struct {
	uow   domainrepo.UnitOfWork
	items []models.Notification
}

func newOutbox(uow domainrepo.UnitOfWork) *outbox {
	return &outbox{uow: uow}
}

func (o *outbox) add(userID uuid.UUID, kind, title, message string, p *models.Payment, actor Actor) {
	payload := map[string]interface{}{
		"payment_id": p.ID,
		"amount":     p.Amount.StringFixed(2),
		"currency":   p.Currency,
		"status":     p.Status,
	}
	if actor.ID != uuid.Nil {
		payload["actor_id"] = actor.ID
	}
	o.addPayload(userID, kind, title, message, payload)
}

func (o *outbox) addPayload(userID uuid.UUID, kind, title, message string, payload map[string]interface{}) {
	raw, _ := json.Marshal(payload)
	o.items = append(o.items, models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
		Payload: raw,
	})
}

func (o *outbox) flush(ctx context.Context) ([]models.Notification, error) {
	for i := range o.items {
		if err := o.uow.Notifications().Create(ctx, &o.items[i]); err != nil {
			return nil, err
		}
	}
	return o.items, nil
}

func money(amount decimal.Decimal, currency string) string {
	return valueobject.Money{Amount: amount, Currency: currency}.String()
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
