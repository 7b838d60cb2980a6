package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/models"
	"github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"
)

type OrderKind string

const (
	OrderKindJob OrderKind = "job"
	OrderKindGig OrderKind = "gig"
)

// Order - то, за что платят через escrow: обычный заказ или покупка услуги.
// Машина состояний платежа работает с заказом только через этот интерфейс.
type Order interface {
	Kind() OrderKind
	OrderID() uuid.UUID
	Title() string
	PayerID() uuid.UUID
	PayeeID() (uuid.UUID, bool)
	Status() valueobject.OrderStatus
	// TransitionTo меняет статус в памяти; сохранение выполняет репозиторий.
	TransitionTo(status valueobject.OrderStatus) error
}

// OrderRef - ссылка на заказ, к которому привязан платёж.
type OrderRef struct {
	Kind OrderKind
	ID   uuid.UUID
}

// RefForPayment возвращает ссылку на заказ платежа.
func RefForPayment(p *models.Payment) (OrderRef, error) {
	switch {
	case p.JobID != nil && p.GigOrderID == nil:
		return OrderRef{Kind: OrderKindJob, ID: *p.JobID}, nil
	case p.GigOrderID != nil && p.JobID == nil:
		return OrderRef{Kind: OrderKindGig, ID: *p.GigOrderID}, nil
	}
	return OrderRef{}, apperror.Internal(nil, "платёж должен быть привязан ровно к одному заказу")
}

// JobOrder - обычный заказ.
type JobOrder struct {
	Job *models.Job
}

func (o *JobOrder) Kind() OrderKind                 { return OrderKindJob }
func (o *JobOrder) OrderID() uuid.UUID              { return o.Job.ID }
func (o *JobOrder) Title() string                   { return o.Job.Title }
func (o *JobOrder) PayerID() uuid.UUID              { return o.Job.HirerID }
func (o *JobOrder) Status() valueobject.OrderStatus { return o.Job.Status }

func (o *JobOrder) PayeeID() (uuid.UUID, bool) {
	if o.Job.FreelancerID == nil {
		return uuid.Nil, false
	}
	return *o.Job.FreelancerID, true
}

func (o *JobOrder) TransitionTo(status valueobject.OrderStatus) error {
	if !o.Job.Status.CanTransitionTo(status) {
		return apperror.InvalidState("заказ в статусе " + string(o.Job.Status) + " нельзя перевести в " + string(status))
	}
	if status.HasFreelancer() && o.Job.FreelancerID == nil {
		return apperror.InvalidState("у заказа не назначен исполнитель")
	}
	o.Job.Status = status
	o.Job.UpdatedAt = time.Now()
	return nil
}

// GigOrder - покупка пакета услуги.
type GigOrder struct {
	Order *models.GigOrder
}

func (o *GigOrder) Kind() OrderKind                 { return OrderKindGig }
func (o *GigOrder) OrderID() uuid.UUID              { return o.Order.ID }
func (o *GigOrder) Title() string                   { return o.Order.Title }
func (o *GigOrder) PayerID() uuid.UUID              { return o.Order.BuyerID }
func (o *GigOrder) PayeeID() (uuid.UUID, bool)      { return o.Order.FreelancerID, true }
func (o *GigOrder) Status() valueobject.OrderStatus { return o.Order.Status }

func (o *GigOrder) TransitionTo(status valueobject.OrderStatus) error {
	if !o.Order.Status.CanTransitionTo(status) {
		return apperror.InvalidState("заказ услуги в статусе " + string(o.Order.Status) + " нельзя перевести в " + string(status))
	}
	o.Order.Status = status
	o.Order.UpdatedAt = time.Now()
	return nil
}
