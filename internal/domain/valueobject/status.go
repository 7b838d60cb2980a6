package valueobject

import "github.com/ignatzorin/taskfi-backend/internal/pkg/apperror"

type Role string

const (
	RoleFreelancer Role = "FREELANCER"
	RoleHirer      Role = "HIRER"
	RoleAdmin      Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleFreelancer, RoleHirer, RoleAdmin:
		return true
	}
	return false
}

func NewRole(role string) (Role, error) {
	r := Role(role)
	if !r.IsValid() {
		return "", apperror.Validation("некорректная роль пользователя")
	}
	return r, nil
}

// OrderStatus - статус заказа: и обычного (Job), и заказа услуги (GigOrder).
// Заказ услуги создаётся сразу в IN_PROGRESS и никогда не бывает OPEN.
type OrderStatus string

const (
	OrderStatusOpen       OrderStatus = "OPEN"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusDisputed   OrderStatus = "DISPUTED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusOpen:       {OrderStatusInProgress, OrderStatusCancelled},
	OrderStatusInProgress: {OrderStatusCompleted, OrderStatusDisputed},
	OrderStatusDisputed:   {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	for _, status := range orderTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// HasFreelancer сообщает, должен ли в этом статусе быть назначен исполнитель.
func (s OrderStatus) HasFreelancer() bool {
	switch s {
	case OrderStatusInProgress, OrderStatusCompleted, OrderStatusDisputed:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusEscrow   PaymentStatus = "ESCROW"
	PaymentStatusReleased PaymentStatus = "RELEASED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
	PaymentStatusDisputed PaymentStatus = "DISPUTED"
)

// ActorRule определяет, кто вправе выполнить переход платежа.
type ActorRule int

const (
	ActorPayerOrAdmin ActorRule = iota + 1
	ActorPayerOnly
	ActorAdminOnly
)

// Allows проверяет, подходит ли участник под правило.
func (r ActorRule) Allows(isPayer bool, role Role) bool {
	switch r {
	case ActorPayerOrAdmin:
		return isPayer || role == RoleAdmin
	case ActorPayerOnly:
		return isPayer
	case ActorAdminOnly:
		return role == RoleAdmin
	}
	return false
}

// paymentTransitions - единственные допустимые рёбра жизненного цикла платежа.
var paymentTransitions = map[PaymentStatus]map[PaymentStatus]ActorRule{
	PaymentStatusPending: {
		PaymentStatusEscrow: ActorPayerOrAdmin,
	},
	PaymentStatusEscrow: {
		PaymentStatusReleased: ActorPayerOrAdmin,
		PaymentStatusDisputed: ActorPayerOnly,
	},
	PaymentStatusDisputed: {
		PaymentStatusRefunded: ActorAdminOnly,
		PaymentStatusReleased: ActorAdminOnly,
	},
	PaymentStatusReleased: {},
	PaymentStatusRefunded: {},
}

func (s PaymentStatus) IsValid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) CanTransitionTo(newStatus PaymentStatus) bool {
	_, ok := paymentTransitions[s][newStatus]
	return ok
}

// TransitionRule возвращает правило доступа для перехода или InvalidTransition.
func (s PaymentStatus) TransitionRule(newStatus PaymentStatus) (ActorRule, error) {
	rule, ok := paymentTransitions[s][newStatus]
	if !ok {
		return 0, apperror.InvalidTransition("переход платежа из " + string(s) + " в " + string(newStatus) + " недопустим")
	}
	return rule, nil
}

// Predecessors возвращает статусы, из которых платёж может попасть в s.
func (s PaymentStatus) Predecessors() []PaymentStatus {
	var from []PaymentStatus
	for _, candidate := range []PaymentStatus{PaymentStatusPending, PaymentStatusEscrow, PaymentStatusDisputed} {
		if candidate.CanTransitionTo(s) {
			from = append(from, candidate)
		}
	}
	return from
}

func NewPaymentStatus(status string) (PaymentStatus, error) {
	s := PaymentStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("некорректный статус платежа")
	}
	return s, nil
}
