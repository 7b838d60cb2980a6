package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskfi-backend/internal/models"
)

// Actor - аутентифицированный участник, от имени которого выполняется операция.
type Actor struct {
	ID   uuid.UUID
	Role valueobject.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == valueobject.RoleAdmin
}

// NotificationPublisher доставляет уже закоммиченные уведомления подключённым клиентам.
// Ошибки доставки не влияют на результат операции.
type NotificationPublisher interface {
	Publish(ctx context.Context, notifications []models.Notification)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, []models.Notification) {}

func publisherOrNoop(p NotificationPublisher) NotificationPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
