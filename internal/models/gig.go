package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/taskfi-backend/internal/domain/valueobject"
)

// Gig - готовая услуга фрилансера с набором пакетов фиксированной цены.
type Gig struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	FreelancerID uuid.UUID    `db:"freelancer_id" json:"freelancer_id"`
	Title        string       `db:"title" json:"title"`
	Description  string       `db:"description" json:"description"`
	Currency     string       `db:"currency" json:"currency"`
	IsActive     bool         `db:"is_active" json:"is_active"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
	Packages     []GigPackage `db:"-" json:"packages,omitempty"`
}

// GigPackage - пакет услуги.
type GigPackage struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	GigID        uuid.UUID       `db:"gig_id" json:"gig_id"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	Price        decimal.Decimal `db:"price" json:"price"`
	DeliveryDays int             `db:"delivery_days" json:"delivery_days"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// GigOrder - покупка пакета услуги.
type GigOrder struct {
	ID           uuid.UUID               `db:"id" json:"id"`
	GigID        uuid.UUID               `db:"gig_id" json:"gig_id"`
	PackageID    uuid.UUID               `db:"package_id" json:"package_id"`
	BuyerID      uuid.UUID               `db:"buyer_id" json:"buyer_id"`
	FreelancerID uuid.UUID               `db:"freelancer_id" json:"freelancer_id"`
	Title        string                  `db:"title" json:"title"`
	Amount       decimal.Decimal         `db:"amount" json:"amount"`
	Currency     string                  `db:"currency" json:"currency"`
	Status       valueobject.OrderStatus `db:"status" json:"status"`
	CreatedAt    time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time               `db:"updated_at" json:"updated_at"`
}
