package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Типы уведомлений.
const (
	NotificationApplicationReceived = "application_received"
	NotificationApplicationAccepted = "application_accepted"
	NotificationApplicationRejected = "application_rejected"
	NotificationJobCancelled        = "job_cancelled"
	NotificationGigOrdered          = "gig_ordered"
	NotificationPaymentFunded       = "payment_funded"
	NotificationPaymentReleased     = "payment_released"
	NotificationPaymentDisputed     = "payment_disputed"
	NotificationPaymentRefunded     = "payment_refunded"
)

// Notification - запись о побочном эффекте перехода.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Type      string          `db:"type" json:"type"`
	Title     string          `db:"title" json:"title"`
	Message   string          `db:"message" json:"message"`
	Payload   json.RawMessage `db:"payload" json:"payload,omitempty"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
