package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Outbound webhook delivery states.
const (
	WebhookQueued = "queued"
	WebhookSent   = "sent"
	WebhookFailed = "failed"
)

// MaxWebhookAttempts is the delivery attempt ceiling before a webhook is
// marked failed for good.
const MaxWebhookAttempts = 3

// WebhookOut tracks an outbound webhook to the Zapier catch hook.
type WebhookOut struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Event        string         `gorm:"size:100;not null;index" json:"event"`
	Payload      datatypes.JSON `gorm:"not null" json:"payload"`
	Status       string         `gorm:"size:20;not null;default:queued;index" json:"status"`
	AttemptCount int            `gorm:"not null;default:0" json:"attempt_count"`
	LastError    string         `gorm:"type:text" json:"last_error,omitempty"`
	ZapRunID     string         `gorm:"size:100" json:"zap_run_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
}

func (w *WebhookOut) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// Retryable reports whether the webhook should be picked up again by the
// hourly retry job.
func (w *WebhookOut) Retryable() bool {
	return w.Status != WebhookSent && w.AttemptCount < MaxWebhookAttempts
}
