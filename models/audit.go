package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLogEntry records a mutation to an important entity. ActorUserID is
// nil for system actions (worker jobs, bootstrap).
type AuditLogEntry struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ActorUserID *uuid.UUID        `gorm:"type:uuid;index" json:"actor_user_id,omitempty"`
	Action      string            `gorm:"size:50;not null;index" json:"action"` // create, update, delete
	Entity      string            `gorm:"size:50;not null;index" json:"entity"` // client, membership, user, ...
	EntityID    string            `gorm:"size:100;not null;index" json:"entity_id"`
	Diff        datatypes.JSON    `json:"diff,omitempty"`
	Meta        datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	At          time.Time         `gorm:"not null;index" json:"at"`
}

func (AuditLogEntry) TableName() string { return "audit_log" }

func (a *AuditLogEntry) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.At.IsZero() {
		a.At = time.Now()
	}
	return nil
}

func (a *AuditLogEntry) IsSystemAction() bool {
	return a.ActorUserID == nil
}
