package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ggLeap group mapping keys. Clients with an active membership belong to
// the "active" ggLeap group, everyone else to "expired".
const (
	GgleapGroupActive  = "active"
	GgleapGroupExpired = "expired"
)

// GgleapLink ties a CRM client to a ggLeap user account.
type GgleapLink struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID     uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	GgleapUserID string    `gorm:"size:100;not null;index" json:"ggleap_user_id"`
	LinkedAt     time.Time `gorm:"not null" json:"linked_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (l *GgleapLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.LinkedAt.IsZero() {
		l.LinkedAt = time.Now()
	}
	return nil
}

// GgleapGroup maps a status key to a concrete ggLeap group.
type GgleapGroup struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MapKey        string    `gorm:"size:20;not null;uniqueIndex" json:"map_key"` // active, expired
	GgleapGroupID string    `gorm:"size:100;not null" json:"ggleap_group_id"`
	GroupName     string    `gorm:"size:200" json:"group_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (g *GgleapGroup) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
