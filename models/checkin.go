package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Check-in methods.
const (
	CheckInKiosk = "kiosk"
	CheckInStaff = "staff"
)

// CheckIn is a timestamped visit record for a client.
type CheckIn struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID   uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	Method     string    `gorm:"size:20;not null;default:staff" json:"method"`
	Station    string    `gorm:"size:100" json:"station,omitempty"`
	HappenedAt time.Time `gorm:"not null;index" json:"happened_at"`
	Notes      string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	Client *Client `gorm:"constraint:OnDelete:CASCADE" json:"client,omitempty"`
}

func (c *CheckIn) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.HappenedAt.IsZero() {
		c.HappenedAt = time.Now()
	}
	return nil
}

// CheckInStats is the front-desk dashboard summary.
type CheckInStats struct {
	Today              int64            `json:"today"`
	ThisWeek           int64            `json:"this_week"`
	ThisMonth          int64            `json:"this_month"`
	UniqueClientsToday int64            `json:"unique_clients_today"`
	UniqueClientsWeek  int64            `json:"unique_clients_week"`
	UniqueClientsMonth int64            `json:"unique_clients_month"`
	PopularStations    map[string]int64 `json:"popular_stations"`
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone reduces a phone number to bare digits for kiosk lookup,
// dropping a US country prefix. "(661) 555-0142" and "+16615550142" both
// normalize to "6615550142".
func NormalizePhone(phone string) string {
	digits := nonDigits.ReplaceAllString(strings.TrimSpace(phone), "")
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		digits = digits[1:]
	}
	return digits
}

// ValidKioskPhone reports whether a normalized phone is usable for kiosk
// check-in (exactly 10 digits).
func ValidKioskPhone(phone string) bool {
	return len(NormalizePhone(phone)) == 10
}
