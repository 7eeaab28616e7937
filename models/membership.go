package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Derived membership status values.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusExpired = "expired"
)

// Plan codes sold at the front desk.
var MembershipPlans = map[string]string{
	"unlimited":  "Unlimited Gaming",
	"10_hours":   "10 Hour Package",
	"20_hours":   "20 Hour Package",
	"day_pass":   "Day Pass",
	"student":    "Student Discount",
	"tournament": "Tournament Entry",
}

// Membership is a date-bounded entitlement. Status is never stored; it is
// derived from StartsOn/EndsOn against the facility's current date.
type Membership struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID  uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	PlanCode  string    `gorm:"size:50;not null;index" json:"plan_code"`
	StartsOn  time.Time `gorm:"type:date;not null" json:"starts_on"`
	EndsOn    time.Time `gorm:"type:date;not null" json:"ends_on"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client *Client `gorm:"constraint:OnDelete:CASCADE" json:"client,omitempty"`
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// StatusOn derives the membership status for a given instant. Both bounds
// are inclusive: a membership is active on its start and end dates.
func (m *Membership) StatusOn(now time.Time) string {
	today := truncateToDate(now)
	switch {
	case today.Before(truncateToDate(m.StartsOn)):
		return StatusPending
	case today.After(truncateToDate(m.EndsOn)):
		return StatusExpired
	default:
		return StatusActive
	}
}

// DaysRemainingOn returns whole days left in the membership. Expired
// memberships report zero; pending ones report their full length.
func (m *Membership) DaysRemainingOn(now time.Time) int {
	today := truncateToDate(now)
	switch m.StatusOn(now) {
	case StatusExpired:
		return 0
	case StatusPending:
		return int(truncateToDate(m.EndsOn).Sub(truncateToDate(m.StartsOn)).Hours() / 24)
	default:
		return int(truncateToDate(m.EndsOn).Sub(today).Hours() / 24)
	}
}

// IsExpiringSoonOn reports whether an active membership ends within the
// given number of days.
func (m *Membership) IsExpiringSoonOn(now time.Time, days int) bool {
	if m.StatusOn(now) != StatusActive {
		return false
	}
	return m.DaysRemainingOn(now) <= days
}

// Overlaps reports whether two date ranges intersect (inclusive bounds).
func (m *Membership) Overlaps(startsOn, endsOn time.Time) bool {
	return !truncateToDate(m.StartsOn).After(truncateToDate(endsOn)) &&
		!truncateToDate(m.EndsOn).Before(truncateToDate(startsOn))
}

func truncateToDate(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// MembershipStats summarizes memberships for the admin dashboard.
type MembershipStats struct {
	TotalActive    int64            `json:"total_active"`
	TotalExpired   int64            `json:"total_expired"`
	TotalPending   int64            `json:"total_pending"`
	Expiring30Days int64            `json:"expiring_30_days"`
	Expiring7Days  int64            `json:"expiring_7_days"`
	Plans          map[string]int64 `json:"plans"`
}
