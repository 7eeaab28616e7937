package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMembershipStatusOn(t *testing.T) {
	m := Membership{
		PlanCode: "unlimited",
		StartsOn: date(2026, time.March, 1),
		EndsOn:   date(2026, time.March, 31),
	}

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"before start", date(2026, time.February, 28), StatusPending},
		{"on start date", date(2026, time.March, 1), StatusActive},
		{"mid range", date(2026, time.March, 15), StatusActive},
		{"on end date", date(2026, time.March, 31), StatusActive},
		{"after end date", date(2026, time.April, 1), StatusExpired},
		{"end date with late clock", time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC), StatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.StatusOn(tt.now))
		})
	}
}

func TestMembershipDaysRemainingOn(t *testing.T) {
	m := Membership{
		StartsOn: date(2026, time.March, 1),
		EndsOn:   date(2026, time.March, 31),
	}

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"expired is zero", date(2026, time.April, 2), 0},
		{"pending reports full length", date(2026, time.February, 1), 30},
		{"active counts to end", date(2026, time.March, 21), 10},
		{"last day", date(2026, time.March, 31), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.DaysRemainingOn(tt.now))
		})
	}
}

func TestMembershipIsExpiringSoonOn(t *testing.T) {
	m := Membership{
		StartsOn: date(2026, time.March, 1),
		EndsOn:   date(2026, time.March, 31),
	}

	assert.True(t, m.IsExpiringSoonOn(date(2026, time.March, 10), 30))
	assert.False(t, m.IsExpiringSoonOn(date(2026, time.March, 10), 5))
	// Pending and expired memberships are never "expiring soon".
	assert.False(t, m.IsExpiringSoonOn(date(2026, time.February, 25), 30))
	assert.False(t, m.IsExpiringSoonOn(date(2026, time.April, 5), 30))
}

func TestMembershipOverlaps(t *testing.T) {
	m := Membership{
		StartsOn: date(2026, time.March, 1),
		EndsOn:   date(2026, time.March, 31),
	}

	tests := []struct {
		name     string
		startsOn time.Time
		endsOn   time.Time
		want     bool
	}{
		{"identical range", date(2026, time.March, 1), date(2026, time.March, 31), true},
		{"contained", date(2026, time.March, 10), date(2026, time.March, 20), true},
		{"straddles start", date(2026, time.February, 20), date(2026, time.March, 5), true},
		{"straddles end", date(2026, time.March, 25), date(2026, time.April, 10), true},
		{"touches end date", date(2026, time.March, 31), date(2026, time.April, 30), true},
		{"touches start date", date(2026, time.February, 1), date(2026, time.March, 1), true},
		{"entirely before", date(2026, time.January, 1), date(2026, time.February, 28), false},
		{"entirely after", date(2026, time.April, 1), date(2026, time.April, 30), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Overlaps(tt.startsOn, tt.endsOn))
		})
	}
}
