package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSecondTuesday(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month time.Month
		want  string
	}{
		// August 2026 starts on a Saturday; first Tuesday is the 4th.
		{"august 2026", 2026, time.August, "2026-08-11"},
		// September 2026 starts on a Tuesday, so the 1st counts as the first.
		{"month starting on tuesday", 2026, time.September, "2026-09-08"},
		{"february 2026", 2026, time.February, "2026-02-10"},
		{"december 2026", 2026, time.December, "2026-12-08"},
		{"january 2030", 2030, time.January, "2030-01-08"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SecondTuesday(tt.year, tt.month, time.UTC)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
			assert.Equal(t, time.Tuesday, got.Weekday())
		})
	}
}
