package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{"formatted US number", "(661) 555-0142", "6615550142"},
		{"dashed", "661-555-0142", "6615550142"},
		{"dotted", "661.555.0142", "6615550142"},
		{"e164 with country code", "+16615550142", "6615550142"},
		{"bare country code", "16615550142", "6615550142"},
		{"already bare", "6615550142", "6615550142"},
		{"surrounding spaces", "  661 555 0142 ", "6615550142"},
		{"too short stays short", "555-0142", "5550142"},
		{"non-US 11 digits keeps all", "26615550142", "26615550142"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.phone))
		})
	}
}

func TestValidKioskPhone(t *testing.T) {
	assert.True(t, ValidKioskPhone("(661) 555-0142"))
	assert.True(t, ValidKioskPhone("+16615550142"))
	assert.False(t, ValidKioskPhone("555-0142"))
	assert.False(t, ValidKioskPhone(""))
	assert.False(t, ValidKioskPhone("abc"))
}

func TestClientDisplayPhone(t *testing.T) {
	c := Client{Phone: "+16615550142"}
	assert.Equal(t, "(661) 555-0142", c.DisplayPhone())

	c.Phone = "12345"
	assert.Equal(t, "12345", c.DisplayPhone())
}
