package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("CorrectHorse7")
	require.NoError(t, err)
	assert.NotEqual(t, "CorrectHorse7", hash)

	assert.True(t, VerifyPassword("CorrectHorse7", hash))
	assert.False(t, VerifyPassword("WrongHorse7x", hash))
}

func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Sup3rSecret", false},
		{"too short", "Ab1", true},
		{"no digit", "NoDigitsHere", true},
		{"no upper", "alllower123", true},
		{"no lower", "ALLUPPER123", true},
		{"exactly ten chars", "Abcdefgh12", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPasswordStrength(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
