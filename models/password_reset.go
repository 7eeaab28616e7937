package models

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Password token kinds. Setup tokens onboard new accounts, reset tokens
// are issued by an admin for an existing account.
const (
	TokenSetup = "setup"
	TokenReset = "reset"
)

// PasswordTokenTTL is how long a setup or reset link stays usable.
const PasswordTokenTTL = 24 * time.Hour

// PasswordResetToken is a single-use token that lets a user set a password
// without being logged in. The token string itself is the credential.
type PasswordResetToken struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string     `gorm:"size:255;not null;uniqueIndex" json:"-"`
	TokenType string     `gorm:"size:20;not null" json:"token_type"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (t *PasswordResetToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// generatePasswordToken returns a URL-safe random token string.
func generatePasswordToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// NewSetupToken issues a token for a freshly created account.
func NewSetupToken(userID uuid.UUID) *PasswordResetToken {
	return &PasswordResetToken{
		UserID:    userID,
		Token:     generatePasswordToken(),
		TokenType: TokenSetup,
		ExpiresAt: time.Now().UTC().Add(PasswordTokenTTL),
	}
}

// NewResetToken issues an admin-created reset token for an existing account.
func NewResetToken(userID, createdBy uuid.UUID) *PasswordResetToken {
	return &PasswordResetToken{
		UserID:    userID,
		Token:     generatePasswordToken(),
		TokenType: TokenReset,
		ExpiresAt: time.Now().UTC().Add(PasswordTokenTTL),
		CreatedBy: &createdBy,
	}
}

// IsValid reports whether the token is unused and not yet expired.
func (t *PasswordResetToken) IsValid() bool {
	return t.UsedAt == nil && t.ExpiresAt.After(time.Now().UTC())
}

func (t *PasswordResetToken) MarkUsed() {
	now := time.Now().UTC()
	t.UsedAt = &now
}
