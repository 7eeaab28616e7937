package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Staff account roles. Admins can manage users, backups and integrations;
// staff can manage clients, memberships and check-ins.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"size:100;uniqueIndex;default:null" json:"username,omitempty"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:50;not null;default:staff" json:"role"`
	MFASecret    string    `gorm:"size:255" json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	DarkMode     bool      `gorm:"not null;default:true" json:"dark_mode"`

	// PasswordSetupRequired is set when the account still runs on an
	// admin-assigned temporary password.
	PasswordSetupRequired bool       `gorm:"not null;default:false" json:"password_setup_required"`
	LastPasswordChange    *time.Time `json:"last_password_change,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsStaff reports whether the user may access staff endpoints. Admins are
// always staff.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleStaff
}
