package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Client struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName   string     `gorm:"size:100;not null;index" json:"first_name"`
	LastName    string     `gorm:"size:100;not null;index" json:"last_name"`
	DateOfBirth *time.Time `gorm:"type:date" json:"date_of_birth,omitempty"`
	Email       string     `gorm:"size:255;index" json:"email,omitempty"`
	Phone       string     `gorm:"size:20;index" json:"phone,omitempty"`

	// POS (Purchase of Service) fields used by regional-center clients.
	ParentGuardianName string     `gorm:"size:200" json:"parent_guardian_name,omitempty"`
	POSNumber          string     `gorm:"size:50;index" json:"pos_number,omitempty"`
	ServiceCoordinator string     `gorm:"size:200" json:"service_coordinator,omitempty"`
	POSStartDate       *time.Time `gorm:"type:date" json:"pos_start_date,omitempty"`
	POSEndDate         *time.Time `gorm:"type:date" json:"pos_end_date,omitempty"`

	Notes    string `gorm:"type:text" json:"notes,omitempty"`
	Language string `gorm:"size:50" json:"language,omitempty"`

	// IDs in external systems (ggLeap, lookup codes, legacy member numbers).
	ExternalIDs datatypes.JSONMap `gorm:"not null;default:'{}'" json:"external_ids"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ContactMethods []ContactMethod `gorm:"constraint:OnDelete:CASCADE" json:"contact_methods,omitempty"`
	Consents       []Consent       `gorm:"constraint:OnDelete:CASCADE" json:"consents,omitempty"`
	Tags           []Tag           `gorm:"many2many:client_tags" json:"tags,omitempty"`
	Memberships    []Membership    `gorm:"constraint:OnDelete:CASCADE" json:"memberships,omitempty"`
	CheckIns       []CheckIn       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ClientNotes    []ClientNote    `gorm:"constraint:OnDelete:CASCADE" json:"client_notes,omitempty"`
	GgleapLinks    []GgleapLink    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.ExternalIDs == nil {
		c.ExternalIDs = datatypes.JSONMap{}
	}
	return nil
}

func (c *Client) FullName() string {
	return c.FirstName + " " + c.LastName
}

// DisplayPhone formats a bare 10-digit number as (XXX) XXX-XXXX.
// Anything else is returned as stored.
func (c *Client) DisplayPhone() string {
	digits := NormalizePhone(c.Phone)
	if len(digits) != 10 {
		return c.Phone
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}

type ContactMethod struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID  uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	Type      string    `gorm:"size:20;not null" json:"type"` // sms, email, discord
	Value     string    `gorm:"size:255;not null" json:"value"`
	Verified  bool      `gorm:"not null;default:false" json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *ContactMethod) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type Consent struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	Kind      string     `gorm:"size:20;not null" json:"kind"` // sms, email, photo, tos, waiver
	Granted   bool       `gorm:"not null" json:"granted"`
	GrantedAt *time.Time `json:"granted_at,omitempty"`
	Source    string     `gorm:"size:50" json:"source,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (c *Consent) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Tag struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Color       string    `gorm:"size:7" json:"color,omitempty"` // hex color code
	CreatedAt   time.Time `json:"created_at"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ClientNote is a timestamped staff note attached to a client record.
type ClientNote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID  uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Note      string    `gorm:"type:text;not null" json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (n *ClientNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
