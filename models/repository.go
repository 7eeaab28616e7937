package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Repository is the storage contract for the CRM. Handlers, the worker and
// the Kafka consumer all go through it, so tests can swap in a fake.
type Repository interface {
	// Clients
	CreateClient(client *Client) error
	GetClientByID(id uuid.UUID) (*Client, error)
	FindClientByPhoneOrCode(phone, code string) (*Client, error)
	FindDuplicateClient(email, phone string, excludeID uuid.UUID) (*Client, error)
	SearchClients(query string, tagNames []string, limit, offset int) ([]Client, int64, error)
	UpdateClient(client *Client) error
	DeleteClient(id uuid.UUID) error
	ListTags() ([]Tag, error)
	GetOrCreateTag(name string) (*Tag, error)
	AddTagsToClient(clientID uuid.UUID, tagNames []string) (*Client, error)
	RemoveTagFromClient(clientID uuid.UUID, tagName string) (*Client, error)
	AddContactMethod(method *ContactMethod) error
	AddConsents(consents []*Consent) error
	AddClientNote(note *ClientNote) error
	ListClientNotes(clientID uuid.UUID) ([]ClientNote, error)

	// Memberships
	CreateMembership(m *Membership) error
	GetMembershipByID(id uuid.UUID) (*Membership, error)
	GetCurrentMembership(clientID uuid.UUID) (*Membership, error)
	ListClientMemberships(clientID uuid.UUID) ([]Membership, error)
	FindOverlappingMembership(clientID uuid.UUID, startsOn, endsOn time.Time, excludeID uuid.UUID) (*Membership, error)
	UpdateMembership(m *Membership) error
	DeleteMembership(id uuid.UUID) error
	ListMembershipsByStatus(status string, now time.Time, limit, offset int) ([]Membership, int64, error)
	ListExpiringMemberships(now time.Time, days int, planCodes []string) ([]Membership, error)
	MembershipStats(now time.Time) (*MembershipStats, error)

	// Check-ins
	CreateCheckIn(c *CheckIn) error
	GetCheckInByID(id uuid.UUID) (*CheckIn, error)
	ListClientCheckIns(clientID uuid.UUID, limit, offset int) ([]CheckIn, error)
	ListRecentCheckIns(limit, offset int) ([]CheckIn, error)
	ListCheckInsByDateRange(start, end time.Time) ([]CheckIn, error)
	CheckInStats(now time.Time) (*CheckInStats, error)
	ListClientsWithoutCheckInSince(since, now time.Time) ([]Client, error)

	// Users
	CreateUser(u *User) error
	GetUserByID(id uuid.UUID) (*User, error)
	GetUserByEmail(email string) (*User, error)
	UpdateUser(u *User) error
	DeactivateUser(id uuid.UUID) error
	ListUsers() ([]User, error)
	CreatePasswordResetToken(t *PasswordResetToken) error
	GetPasswordResetToken(token string) (*PasswordResetToken, error)
	UpdatePasswordResetToken(t *PasswordResetToken) error

	// Webhooks
	CreateWebhook(w *WebhookOut) error
	UpdateWebhook(w *WebhookOut) error
	GetWebhookByID(id uuid.UUID) (*WebhookOut, error)
	ListRetryableWebhooks(limit int) ([]WebhookOut, error)
	ListWebhooks(status string, limit, offset int) ([]WebhookOut, int64, error)

	// Audit log
	RecordAudit(entry *AuditLogEntry) error
	ListAuditLog(entity, action string, limit, offset int) ([]AuditLogEntry, int64, error)

	// ggLeap
	CreateGgleapLink(link *GgleapLink) error
	GetGgleapLink(clientID uuid.UUID) (*GgleapLink, error)
	DeleteGgleapLink(clientID uuid.UUID) error
	ListGgleapLinks() ([]GgleapLink, error)
	GetGgleapGroup(mapKey string) (*GgleapGroup, error)
	UpsertGgleapGroup(group *GgleapGroup) error

	Close() error
}

type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository connects to Postgres and migrates the schema.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&User{},
		&PasswordResetToken{},
		&Client{},
		&ContactMethod{},
		&Consent{},
		&Tag{},
		&ClientNote{},
		&Membership{},
		&CheckIn{},
		&WebhookOut{},
		&AuditLogEntry{},
		&GgleapLink{},
		&GgleapGroup{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// asDate normalizes a time to a date-only string for comparisons against
// Postgres date columns.
func asDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
