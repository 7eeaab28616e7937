package handlers

import (
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"beccrm/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeRepo embeds the Repository interface so each test only overrides the
// methods its handler touches. Calling anything else panics.
type fakeRepo struct {
	models.Repository

	clients     map[uuid.UUID]*models.Client
	memberships map[uuid.UUID]*models.Membership
	users       map[uuid.UUID]*models.User
	tokens      map[string]*models.PasswordResetToken

	createdCheckIns []*models.CheckIn
	auditEntries    []*models.AuditLogEntry

	duplicate *models.Client
	overlap   *models.Membership
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		clients:     map[uuid.UUID]*models.Client{},
		memberships: map[uuid.UUID]*models.Membership{},
		users:       map[uuid.UUID]*models.User{},
		tokens:      map[string]*models.PasswordResetToken{},
	}
}

func (f *fakeRepo) addClient(c *models.Client) *models.Client {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.clients[c.ID] = c
	return c
}

func (f *fakeRepo) addMembership(m *models.Membership) *models.Membership {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	f.memberships[m.ID] = m
	return m
}

func (f *fakeRepo) GetClientByID(id uuid.UUID) (*models.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) FindClientByPhoneOrCode(phone, code string) (*models.Client, error) {
	for _, c := range f.clients {
		if phone != "" && models.NormalizePhone(c.Phone) == phone {
			return c, nil
		}
		if code != "" {
			if v, ok := c.ExternalIDs["code"]; ok && v == code {
				return c, nil
			}
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeRepo) FindDuplicateClient(email, phone string, excludeID uuid.UUID) (*models.Client, error) {
	if f.duplicate == nil {
		return nil, models.ErrNotFound
	}
	return f.duplicate, nil
}

func (f *fakeRepo) CreateClient(c *models.Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.clients[c.ID] = c
	return nil
}

func (f *fakeRepo) GetCurrentMembership(clientID uuid.UUID) (*models.Membership, error) {
	var latest *models.Membership
	for _, m := range f.memberships {
		if m.ClientID != clientID {
			continue
		}
		if latest == nil || m.EndsOn.After(latest.EndsOn) {
			latest = m
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	return latest, nil
}

func (f *fakeRepo) FindOverlappingMembership(clientID uuid.UUID, startsOn, endsOn time.Time, excludeID uuid.UUID) (*models.Membership, error) {
	if f.overlap == nil {
		return nil, models.ErrNotFound
	}
	return f.overlap, nil
}

func (f *fakeRepo) CreateMembership(m *models.Membership) error {
	f.addMembership(m)
	return nil
}

func (f *fakeRepo) CreateCheckIn(c *models.CheckIn) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.HappenedAt.IsZero() {
		c.HappenedAt = time.Now()
	}
	f.createdCheckIns = append(f.createdCheckIns, c)
	return nil
}

func (f *fakeRepo) RecordAudit(entry *models.AuditLogEntry) error {
	f.auditEntries = append(f.auditEntries, entry)
	return nil
}

func (f *fakeRepo) addUser(u *models.User) *models.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeRepo) GetUserByID(id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) UpdateUser(u *models.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeRepo) CreatePasswordResetToken(t *models.PasswordResetToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	f.tokens[t.Token] = t
	return nil
}

func (f *fakeRepo) GetPasswordResetToken(token string) (*models.PasswordResetToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, models.ErrNotFound
	}
	return t, nil
}

func (f *fakeRepo) UpdatePasswordResetToken(t *models.PasswordResetToken) error {
	f.tokens[t.Token] = t
	return nil
}
