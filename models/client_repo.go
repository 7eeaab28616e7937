package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *PostgresRepository) CreateClient(client *Client) error {
	return r.db.Create(client).Error
}

func (r *PostgresRepository) GetClientByID(id uuid.UUID) (*Client, error) {
	var client Client
	err := r.db.
		Preload("ContactMethods").
		Preload("Consents").
		Preload("Tags").
		Preload("Memberships").
		Preload("ClientNotes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		First(&client, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &client, nil
}

// FindClientByPhoneOrCode resolves a kiosk identifier. Phone matching is
// tolerant of formatting; codes match external_ids.code, external_ids.member_id
// or a UUID prefix.
func (r *PostgresRepository) FindClientByPhoneOrCode(phone, code string) (*Client, error) {
	if phone == "" && code == "" {
		return nil, ErrNotFound
	}

	var conditions []string
	var args []interface{}

	if phone != "" {
		digits := NormalizePhone(phone)
		conditions = append(conditions, "phone = ?", "regexp_replace(phone, '\\D', '', 'g') LIKE ?")
		args = append(args, phone, "%"+digits)
	}
	if code != "" {
		conditions = append(conditions, "external_ids->>'code' = ?", "external_ids->>'member_id' = ?", "CAST(id AS VARCHAR) LIKE ?")
		args = append(args, code, code, code+"%")
	}

	var client Client
	err := r.db.Where(strings.Join(conditions, " OR "), args...).First(&client).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &client, nil
}

// FindDuplicateClient returns another client sharing the given email or
// phone, or ErrNotFound when the values are free.
func (r *PostgresRepository) FindDuplicateClient(email, phone string, excludeID uuid.UUID) (*Client, error) {
	if email == "" && phone == "" {
		return nil, ErrNotFound
	}

	var conditions []string
	var args []interface{}
	if email != "" {
		conditions = append(conditions, "email = ?")
		args = append(args, email)
	}
	if phone != "" {
		conditions = append(conditions, "phone = ?")
		args = append(args, phone)
	}

	q := r.db.Where(strings.Join(conditions, " OR "), args...)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}

	var client Client
	if err := q.First(&client).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &client, nil
}

func (r *PostgresRepository) SearchClients(query string, tagNames []string, limit, offset int) ([]Client, int64, error) {
	q := r.db.Model(&Client{})

	if query != "" {
		term := "%" + strings.ToLower(query) + "%"
		where := "LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(first_name || ' ' || last_name) LIKE ?"
		args := []interface{}{term, term, term}

		if strings.Contains(query, "@") {
			where += " OR LOWER(email) LIKE ?"
			args = append(args, term)
		} else if digits := NormalizePhone(query); digits != "" && len(digits) >= 4 {
			where += " OR regexp_replace(phone, '\\D', '', 'g') LIKE ?"
			args = append(args, "%"+digits+"%")
		}
		q = q.Where(where, args...)
	}

	if len(tagNames) > 0 {
		q = q.Joins("JOIN client_tags ON client_tags.client_id = clients.id").
			Joins("JOIN tags ON tags.id = client_tags.tag_id").
			Where("tags.name IN ?", tagNames).
			Distinct("clients.*")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var clients []Client
	err := q.Preload("Tags").
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&clients).Error
	if err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

func (r *PostgresRepository) UpdateClient(client *Client) error {
	return r.db.Save(client).Error
}

func (r *PostgresRepository) DeleteClient(id uuid.UUID) error {
	res := r.db.Select("ContactMethods", "Consents", "Memberships", "CheckIns", "ClientNotes", "GgleapLinks").
		Delete(&Client{ID: id})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListTags() ([]Tag, error) {
	var tags []Tag
	if err := r.db.Order("name").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *PostgresRepository) GetOrCreateTag(name string) (*Tag, error) {
	var tag Tag
	err := r.db.Where("name = ?", name).First(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tag = Tag{Name: name}
		if err := r.db.Create(&tag).Error; err != nil {
			return nil, err
		}
		return &tag, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *PostgresRepository) AddTagsToClient(clientID uuid.UUID, tagNames []string) (*Client, error) {
	client, err := r.GetClientByID(clientID)
	if err != nil {
		return nil, err
	}

	for _, name := range tagNames {
		tag, err := r.GetOrCreateTag(name)
		if err != nil {
			return nil, err
		}
		if err := r.db.Model(client).Association("Tags").Append(tag); err != nil {
			return nil, err
		}
	}
	return r.GetClientByID(clientID)
}

func (r *PostgresRepository) RemoveTagFromClient(clientID uuid.UUID, tagName string) (*Client, error) {
	client, err := r.GetClientByID(clientID)
	if err != nil {
		return nil, err
	}

	for i := range client.Tags {
		if client.Tags[i].Name == tagName {
			if err := r.db.Model(client).Association("Tags").Delete(&client.Tags[i]); err != nil {
				return nil, err
			}
			break
		}
	}
	return r.GetClientByID(clientID)
}

func (r *PostgresRepository) AddContactMethod(method *ContactMethod) error {
	return r.db.Create(method).Error
}

func (r *PostgresRepository) AddConsents(consents []*Consent) error {
	now := time.Now()
	for _, c := range consents {
		if c.Granted && c.GrantedAt == nil {
			c.GrantedAt = &now
		}
	}
	return r.db.Create(consents).Error
}

func (r *PostgresRepository) AddClientNote(note *ClientNote) error {
	return r.db.Create(note).Error
}

func (r *PostgresRepository) ListClientNotes(clientID uuid.UUID) ([]ClientNote, error) {
	var notes []ClientNote
	err := r.db.Where("client_id = ?", clientID).Order("created_at DESC").Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}
