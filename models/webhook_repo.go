package models

import (
	"github.com/google/uuid"
)

func (r *PostgresRepository) CreateWebhook(w *WebhookOut) error {
	return r.db.Create(w).Error
}

func (r *PostgresRepository) UpdateWebhook(w *WebhookOut) error {
	return r.db.Save(w).Error
}

func (r *PostgresRepository) GetWebhookByID(id uuid.UUID) (*WebhookOut, error) {
	var w WebhookOut
	if err := r.db.First(&w, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &w, nil
}

// ListRetryableWebhooks returns queued or failed webhooks still under the
// attempt ceiling, oldest first.
func (r *PostgresRepository) ListRetryableWebhooks(limit int) ([]WebhookOut, error) {
	var webhooks []WebhookOut
	err := r.db.
		Where("status IN ? AND attempt_count < ?", []string{WebhookQueued, WebhookFailed}, MaxWebhookAttempts).
		Order("created_at").
		Limit(limit).
		Find(&webhooks).Error
	if err != nil {
		return nil, err
	}
	return webhooks, nil
}

func (r *PostgresRepository) ListWebhooks(status string, limit, offset int) ([]WebhookOut, int64, error) {
	q := r.db.Model(&WebhookOut{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var webhooks []WebhookOut
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&webhooks).Error
	if err != nil {
		return nil, 0, err
	}
	return webhooks, total, nil
}

func (r *PostgresRepository) RecordAudit(entry *AuditLogEntry) error {
	return r.db.Create(entry).Error
}

func (r *PostgresRepository) ListAuditLog(entity, action string, limit, offset int) ([]AuditLogEntry, int64, error) {
	q := r.db.Model(&AuditLogEntry{})
	if entity != "" {
		q = q.Where("entity = ?", entity)
	}
	if action != "" {
		q = q.Where("action = ?", action)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []AuditLogEntry
	err := q.Order("at DESC").Limit(limit).Offset(offset).Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
