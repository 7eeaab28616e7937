package worker

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"beccrm/config"
	"beccrm/models"
	"beccrm/monitoring"
	"beccrm/utils"
)

const (
	zapierModeDevLog = "dev_log"
	webhookUserAgent = "BEC-CRM/1.0"
	retryBatchSize   = 50
)

// Messenger delivers outbound webhooks to the Zapier catch hook and tracks
// every attempt in the webhooks_out table.
type Messenger struct {
	repo   models.Repository
	client *http.Client
	log    *zap.Logger
}

func NewMessenger(repo models.Repository) *Messenger {
	return &Messenger{
		repo:   repo,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    utils.GetLogger(),
	}
}

// webhookEnvelope is the wire format posted to the catch hook.
type webhookEnvelope struct {
	Timestamp string                 `json:"timestamp"`
	Event     string                 `json:"event"`
	Data      map[string]interface{} `json:"data"`
}

// SignPayload computes the hex HMAC-SHA256 of the payload with the given
// secret, as carried in the X-Hook-Signature header.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SendWebhook posts an event to the catch hook. In dev_log mode the
// payload is logged instead of sent. Every real attempt is recorded.
func (m *Messenger) SendWebhook(ctx context.Context, event string, data map[string]interface{}) error {
	if config.AppConfig.ZapierMode == zapierModeDevLog {
		m.log.Info("[dev mode] zapier webhook",
			zap.String("event", event),
			zap.Any("payload", data))
		return nil
	}

	if config.AppConfig.ZapierHookURL == "" {
		m.log.Warn("zapier webhook URL not configured", zap.String("event", event))
		return nil
	}

	envelope := webhookEnvelope{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Event:     event,
		Data:      data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	record := &models.WebhookOut{
		Event:        event,
		Payload:      payload,
		Status:       models.WebhookQueued,
		AttemptCount: 1,
	}
	if err := m.repo.CreateWebhook(record); err != nil {
		return fmt.Errorf("failed to record webhook: %w", err)
	}

	if err := m.deliver(ctx, record, payload); err != nil {
		m.log.Error("zapier webhook failed",
			zap.String("event", event),
			zap.Error(err))
		return err
	}
	return nil
}

func (m *Messenger) deliver(ctx context.Context, record *models.WebhookOut, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.AppConfig.ZapierHookURL, bytes.NewReader(payload))
	if err != nil {
		return m.markFailure(record, err.Error())
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)
	if secret := config.AppConfig.ZapierHMACSecret; secret != "" {
		req.Header.Set("X-Hook-Signature", "sha256="+SignPayload(payload, secret))
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return m.markFailure(record, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return m.markFailure(record, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	now := time.Now()
	record.Status = models.WebhookSent
	record.SentAt = &now
	record.ZapRunID = resp.Header.Get("X-Zap-Run-Id")
	monitoring.WebhooksTotal.WithLabelValues(models.WebhookSent).Inc()

	if err := m.repo.UpdateWebhook(record); err != nil {
		return fmt.Errorf("failed to update webhook record: %w", err)
	}
	m.log.Info("sent zapier webhook", zap.String("event", record.Event))
	return nil
}

func (m *Messenger) markFailure(record *models.WebhookOut, errMsg string) error {
	record.AttemptCount++
	record.LastError = errMsg
	if record.AttemptCount >= models.MaxWebhookAttempts {
		record.Status = models.WebhookFailed
	}
	monitoring.WebhooksTotal.WithLabelValues(models.WebhookFailed).Inc()

	if err := m.repo.UpdateWebhook(record); err != nil {
		return fmt.Errorf("failed to update webhook record: %w", err)
	}
	return fmt.Errorf("webhook delivery failed: %s", errMsg)
}

// RetryFailedWebhooks re-sends queued or failed webhooks with attempts
// remaining. Runs hourly from the scheduler.
func (m *Messenger) RetryFailedWebhooks(ctx context.Context) error {
	if !config.AppConfig.FeatureMessaging {
		return nil
	}
	if config.AppConfig.ZapierMode == zapierModeDevLog || config.AppConfig.ZapierHookURL == "" {
		return nil
	}

	webhooks, err := m.repo.ListRetryableWebhooks(retryBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list retryable webhooks: %w", err)
	}

	for i := range webhooks {
		record := &webhooks[i]

		if err := m.deliver(ctx, record, record.Payload); err != nil {
			m.log.Warn("webhook retry failed",
				zap.String("id", record.ID.String()),
				zap.Int("attempt", record.AttemptCount),
				zap.Error(err))
			continue
		}
		m.log.Info("webhook retry succeeded", zap.String("id", record.ID.String()))
	}
	return nil
}
