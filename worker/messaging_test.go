package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beccrm/config"
	"beccrm/models"
)

// fakeWebhookRepo covers just the webhook persistence methods.
type fakeWebhookRepo struct {
	models.Repository
	webhooks  []*models.WebhookOut
	listCalls int
}

func (f *fakeWebhookRepo) CreateWebhook(w *models.WebhookOut) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	f.webhooks = append(f.webhooks, w)
	return nil
}

func (f *fakeWebhookRepo) UpdateWebhook(w *models.WebhookOut) error {
	for i, existing := range f.webhooks {
		if existing.ID == w.ID {
			copied := *w
			f.webhooks[i] = &copied
			return nil
		}
	}
	return models.ErrNotFound
}

func (f *fakeWebhookRepo) ListRetryableWebhooks(limit int) ([]models.WebhookOut, error) {
	f.listCalls++
	var out []models.WebhookOut
	for _, w := range f.webhooks {
		if w.Retryable() && len(out) < limit {
			out = append(out, *w)
		}
	}
	return out, nil
}

func messagingConfig(t *testing.T, mode, hookURL string) {
	t.Helper()
	prev := config.AppConfig
	t.Cleanup(func() { config.AppConfig = prev })
	config.AppConfig.FeatureMessaging = true
	config.AppConfig.ZapierMode = mode
	config.AppConfig.ZapierHookURL = hookURL
	config.AppConfig.ZapierHMACSecret = ""
}

func TestSignPayload(t *testing.T) {
	sig := SignPayload([]byte(`{"event":"checkin.created"}`), "test-secret")
	assert.Equal(t, "001fbe3502a03df60817973e5f9fdec4cb602480c1cfec00c590c28df5e0b548", sig)
}

func TestSignPayloadEmptySecret(t *testing.T) {
	sig := SignPayload([]byte("payload"), "")
	assert.Equal(t, "f81a95af381879c33f964c589fa096fa133a07606e9976e547060e7a0ea0f5f3", sig)
}

func TestSignPayloadVaries(t *testing.T) {
	a := SignPayload([]byte("payload"), "secret-a")
	b := SignPayload([]byte("payload"), "secret-b")
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
}

func TestWebhookFailsAfterAttemptCeiling(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	messagingConfig(t, "live", srv.URL)
	repo := &fakeWebhookRepo{}
	m := NewMessenger(repo)

	err := m.SendWebhook(context.Background(), "checkin.created", map[string]interface{}{"client_id": "c1"})
	assert.Error(t, err)

	require.Len(t, repo.webhooks, 1)
	record := repo.webhooks[0]
	assert.Equal(t, models.WebhookQueued, record.Status)
	assert.Equal(t, 2, record.AttemptCount)
	assert.Equal(t, "HTTP 500", record.LastError)
	assert.True(t, record.Retryable())

	// the hourly retry pushes it to the ceiling
	require.NoError(t, m.RetryFailedWebhooks(context.Background()))

	record = repo.webhooks[0]
	assert.Equal(t, models.WebhookFailed, record.Status)
	assert.Equal(t, 3, record.AttemptCount)
	assert.False(t, record.Retryable())
	assert.Equal(t, 2, hits)

	// exhausted records stay failed on later sweeps
	require.NoError(t, m.RetryFailedWebhooks(context.Background()))
	assert.Equal(t, 2, hits)
}

func TestWebhookRetrySucceeds(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("X-Zap-Run-Id", "run-42")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	messagingConfig(t, "live", srv.URL)
	repo := &fakeWebhookRepo{}
	m := NewMessenger(repo)

	assert.Error(t, m.SendWebhook(context.Background(), "client.created", map[string]interface{}{"client_id": "c1"}))
	require.NoError(t, m.RetryFailedWebhooks(context.Background()))

	record := repo.webhooks[0]
	assert.Equal(t, models.WebhookSent, record.Status)
	assert.Equal(t, "run-42", record.ZapRunID)
	assert.NotNil(t, record.SentAt)
	assert.False(t, record.Retryable())
}

func TestRetryFailedWebhooksSkipsInDevLogMode(t *testing.T) {
	messagingConfig(t, zapierModeDevLog, "http://example.invalid/hook")
	repo := &fakeWebhookRepo{webhooks: []*models.WebhookOut{
		{ID: uuid.New(), Event: "client.created", Status: models.WebhookQueued, AttemptCount: 2},
	}}
	m := NewMessenger(repo)

	require.NoError(t, m.RetryFailedWebhooks(context.Background()))
	assert.Zero(t, repo.listCalls)
	assert.Equal(t, 2, repo.webhooks[0].AttemptCount)
}

func TestRetryFailedWebhooksSkipsWhenMessagingDisabled(t *testing.T) {
	messagingConfig(t, "live", "http://example.invalid/hook")
	config.AppConfig.FeatureMessaging = false

	repo := &fakeWebhookRepo{}
	m := NewMessenger(repo)

	require.NoError(t, m.RetryFailedWebhooks(context.Background()))
	assert.Zero(t, repo.listCalls)
}
