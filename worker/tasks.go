package worker

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"beccrm/config"
	"beccrm/utils"
)

// Task types handled by the worker.
const (
	TypeEventProcess    = "event:process"
	TypeWebhookRetry    = "webhook:retry"
	TypeExpiryCheck     = "membership:expiry_check"
	TypeCheckinReminder = "client:checkin_reminder"
	TypeMeetupAnnounce  = "meetup:announce"
	TypeGgleapSyncAll   = "ggleap:sync_all"
	TypeBackupRun       = "backup:run"
)

// CRM event names carried in EventPayload.
const (
	EventClientCreated    = "client.created"
	EventClientUpdated    = "client.updated"
	EventClientDeleted    = "client.deleted"
	EventCheckinCreated   = "checkin.created"
	EventMembershipExpiry = "membership.expiring_30d"
	EventStatusChanged    = "membership.status_changed"
	EventNoCheckinMid     = "client.not_checked_in_mid_month"
	EventMeetupAnnounce   = "krc_meetup_announce"
)

// EventPayload is the envelope for application events processed by the
// worker.
type EventPayload struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

func redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// Enqueuer publishes application events onto the Redis task queue. API
// handlers hold one and fire events without blocking the request.
type Enqueuer struct {
	client *asynq.Client
	log    *zap.Logger
}

func NewEnqueuer() *Enqueuer {
	return &Enqueuer{
		client: asynq.NewClient(redisOpt()),
		log:    utils.GetLogger(),
	}
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// PublishEvent enqueues an event for background processing.
func (e *Enqueuer) PublishEvent(event string, data map[string]interface{}) error {
	payload, err := json.Marshal(EventPayload{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	task := asynq.NewTask(TypeEventProcess, payload, asynq.MaxRetry(3))
	if _, err := e.client.Enqueue(task); err != nil {
		return fmt.Errorf("failed to enqueue event %s: %w", event, err)
	}

	e.log.Info("published event", zap.String("event", event))
	return nil
}
