package handlers

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"beccrm/middleware"
	"beccrm/models"
	"beccrm/monitoring"
	"beccrm/utils"
)

const dateLayout = "2006-01-02"

// EventEnqueuer hands application events to the background worker.
type EventEnqueuer interface {
	PublishEvent(event string, data map[string]interface{}) error
}

// publishEvent enqueues a worker event, logging instead of failing the
// request when the queue is unavailable.
func publishEvent(enqueuer EventEnqueuer, event string, data map[string]interface{}) {
	if enqueuer == nil {
		return
	}
	if err := enqueuer.PublishEvent(event, data); err != nil {
		utils.GetLogger().Error("failed to enqueue event",
			zap.String("event", event), zap.Error(err))
	}
}

// publishKafkaEvent sends a CRM event to the indexing topic. Failures are
// logged, never surfaced to the API caller.
func publishKafkaEvent(producer utils.KafkaProducer, event string, data interface{}) {
	if producer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		utils.GetLogger().Error("failed to marshal Kafka event", zap.Error(err))
		return
	}

	if err := producer.SendMessage(ctx, utils.ClientEventsTopic, nil, msg); err != nil {
		utils.GetLogger().Error("failed to send Kafka message",
			zap.String("event", event), zap.Error(err))
		return
	}
	monitoring.KafkaEventsTotal.WithLabelValues(event).Inc()
}

// recordAudit writes an audit entry for a mutation, attributing it to the
// authenticated user when there is one.
func recordAudit(repo models.Repository, c *gin.Context, action, entity, entityID string, diff interface{}) {
	entry := &models.AuditLogEntry{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
	}
	if id := middleware.CurrentUserID(c); id != uuid.Nil {
		entry.ActorUserID = &id
	}
	if diff != nil {
		if data, err := json.Marshal(diff); err == nil {
			entry.Diff = data
		}
	}
	if err := repo.RecordAudit(entry); err != nil {
		utils.GetLogger().Error("failed to record audit entry",
			zap.String("entity", entity), zap.Error(err))
	}
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// pagination reads limit/offset query params with sane caps.
func pagination(c *gin.Context, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
