package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"beccrm/config"
)

// handleEventProcess routes application events to messaging and ggLeap
// sync, mirroring where each event wants to go:
//
//	client.created                  -> welcome webhook
//	checkin.created                 -> check-in webhook
//	membership.expiring_30d         -> renewal reminder webhook
//	membership.status_changed       -> ggLeap group move
//	client.not_checked_in_mid_month -> check-in reminder webhook
//	krc_meetup_announce             -> meetup webhook
func (s *Server) handleEventProcess(ctx context.Context, task *asynq.Task) error {
	var payload EventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid event payload: %w", err)
	}

	s.log.Info("processing event", zap.String("event", payload.Event))

	switch payload.Event {
	case EventClientCreated, EventCheckinCreated, EventMembershipExpiry,
		EventNoCheckinMid, EventMeetupAnnounce:
		return s.sendEventWebhook(ctx, payload)
	case EventStatusChanged:
		return s.handleStatusChanged(ctx, payload)
	case EventClientUpdated, EventClientDeleted:
		// Consumed by the Kafka indexing pipeline; nothing to do here.
		return nil
	default:
		s.log.Warn("unknown event type", zap.String("event", payload.Event))
		return nil
	}
}

func (s *Server) sendEventWebhook(ctx context.Context, payload EventPayload) error {
	if !config.AppConfig.FeatureMessaging {
		s.log.Info("messaging feature disabled, skipping webhook",
			zap.String("event", payload.Event))
		return nil
	}
	return s.messenger.SendWebhook(ctx, payload.Event, payload.Data)
}

func (s *Server) handleStatusChanged(ctx context.Context, payload EventPayload) error {
	rawID, _ := payload.Data["client_id"].(string)
	status, _ := payload.Data["new_status"].(string)

	clientID, err := uuid.Parse(rawID)
	if err != nil || status == "" {
		s.log.Warn("status change event missing client_id or new_status")
		return nil
	}
	return s.syncer.UpdateClientGroup(ctx, clientID, status)
}
