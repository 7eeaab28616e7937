package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"beccrm/models"
	"beccrm/utils"
)

// Jobs implements the periodic work fired by the scheduler. Each job
// queries the database and republishes per-entity events so delivery gets
// the queue's retry behavior.
type Jobs struct {
	repo     models.Repository
	enqueuer *Enqueuer
	loc      *time.Location
	log      *zap.Logger
}

func NewJobs(repo models.Repository, enqueuer *Enqueuer, loc *time.Location) *Jobs {
	return &Jobs{
		repo:     repo,
		enqueuer: enqueuer,
		loc:      loc,
		log:      utils.GetLogger(),
	}
}

// RunExpiryCheck publishes an expiry event for every membership ending
// within 30 days. Scheduled daily at 09:00.
func (j *Jobs) RunExpiryCheck(ctx context.Context) error {
	now := time.Now().In(j.loc)

	memberships, err := j.repo.ListExpiringMemberships(now, 30, nil)
	if err != nil {
		return fmt.Errorf("failed to list expiring memberships: %w", err)
	}

	for _, m := range memberships {
		data := map[string]interface{}{
			"membership_id": m.ID.String(),
			"client_id":     m.ClientID.String(),
			"expires_on":    m.EndsOn.Format("2006-01-02"),
			"plan_code":     m.PlanCode,
		}
		if m.Client != nil {
			data["name"] = m.Client.FullName()
			data["phone"] = m.Client.Phone
			data["email"] = m.Client.Email
		}
		if err := j.enqueuer.PublishEvent(EventMembershipExpiry, data); err != nil {
			j.log.Error("failed to publish expiry event", zap.Error(err))
		}
	}

	j.log.Info("membership expiry check done", zap.Int("expiring", len(memberships)))
	return nil
}

// RunCheckinReminder nudges clients with an active membership who have not
// visited this month. Scheduled on the 15th at 10:00; clients without a
// phone number are skipped.
func (j *Jobs) RunCheckinReminder(ctx context.Context) error {
	now := time.Now().In(j.loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, j.loc)

	clients, err := j.repo.ListClientsWithoutCheckInSince(monthStart, now)
	if err != nil {
		return fmt.Errorf("failed to list clients without check-ins: %w", err)
	}

	sent := 0
	for i := range clients {
		c := &clients[i]
		if c.Phone == "" {
			continue
		}
		err := j.enqueuer.PublishEvent(EventNoCheckinMid, map[string]interface{}{
			"client_id": c.ID.String(),
			"name":      c.FullName(),
			"phone":     c.Phone,
			"email":     c.Email,
		})
		if err != nil {
			j.log.Error("failed to publish check-in reminder", zap.Error(err))
			continue
		}
		sent++
	}

	j.log.Info("monthly check-in reminders sent", zap.Int("clients", sent))
	return nil
}

// RunMeetupAnnounce announces the monthly KRC meetup. The task fires every
// Tuesday; it only publishes on the second Tuesday of the month.
func (j *Jobs) RunMeetupAnnounce(ctx context.Context) error {
	now := time.Now().In(j.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, j.loc)

	second := SecondTuesday(now.Year(), now.Month(), j.loc)
	if !today.Equal(second) {
		j.log.Info("not the second Tuesday, skipping meetup announcement",
			zap.String("second_tuesday", second.Format("2006-01-02")))
		return nil
	}

	return j.enqueuer.PublishEvent(EventMeetupAnnounce, map[string]interface{}{
		"date":  second.Format("2006-01-02"),
		"month": now.Format("January 2006"),
	})
}

// SecondTuesday returns midnight of the second Tuesday of the given month.
func SecondTuesday(year int, month time.Month, loc *time.Location) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := (int(time.Tuesday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+7)
}
