// Package worker runs the background side of the CRM: webhook delivery,
// ggLeap group sync, periodic jobs and database backups, all on an asynq
// queue backed by Redis.
package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"beccrm/backup"
	"beccrm/models"
	"beccrm/utils"
)

// Server hosts the asynq worker and its cron scheduler.
type Server struct {
	srv       *asynq.Server
	scheduler *asynq.Scheduler
	messenger *Messenger
	syncer    *GgleapSyncer
	jobs      *Jobs
	backups   *backup.Manager
	log       *zap.Logger
}

func NewServer(repo models.Repository, enqueuer *Enqueuer, backups *backup.Manager, loc *time.Location) *Server {
	srv := asynq.NewServer(redisOpt(), asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
	})

	scheduler := asynq.NewScheduler(redisOpt(), &asynq.SchedulerOpts{
		Location: loc,
	})

	return &Server{
		srv:       srv,
		scheduler: scheduler,
		messenger: NewMessenger(repo),
		syncer:    NewGgleapSyncer(repo),
		jobs:      NewJobs(repo, enqueuer, loc),
		backups:   backups,
		log:       utils.GetLogger(),
	}
}

// Start registers handlers and the cron entries, then runs the worker and
// scheduler in background goroutines.
func (s *Server) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEventProcess, s.handleEventProcess)
	mux.HandleFunc(TypeWebhookRetry, func(ctx context.Context, _ *asynq.Task) error {
		return s.messenger.RetryFailedWebhooks(ctx)
	})
	mux.HandleFunc(TypeExpiryCheck, func(ctx context.Context, _ *asynq.Task) error {
		return s.jobs.RunExpiryCheck(ctx)
	})
	mux.HandleFunc(TypeCheckinReminder, func(ctx context.Context, _ *asynq.Task) error {
		return s.jobs.RunCheckinReminder(ctx)
	})
	mux.HandleFunc(TypeMeetupAnnounce, func(ctx context.Context, _ *asynq.Task) error {
		return s.jobs.RunMeetupAnnounce(ctx)
	})
	mux.HandleFunc(TypeGgleapSyncAll, func(ctx context.Context, _ *asynq.Task) error {
		return s.syncer.SyncAll(ctx, time.Now())
	})
	mux.HandleFunc(TypeBackupRun, func(ctx context.Context, _ *asynq.Task) error {
		return s.backups.Run(ctx)
	})

	entries := []struct {
		spec string
		task *asynq.Task
	}{
		{"0 9 * * *", asynq.NewTask(TypeExpiryCheck, nil)},       // daily 09:00
		{"0 10 15 * *", asynq.NewTask(TypeCheckinReminder, nil)}, // 15th 10:00
		{"0 10 * * 2", asynq.NewTask(TypeMeetupAnnounce, nil)},   // Tuesdays, 2nd enforced in job
		{"0 * * * *", asynq.NewTask(TypeWebhookRetry, nil)},      // hourly
		{"0 2 * * *", asynq.NewTask(TypeGgleapSyncAll, nil)},     // nightly 02:00
		{"0 3 * * *", asynq.NewTask(TypeBackupRun, nil)},         // nightly 03:00
	}
	for _, e := range entries {
		if _, err := s.scheduler.Register(e.spec, e.task); err != nil {
			return err
		}
	}

	go func() {
		if err := s.srv.Run(mux); err != nil {
			s.log.Error("worker stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := s.scheduler.Run(); err != nil {
			s.log.Error("scheduler stopped", zap.Error(err))
		}
	}()

	s.log.Info("worker and scheduler started")
	return nil
}

func (s *Server) Stop() {
	s.scheduler.Shutdown()
	s.srv.Shutdown()
}
