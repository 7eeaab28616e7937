package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"beccrm/backup"
	"beccrm/config"
	"beccrm/consumer"
	"beccrm/handlers"
	"beccrm/middleware"
	"beccrm/models"
	"beccrm/monitoring"
	"beccrm/routes"
	"beccrm/utils"
	"beccrm/worker"
)

func main() {
	config.LoadConfig()

	utils.InitializeLogger()
	log := utils.GetLogger()
	defer log.Sync()

	if dsn := config.AppConfig.SentryDSN; dsn != "" {
		if err := utils.InitSentry(dsn); err != nil {
			log.Warn("Sentry initialization failed", zap.Error(err))
		}
	}

	monitoring.Init()

	// Redis comes up slower than the app in compose, so retry before
	// giving up.
	var redisClient utils.RedisClient
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		redisClient, err = utils.NewRedisClient()
		if err == nil {
			break
		}
		log.Warn("Redis not ready, retrying",
			zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	repo, err := models.NewPostgresRepository(config.AppConfig.DatabaseDSN())
	if err != nil {
		log.Fatal("failed to connect to Postgres", zap.Error(err))
	}
	defer repo.Close()

	if email := config.AppConfig.BootstrapAdminMail; email != "" {
		if err := handlers.BootstrapAdmin(repo, email, config.AppConfig.BootstrapAdminPass); err != nil {
			log.Fatal("failed to bootstrap admin user", zap.Error(err))
		}
	}

	producer, err := utils.NewKafkaProducer()
	if err != nil {
		log.Warn("Kafka unavailable, event indexing disabled", zap.Error(err))
		producer = nil
	} else {
		defer producer.Close()
	}

	var esClient utils.ElasticsearchClient
	if config.AppConfig.ElasticsearchURL != "" {
		esClient, err = utils.NewElasticsearchClient()
		if err != nil {
			log.Warn("Elasticsearch unavailable, falling back to Postgres search", zap.Error(err))
			esClient = nil
		}
	}

	enqueuer := worker.NewEnqueuer()
	defer enqueuer.Close()

	backups := backup.NewManager()

	workerSrv := worker.NewServer(repo, enqueuer, backups, config.AppConfig.Location())
	if err := workerSrv.Start(); err != nil {
		log.Fatal("failed to start background worker", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var eventConsumer *consumer.ClientConsumer
	if producer != nil {
		eventConsumer = consumer.NewClientConsumer(repo, redisClient, esClient)
		eventConsumer.Start(ctx)
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.ErrorHandler(),
		middleware.PrometheusMetrics(),
		middleware.SentryMiddleware(),
	)

	routes.Register(r, routes.Handlers{
		Repo:       repo,
		Auth:       handlers.NewAuthHandler(repo),
		Password:   handlers.NewPasswordHandler(repo),
		Users:      handlers.NewUserHandler(repo),
		Clients:    handlers.NewClientHandler(repo, redisClient, esClient, producer, enqueuer),
		Membership: handlers.NewMembershipHandler(repo, enqueuer),
		CheckIns:   handlers.NewCheckInHandler(repo, producer, enqueuer),
		Admin:      handlers.NewAdminHandler(repo, backups, worker.NewGgleapSyncer(repo)),
	})

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: r,
	}

	go func() {
		log.Info("starting API server",
			zap.String("port", config.AppConfig.AppPort),
			zap.String("env", config.GetEnv()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}

	workerSrv.Stop()
	if eventConsumer != nil {
		eventConsumer.Stop()
	}
	cancel()

	log.Info("stopped")
}
