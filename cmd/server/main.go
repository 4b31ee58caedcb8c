package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	mqcontracts "taskreminder/contracts/mq"
	"taskreminder/internal/config"
	"taskreminder/internal/handler"
	"taskreminder/internal/httpserver"
	"taskreminder/internal/mqhandler"
	"taskreminder/internal/notify"
	"taskreminder/internal/repository"
	"taskreminder/internal/service/auth"
	"taskreminder/internal/service/importer"
	"taskreminder/internal/service/reminder"
	"taskreminder/internal/service/snapshot"
	"taskreminder/pkg/db"
	"taskreminder/pkg/logger"
	"taskreminder/pkg/mq"
	"taskreminder/pkg/redis"
	"taskreminder/pkg/util"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting taskreminder...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.Int("tick_seconds", cfg.Reminder.TickSeconds),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis (alert dedup + consumer retry budget)
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// MQ
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	consumer, err := mq.NewConsumer(cfg.MQ.URL, "taskreminder.task_changed", mqcontracts.RoutingKeyTaskChanged, log)
	if err != nil {
		log.Fatal("Failed to init MQ consumer", zap.Error(err))
	}
	defer consumer.Close()

	// Repositories
	taskRepo := repository.NewTaskRepository(dbConn, log)
	userRepo := repository.NewUserRepository(dbConn)

	// Services
	dedupTTL := time.Duration(cfg.Reminder.DedupTTLHours) * time.Hour
	deduper := util.NewDeduperWithLogger(rdb, dedupTTL, log)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	gate := notify.NewGate()
	dispatcher := notify.NewPushDispatcher(publisher, gate, log)

	scheduler := reminder.NewScheduler(dispatcher, taskRepo, deduper, log)
	scheduler.SetInterval(time.Duration(cfg.Reminder.TickSeconds) * time.Second)

	watcher := snapshot.NewWatcher(taskRepo, log)
	watcher.SetRefreshInterval(time.Duration(cfg.Reminder.RefreshSeconds) * time.Second)

	taskChangedHandler := mqhandler.NewTaskChangedHandler(taskRepo, watcher, retryCounter, publisher, log)
	consumer.SetHandler(taskChangedHandler.HandleTaskChanged)

	im := importer.New(taskRepo, log)
	authService := auth.NewService(userRepo, cfg.JWT.Secret)

	// Background loops: the watcher feeds replacement snapshots to the
	// scheduler; both stop through the same cancel on shutdown.
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	go watcher.Run(runCtx)
	go scheduler.Run(runCtx, watcher.Snapshots())
	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Error("Consumer stopped", zap.Error(err))
		}
	}()

	// HTTP server
	handlers := httpserver.Handlers{
		Tasks:         handler.NewTaskHandler(taskRepo, im, publisher, log),
		Notifications: handler.NewNotificationHandler(gate, log),
		Auth:          handler.NewAuthHandler(authService, log),
	}
	router := httpserver.NewRouter(handlers, cfg.JWT.Secret, log, dbConn, consumer)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("taskreminder is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down taskreminder gracefully...")

	// stop the scheduler and watcher first so no alert fires mid-shutdown
	runCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	consumer.Close()
	publisher.Close()
	dbConn.Close()

	log.Info("taskreminder shutdown complete")
}
