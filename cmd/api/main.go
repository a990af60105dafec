package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"task_list/internal/auth"
	"task_list/internal/cache"
	"task_list/internal/config"
	"task_list/internal/db"
	"task_list/internal/handler"
	"task_list/internal/observability"
	"task_list/internal/queue"
	"task_list/internal/task"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	observability.ConfigureLogging(cfg.LogLevel, cfg.AppEnv)
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := auth.NewJWTManager(cfg.JWT.Secret)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize token signer")
	}

	database, err := db.Init(&cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close database connection")
		}
	}()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), time.Minute)
	if err := db.Migrate(migrateCtx, database); err != nil {
		cancelMigrate()
		logrus.WithError(err).Fatal("Failed to run database migrations")
	}
	cancelMigrate()

	rdb, err := cache.SetupRedis(&cfg.Redis)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close redis connection")
		}
	}()

	// Initialize Prometheus metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(database, cfg.DB.Name),
	)
	metrics := observability.NewMetrics(reg)
	logrus.Info("Metrics initialized")

	var publisher task.Publisher
	if cfg.RabbitMQ.URL != "" {
		conn, err := queue.SetupRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to RabbitMQ")
		}
		defer func() {
			if err := conn.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close RabbitMQ connection")
			}
		}()
		publisher = queue.NewPublisher(conn, metrics)
	} else {
		logrus.Warn("RABBITMQ_URL is not set, task events are disabled")
	}

	r := handler.SetupHandler(database, rdb, publisher, tokens, reg, metrics, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logrus.Infof("Starting server on :%s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shut down")
	}
}
