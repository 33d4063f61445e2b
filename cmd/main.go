package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/oksasatya/go-ddd-chat/config"
	"github.com/oksasatya/go-ddd-chat/internal/container"
	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
	"github.com/oksasatya/go-ddd-chat/internal/infrastructure/messaging"
	pginfra "github.com/oksasatya/go-ddd-chat/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-chat/internal/infrastructure/realtime"
	"github.com/oksasatya/go-ddd-chat/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-chat/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-chat/internal/router"
	"github.com/oksasatya/go-ddd-chat/pkg/helpers"
	mailtpl "github.com/oksasatya/go-ddd-chat/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	// Initialize Postgres pool
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLife,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	// Run migrations using database/sql with pgx stdlib
	if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	// Redis backs the chat cache and the rate limiter; both degrade when it is down
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		helpers.LogError(logger, "redis unavailable, continuing without cache", err, logrus.Fields{"addr": cfg.RedisAddr})
	}

	// GCS only when a transcript bucket is configured
	var gcsClient *storage.Client
	if cfg.GCSBucket != "" {
		gcsClient, err = helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			log.Fatalf("failed to init GCS client: %v", err)
		}
		defer func() { _ = gcsClient.Close() }()
	}

	// Domain event fan-out
	dispatcher := messaging.NewDispatcher(logger, cfg.EventHandlerTimeout)
	audit := messaging.NewLogHandler(logger)
	dispatcher.Subscribe(entity.EventChatCreated, audit)
	dispatcher.Subscribe(entity.EventMessageSent, audit)

	hub := realtime.NewHub(logger, realtime.Options{
		SendBuffer:     cfg.WSSendBuffer,
		AllowedOrigins: cfg.CORSOrigins(),
	})
	dispatcher.Subscribe(entity.EventMessageSent, hub)

	// Elasticsearch (message search)
	var index *search.MessageIndex
	if es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass); err != nil {
		helpers.LogError(logger, "elasticsearch client init failed, search disabled", err, nil)
	} else {
		container.SetES(es)
		candidate := search.NewMessageIndex(es, cfg.ESMessagesIndex, logger)
		if err := candidate.EnsureIndex(ctx); err != nil {
			helpers.LogError(logger, "elasticsearch unavailable, search disabled", err, logrus.Fields{"index": cfg.ESMessagesIndex})
		} else {
			index = candidate
			dispatcher.Subscribe(entity.EventMessageSent, index)
		}
	}

	// Email receipts through the worker queue
	var rabbitPub *helpers.RabbitPublisher
	if cfg.MailSendEnabled && cfg.RabbitMQURL != "" {
		rabbitPub, err = helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			helpers.LogError(logger, "rabbitmq unavailable, email receipts disabled", err, logrus.Fields{"queue": cfg.RabbitMQEmailQueue})
		} else {
			defer rabbitPub.Close()
			dispatcher.Subscribe(entity.EventMessageSent, messaging.NewEmailReceiptHandler(rabbitPub, mailtpl.BrandFromConfig(cfg)))
		}
	}

	// Provide infra singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(pool)
	container.SetRedis(rdb)
	container.SetGCS(gcsClient)
	container.SetRabbitPub(rabbitPub)
	container.SetMessageIndex(index)
	container.SetDispatcher(dispatcher)
	container.SetHub(hub)

	helpers.LogInfo(logger, "collaborators ready", logrus.Fields{
		"search":      index != nil,
		"transcripts": gcsClient != nil,
		"receipts":    rabbitPub != nil,
	})

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RealIP())
	r.Use(middleware.RequestIDMiddleware())
	// CORS
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))
	if cfg.IsDevelopment() || cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	// Registry: auto-register modules using container
	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		helpers.LogError(logger, "server forced to shutdown", err, nil)
	}
	// websocket connections are hijacked and outlive srv.Shutdown
	hub.Close()
	if err := dispatcher.Shutdown(ctxShutdown); err != nil {
		helpers.LogError(logger, "event handlers still running at exit", err, nil)
	}
	logger.Info("server exited properly")
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	// Open sql DB via pgx stdlib
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
