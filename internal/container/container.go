package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-chat/config"
	"github.com/oksasatya/go-ddd-chat/internal/infrastructure/messaging"
	"github.com/oksasatya/go-ddd-chat/internal/infrastructure/realtime"
	"github.com/oksasatya/go-ddd-chat/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-chat/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gcsClient   *storage.Client

	rabbitPub    *helpers.RabbitPublisher
	esClient     *elasticsearch.Client
	messageIndex *search.MessageIndex

	dispatcher *messaging.Dispatcher
	hub        *realtime.Hub
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config  { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger  { return logger }
func SetPGPool(p *pgxpool.Pool)  { pgPool = p }
func GetPGPool() *pgxpool.Pool   { return pgPool }
func SetRedis(r *redis.Client)   { redisClient = r }
func GetRedis() *redis.Client    { return redisClient }
func SetGCS(s *storage.Client)   { gcsClient = s }

// GetGCS is nil when no transcript bucket is configured.
func GetGCS() *storage.Client { return gcsClient }

func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }

func SetMessageIndex(i *search.MessageIndex) { messageIndex = i }

// GetMessageIndex is nil when Elasticsearch could not be reached at startup.
func GetMessageIndex() *search.MessageIndex { return messageIndex }

func SetDispatcher(d *messaging.Dispatcher) { dispatcher = d }
func GetDispatcher() *messaging.Dispatcher  { return dispatcher }
func SetHub(h *realtime.Hub)                { hub = h }
func GetHub() *realtime.Hub                 { return hub }
