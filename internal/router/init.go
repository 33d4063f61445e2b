package router

import (
	"github.com/oksasatya/go-ddd-chat/internal/application"
	"github.com/oksasatya/go-ddd-chat/internal/container"
	"github.com/oksasatya/go-ddd-chat/internal/domain/repository"
	"github.com/oksasatya/go-ddd-chat/internal/infrastructure/archive"
	"github.com/oksasatya/go-ddd-chat/internal/infrastructure/cache"
	pginfra "github.com/oksasatya/go-ddd-chat/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/go-ddd-chat/internal/interface/http"
	"github.com/oksasatya/go-ddd-chat/internal/router/modules"
)

type ChatModuleDeps struct {
	Repo    repository.ChatRepository
	Service *application.ChatService
	Handler *handlers.ChatHandler
	WS      *handlers.WSHandler
}

func buildChatDeps() ChatModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	var repo repository.ChatRepository = pginfra.NewChatRepository(container.GetPGPool())
	if rdb := container.GetRedis(); rdb != nil {
		repo = cache.NewChatRepository(repo, rdb, cfg.ChatCacheTTL, logger)
	}

	var opts []application.ServiceOption
	if idx := container.GetMessageIndex(); idx != nil {
		opts = append(opts, application.WithSearcher(idx))
	}
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		opts = append(opts, application.WithTranscriptStore(archive.NewGCSTranscriptStore(gcs, cfg.GCSBucket)))
	}

	var events repository.EventPublisher
	if d := container.GetDispatcher(); d != nil {
		events = d
	}
	service := application.NewChatService(repo, events, logger, opts...)

	return ChatModuleDeps{
		Repo:    repo,
		Service: service,
		Handler: handlers.NewChatHandler(service, logger),
		WS:      handlers.NewWSHandler(container.GetHub(), service, logger),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	deps := buildChatDeps()

	r.Add(modules.NewChatModule(deps.Handler, container.GetRedis(), cfg.MessageRateLimit))
	r.Mount(r.WS, modules.NewRealtimeModule(deps.WS))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(container.GetRedis()))
	}
}
