package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-chat/internal/interface/http"
	"github.com/oksasatya/go-ddd-chat/internal/interface/middleware"
)

const exportsPerMin = 6

type ChatModule struct {
	h *handlers.ChatHandler

	rdb        *redis.Client
	sendPerMin int
}

// NewChatModule mounts the chat REST routes. sendPerMin caps POST /messages per
// client; zero or a nil redis client disables the cap.
func NewChatModule(h *handlers.ChatHandler, rdb *redis.Client, sendPerMin int) *ChatModule {
	return &ChatModule{h: h, rdb: rdb, sendPerMin: sendPerMin}
}

func (m *ChatModule) Register(rg *gin.RouterGroup) {
	sendLimit := middleware.RateLimit(m.rdb, m.sendPerMin, time.Minute, middleware.KeyByIPAndPath(), nil)
	// exports upload the full message log
	exportLimit := middleware.RateLimit(m.rdb, exportsPerMin, time.Minute, middleware.KeyByIPAndChat(), middleware.AllowPrivateIP())

	chats := rg.Group("/chats")
	{
		chats.POST("", m.h.Create)
		chats.GET("", m.h.List)
		chats.GET("/:chatId", m.h.Get)
		chats.DELETE("/:chatId", m.h.Delete)

		chats.POST("/:chatId/messages", sendLimit, m.h.SendMessage)
		chats.GET("/:chatId/messages", m.h.RecentMessages)
		chats.GET("/:chatId/messages/search", m.h.Search)
		chats.POST("/:chatId/transcript", exportLimit, m.h.ExportTranscript)
	}
}
