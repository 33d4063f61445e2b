package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-chat/internal/interface/http"
)

// RealtimeModule serves websocket subscriptions outside the /api group.
type RealtimeModule struct {
	h *handlers.WSHandler
}

func NewRealtimeModule(h *handlers.WSHandler) *RealtimeModule { return &RealtimeModule{h: h} }

func (m *RealtimeModule) Register(rg *gin.RouterGroup) {
	rg.GET("/info", m.h.Info)
	rg.GET("/chats/:chatId", m.h.Subscribe)
}
