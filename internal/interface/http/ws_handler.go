package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-chat/internal/application"
	"github.com/oksasatya/go-ddd-chat/internal/infrastructure/realtime"
	"github.com/oksasatya/go-ddd-chat/pkg/response"
)

const wsEndpoint = "/ws/chats/{chatId}"

type WSHandler struct {
	Hub    *realtime.Hub
	Svc    *application.ChatService
	Logger *logrus.Logger
}

func NewWSHandler(hub *realtime.Hub, svc *application.ChatService, logger *logrus.Logger) *WSHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WSHandler{Hub: hub, Svc: svc, Logger: logger}
}

type wsInfo struct {
	Status    string   `json:"status"`
	Endpoint  string   `json:"endpoint"`
	Topics    []string `json:"topics"`
	Timestamp string   `json:"timestamp"`
}

// Subscribe upgrades GET /ws/chats/:chatId into a push stream of the chat's topic.
func (h *WSHandler) Subscribe(c *gin.Context) {
	id, err := application.ParseChatID(c.Param("chatId"))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if err := h.Svc.EnsureChatExists(c.Request.Context(), id); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if err := h.Hub.ServeWS(c.Writer, c.Request, id); err != nil {
		// the upgrader has already answered the client
		h.Logger.WithError(err).WithField("chat_id", id.String()).Debug("websocket subscribe failed")
	}
}

func (h *WSHandler) Info(c *gin.Context) {
	response.Success(c, http.StatusOK, wsInfo{
		Status:    "WebSocket endpoint active",
		Endpoint:  wsEndpoint,
		Topics:    []string{realtime.TopicPrefix + "{chatId}"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "websocket info", nil)
}
