package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-chat/internal/application"
	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
	"github.com/oksasatya/go-ddd-chat/pkg/response"
	"github.com/oksasatya/go-ddd-chat/pkg/validation"
)

type ChatHandler struct {
	Svc    *application.ChatService
	Logger *logrus.Logger
}

func NewChatHandler(svc *application.ChatService, logger *logrus.Logger) *ChatHandler {
	// binding tags below rely on the chat aliases
	validation.Init()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ChatHandler{Svc: svc, Logger: logger}
}

type createChatRequest struct {
	ChatName     string `json:"chatName" binding:"chatname"`
	CreatorName  string `json:"creatorName" binding:"personname"`
	CreatorEmail string `json:"creatorEmail" binding:"required"`
}

type sendMessageRequest struct {
	Content     string `json:"content" binding:"msgcontent"`
	SenderName  string `json:"senderName" binding:"personname"`
	SenderEmail string `json:"senderEmail" binding:"required"`
}

// chatID reads :chatId and writes a 400 when it is not a UUID.
func (h *ChatHandler) chatID(c *gin.Context) (uuid.UUID, bool) {
	id, err := application.ParseChatID(c.Param("chatId"))
	if err != nil {
		writeError(c, h.Logger, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *ChatHandler) Create(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	chat, err := h.Svc.CreateChat(c.Request.Context(), application.CreateChatInput{
		ChatName:     req.ChatName,
		CreatorName:  req.CreatorName,
		CreatorEmail: req.CreatorEmail,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, application.ChatViewOf(chat), "chat created", nil)
}

func (h *ChatHandler) List(c *gin.Context) {
	chats, err := h.Svc.ListChats(c.Request.Context())
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	views := make([]application.ChatView, 0, len(chats))
	for _, ch := range chats {
		views = append(views, application.ChatViewOf(ch))
	}
	response.Success(c, http.StatusOK, views, "chats", map[string]any{"count": len(views)})
}

func (h *ChatHandler) Get(c *gin.Context) {
	id, ok := h.chatID(c)
	if !ok {
		return
	}
	chat, err := h.Svc.GetChat(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, application.ChatViewOf(chat), "chat", nil)
}

func (h *ChatHandler) Delete(c *gin.Context) {
	id, ok := h.chatID(c)
	if !ok {
		return
	}
	if err := h.Svc.DeleteChat(c.Request.Context(), id); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"deleted": true}, "chat deleted", nil)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	id, ok := h.chatID(c)
	if !ok {
		return
	}
	msg, err := h.Svc.SendMessage(c.Request.Context(), application.SendMessageInput{
		ChatID:      id.String(),
		Content:     req.Content,
		SenderName:  req.SenderName,
		SenderEmail: req.SenderEmail,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	view := application.MessageViewOf(msg)
	view.ChatID = id.String()
	response.Success(c, http.StatusCreated, view, "message sent", nil)
}

// RecentMessages serves GET /chats/:chatId/messages?limit=N, oldest first.
func (h *ChatHandler) RecentMessages(c *gin.Context) {
	id, ok := h.chatID(c)
	if !ok {
		return
	}
	limit, err := intQuery(c, "limit", application.DefaultRecentLimit)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if limit == 0 {
		writeError(c, h.Logger, entity.NewValidationError("limit", "limit must be positive"))
		return
	}
	msgs, err := h.Svc.GetRecentMessages(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, application.MessageViewsOf(msgs), "messages", map[string]any{"limit": limit, "count": len(msgs)})
}

func (h *ChatHandler) Search(c *gin.Context) {
	id, ok := h.chatID(c)
	if !ok {
		return
	}
	size, err := intQuery(c, "size", 0)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	hits, err := h.Svc.SearchMessages(c.Request.Context(), id, c.Query("q"), size)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, application.MessageViewsOf(hits), "search results", map[string]any{"count": len(hits)})
}

func (h *ChatHandler) ExportTranscript(c *gin.Context) {
	id, ok := h.chatID(c)
	if !ok {
		return
	}
	out, err := h.Svc.ExportTranscript(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, out, "transcript exported", nil)
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, entity.NewValidationError(key, key+" must be an integer")
	}
	return n, nil
}
