package realtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-chat/internal/domain/entity"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sentEvent(t *testing.T) entity.MessageSent {
	t.Helper()
	alice, err := entity.ParticipantOf("Alice", "alice@example.com")
	require.NoError(t, err)
	chat, err := entity.NewChat("General", alice)
	require.NoError(t, err)
	_, err = chat.SendMessage("hello there", alice)
	require.NoError(t, err)
	return chat.DomainEvents()[1].(entity.MessageSent)
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case b, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		return b
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestHub_BroadcastIsPerTopic(t *testing.T) {
	h := NewHub(quietLogger(), Options{SendBuffer: 4})
	a := uuid.New()
	b := uuid.New()
	ca := h.Subscribe(Topic(a))
	cb := h.Subscribe(Topic(b))

	require.Equal(t, 1, h.Broadcast(Topic(a), []byte("x")))
	require.Equal(t, []byte("x"), recv(t, ca))
	require.Empty(t, cb.send)

	require.Equal(t, 0, h.Broadcast(Topic(uuid.New()), []byte("y")))
}

func TestHub_DisconnectsSlowClient(t *testing.T) {
	h := NewHub(quietLogger(), Options{SendBuffer: 1})
	topic := Topic(uuid.New())
	slow := h.Subscribe(topic)
	fast := h.Subscribe(topic)

	require.Equal(t, 2, h.Broadcast(topic, []byte("1")))
	recv(t, fast)

	require.Equal(t, 1, h.Broadcast(topic, []byte("2")))
	require.Equal(t, 1, h.Subscribers(topic))

	// the queued frame is still readable, then the channel is closed
	require.Equal(t, []byte("1"), <-slow.send)
	_, open := <-slow.send
	require.False(t, open)
}

func TestHub_UnsubscribeTwice(t *testing.T) {
	h := NewHub(quietLogger(), Options{})
	c := h.Subscribe("/topic/chat/x")
	h.Unsubscribe(c)
	h.Unsubscribe(c)
	require.Equal(t, 0, h.Subscribers("/topic/chat/x"))
}

func TestHub_HandleMessageSent(t *testing.T) {
	h := NewHub(quietLogger(), Options{})
	evt := sentEvent(t)
	c := h.Subscribe(Topic(evt.ChatID))

	require.NoError(t, h.Handle(context.Background(), evt))

	var env struct {
		Topic string `json:"topic"`
		Event string `json:"event"`
		Data  struct {
			ID          string `json:"id"`
			ChatID      string `json:"chatId"`
			Content     string `json:"content"`
			SenderEmail string `json:"senderEmail"`
			Timestamp   string `json:"timestamp"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recv(t, c), &env))
	require.Equal(t, "/topic/chat/"+evt.ChatID.String(), env.Topic)
	require.Equal(t, EventMessage, env.Event)
	require.Equal(t, evt.Message.ID().String(), env.Data.ID)
	require.Equal(t, evt.ChatID.String(), env.Data.ChatID)
	require.Equal(t, "hello there", env.Data.Content)
	require.Equal(t, "alice@example.com", env.Data.SenderEmail)
	_, err := time.Parse(time.RFC3339, env.Data.Timestamp)
	require.NoError(t, err)
}

func TestHub_IgnoresOtherEvents(t *testing.T) {
	h := NewHub(quietLogger(), Options{})
	require.NoError(t, h.Handle(context.Background(), entity.ChatCreated{ChatID: uuid.New()}))
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	require.True(t, originChecker(nil)(req("https://evil.example")))
	require.True(t, originChecker([]string{"*"})(req("https://evil.example")))

	check := originChecker([]string{"https://app.example.com"})
	require.True(t, check(req("https://app.example.com")))
	require.True(t, check(req("")))
	require.False(t, check(req("https://evil.example")))
}

func TestServeWS_RoundTrip(t *testing.T) {
	h := NewHub(quietLogger(), Options{SendBuffer: 8})
	evt := sentEvent(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r, evt.ChatID)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, EventSubscribed, env.Event)
	require.Equal(t, Topic(evt.ChatID), env.Topic)
	require.Equal(t, 1, h.Subscribers(Topic(evt.ChatID)))

	require.NoError(t, h.Handle(context.Background(), evt))
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, EventMessage, env.Event)
	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "hello there", data["content"])

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return h.Subscribers(Topic(evt.ChatID)) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWS_HubCloseEndsStream(t *testing.T) {
	h := NewHub(quietLogger(), Options{})
	chatID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = h.ServeWS(w, r, chatID)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	h.Close()

	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
