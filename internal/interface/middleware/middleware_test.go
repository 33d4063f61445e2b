package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func engine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(RealIP())
	e.POST("/api/chats/:chatId/messages", append(mw, func(c *gin.Context) {
		c.String(http.StatusCreated, c.GetString("real_ip"))
	})...)
	return e
}

func post(e *gin.Engine, path, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BlocksAfterMax(t *testing.T) {
	_, rdb := newRedis(t)
	e := engine(RateLimit(rdb, 2, time.Minute, KeyByIPAndPath(), nil))

	for i := 0; i < 2; i++ {
		w := post(e, "/api/chats/a/messages", "203.0.113.7")
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := post(e, "/api/chats/b/messages", "203.0.113.7")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, w.Header().Get("Retry-After"))

	// another client has its own budget
	require.Equal(t, http.StatusCreated, post(e, "/api/chats/a/messages", "198.51.100.1").Code)
}

func TestRateLimit_KeyByIPAndChat(t *testing.T) {
	_, rdb := newRedis(t)
	e := engine(RateLimit(rdb, 1, time.Minute, KeyByIPAndChat(), nil))

	require.Equal(t, http.StatusCreated, post(e, "/api/chats/a/messages", "203.0.113.7").Code)
	require.Equal(t, http.StatusTooManyRequests, post(e, "/api/chats/a/messages", "203.0.113.7").Code)
	require.Equal(t, http.StatusCreated, post(e, "/api/chats/b/messages", "203.0.113.7").Code)
}

func TestRateLimit_WindowExpires(t *testing.T) {
	mr, rdb := newRedis(t)
	e := engine(RateLimit(rdb, 1, time.Minute, KeyByIP(), nil))

	require.Equal(t, http.StatusCreated, post(e, "/api/chats/a/messages", "203.0.113.7").Code)
	require.Equal(t, http.StatusTooManyRequests, post(e, "/api/chats/a/messages", "203.0.113.7").Code)
	mr.FastForward(61 * time.Second)
	require.Equal(t, http.StatusCreated, post(e, "/api/chats/a/messages", "203.0.113.7").Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	mr, rdb := newRedis(t)
	e := engine(RateLimit(rdb, 1, time.Minute, KeyByIP(), nil))
	mr.Close()

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, post(e, "/api/chats/a/messages", "203.0.113.7").Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	e := engine(RateLimit(nil, 1, time.Minute, KeyByIP(), nil))
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, post(e, "/api/chats/a/messages", "").Code)
	}
}

func TestRateLimit_AllowPrivateIP(t *testing.T) {
	_, rdb := newRedis(t)
	e := engine(RateLimit(rdb, 1, time.Minute, KeyByIP(), AllowPrivateIP()))

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, post(e, "/api/chats/a/messages", "10.1.2.3").Code)
	}
	require.Equal(t, http.StatusCreated, post(e, "/api/chats/a/messages", "203.0.113.7").Code)
	require.Equal(t, http.StatusTooManyRequests, post(e, "/api/chats/a/messages", "203.0.113.7").Code)
}

func TestRealIP(t *testing.T) {
	e := engine()

	w := post(e, "/api/chats/a/messages", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/chats/a/messages", nil)
	req.Header.Set("CF-Connecting-IP", "198.51.100.9")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	require.Equal(t, "198.51.100.9", w.Body.String())
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.Use(RequestIDMiddleware())
	e.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(w.Body.String())
	require.NoError(t, err)
	require.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, given)
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	require.Equal(t, given, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	require.NotEqual(t, "<script>", w.Body.String())
}
