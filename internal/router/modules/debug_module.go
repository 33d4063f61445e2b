package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-chat/internal/interface/middleware"
)

type DebugModule struct {
	rdb *redis.Client
}

func NewDebugModule(rdb *redis.Client) *DebugModule { return &DebugModule{rdb: rdb} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// dispatcher counters live here; callers on the private network skip the limit
	rl := middleware.RateLimit(m.rdb, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
