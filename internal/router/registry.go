package router

import "github.com/gin-gonic/gin"

type mount struct {
	group  *gin.RouterGroup
	module Module
}

// Registry collects modules and mounts them once every dependency is wired.
// API modules live under /api; websocket modules under /ws, which skips the
// API middleware chain.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	WS          *gin.RouterGroup
	middlewares []gin.HandlerFunc
	mounts      []mount
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{
		Engine: engine,
		API:    engine.Group("/api"),
		WS:     engine.Group("/ws"),
	}
}

// Use adds middleware to the /api group only.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

// Add mounts mod under /api.
func (r *Registry) Add(mod Module) {
	r.Mount(r.API, mod)
}

func (r *Registry) Mount(rg *gin.RouterGroup, mod Module) {
	r.mounts = append(r.mounts, mount{group: rg, module: mod})
}

func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.mounts {
		m.module.Register(m.group)
	}
}
