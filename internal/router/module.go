package router

import "github.com/gin-gonic/gin"

// Module registers a feature's routes on the group it is mounted on.
type Module interface {
	Register(rg *gin.RouterGroup)
}
