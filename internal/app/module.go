package app

import "github.com/gin-gonic/gin"

// Module defines the contract for a self-registering module. The router
// decides which group a module is mounted on and which middleware guards it.
type Module interface {
	RegisterRoutes(g *gin.RouterGroup)
}
