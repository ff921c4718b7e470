package http

import (
	"leadscore_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the shared groups.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the /api/v1 route group.
	V1 *gin.RouterGroup
	// Protected is the authenticated route group under /api/v1.
	Protected *gin.RouterGroup
	// Internal is the authenticated service-to-service group under
	// /api/v1/internal, with the stricter trigger rate limit applied.
	Internal *gin.RouterGroup
	// TriggerRateLimiter limits trigger submissions per client.
	TriggerRateLimiter *httpkit.IPRateLimiter
}
