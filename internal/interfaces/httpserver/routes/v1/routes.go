package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/duetapp/duet-server/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")

	group.POST("/media", r.handlers.Media.Ingest)

	group.POST("/uploads", r.handlers.Upload.Create)
	group.PATCH("/uploads/:id", r.handlers.Upload.Append)
	group.HEAD("/uploads/:id", r.handlers.Upload.Offset)

	group.POST("/moments", r.handlers.Moment.Create)
	group.GET("/moments/:id", r.handlers.Moment.Get)
	group.DELETE("/moments/:id", r.handlers.Moment.Delete)
	group.POST("/moments/:id/photo", r.handlers.Moment.SubmitPhoto)

	group.POST("/sync", r.handlers.Sync.Apply)
}
