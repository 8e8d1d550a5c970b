package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ymatsuda/member-api/internal/application"
	"github.com/ymatsuda/member-api/internal/container"
	handlers "github.com/ymatsuda/member-api/internal/interface/http"
	"github.com/ymatsuda/member-api/internal/interface/middleware"
)

// PostModule wires post CRUD and search behind the session middleware.
type PostModule struct {
	Handler  *handlers.PostHandler
	Provider application.IdentityProvider
}

func NewPostModule(h *handlers.PostHandler, provider application.IdentityProvider) *PostModule {
	return &PostModule{Handler: h, Provider: provider}
}

func (m *PostModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	cookieName := container.GetConfig().CookieName

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Provider, cookieName))
	auth.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/posts", m.Handler.Create)
		auth.GET("/posts", m.Handler.List)
		auth.GET("/posts/search", m.Handler.Search)
		auth.GET("/posts/:id", m.Handler.Get)
		auth.PUT("/posts/:id", m.Handler.Update)
		auth.DELETE("/posts/:id", m.Handler.Delete)
	}
}
