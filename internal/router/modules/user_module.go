package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ymatsuda/member-api/internal/application"
	"github.com/ymatsuda/member-api/internal/container"
	handlers "github.com/ymatsuda/member-api/internal/interface/http"
	"github.com/ymatsuda/member-api/internal/interface/middleware"
)

// UserModule wires the profile surface and the withdrawal endpoint.
// Everything here requires a live session.
type UserModule struct {
	Handler  *handlers.UserHandler
	Provider application.IdentityProvider
}

func NewUserModule(h *handlers.UserHandler, provider application.IdentityProvider) *UserModule {
	return &UserModule{Handler: h, Provider: provider}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	cookieName := container.GetConfig().CookieName

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Provider, cookieName))
	auth.Use(
		middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		auth.GET("/me", m.Handler.Me)
		auth.PUT("/profile", m.Handler.UpdateProfile)
		auth.POST("/profile/avatar", m.Handler.UploadAvatar)
		auth.POST("/user/withdraw", m.Handler.Withdraw)
	}
}
