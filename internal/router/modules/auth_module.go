package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ymatsuda/member-api/internal/application"
	"github.com/ymatsuda/member-api/internal/container"
	handlers "github.com/ymatsuda/member-api/internal/interface/http"
	"github.com/ymatsuda/member-api/internal/interface/middleware"
)

// AuthModule wires the sign-up/sign-in/sign-out surface plus email
// verification and password reset routes.
type AuthModule struct {
	Handler  *handlers.AuthHandler
	Provider application.IdentityProvider
}

func NewAuthModule(h *handlers.AuthHandler, provider application.IdentityProvider) *AuthModule {
	return &AuthModule{Handler: h, Provider: provider}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	cookieName := container.GetConfig().CookieName

	signUpLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	signInLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIP(), nil)
	forgetLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	tokenLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/auth/sign-up/email", signUpLimiter, m.Handler.SignUp)
	rg.POST("/auth/sign-in/email", signInLimiter, m.Handler.SignIn)
	rg.POST("/auth/sign-out", m.Handler.SignOut)
	rg.GET("/auth/get-session", m.Handler.GetSession)

	rg.GET("/auth/google", m.Handler.GoogleRedirect)
	rg.GET("/auth/google/callback", m.Handler.GoogleCallback)

	rg.POST("/auth/verify-email", tokenLimiter, m.Handler.VerifyEmail)
	rg.POST("/auth/forget-password", forgetLimiter, m.Handler.ForgetPassword)
	rg.POST("/auth/reset-password", tokenLimiter, m.Handler.ResetPassword)

	// Re-sending the verification email needs a session
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Provider, cookieName))
	auth.Use(middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/auth/send-verification-email", m.Handler.SendVerificationEmail)
	}
}
