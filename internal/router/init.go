package router

import (
	"github.com/ymatsuda/member-api/internal/application"
	"github.com/ymatsuda/member-api/internal/container"
	pginfra "github.com/ymatsuda/member-api/internal/infrastructure/postgres"
	handlers "github.com/ymatsuda/member-api/internal/interface/http"
	"github.com/ymatsuda/member-api/internal/router/modules"
)

// InitModules builds the services from container singletons and registers
// every feature module on the registry. Called once during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	users := pginfra.NewUserRepository(pool)
	sessions := pginfra.NewSessionRepository(pool)
	accounts := pginfra.NewAccountRepository(pool)
	verifications := pginfra.NewVerificationRepository(pool)
	posts := pginfra.NewPostRepository(pool)

	cache := application.NewSessionCache(container.GetRedis())
	oauth := application.NewGoogleOAuthProvider(application.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})

	authSvc := application.NewAuthService(users, sessions, accounts, verifications, oauth, cache, container.GetRabbitPub(), logger, cfg)
	accountSvc := application.NewAccountService(users, cache, container.GetGCS(), cfg.GCSBucket, container.GetRabbitPub(), logger, cfg)
	postSvc := application.NewPostService(posts, container.GetES(), cfg.ESPostsIndex, logger)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(authSvc, logger, cfg), authSvc))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(accountSvc, logger, cfg), authSvc))
	r.Add(modules.NewPostModule(handlers.NewPostHandler(postSvc, logger), authSvc))
}
