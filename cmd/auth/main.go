package main

import (
	"tourdesk/internal/auth/handler"
	"tourdesk/internal/auth/repository"
	"tourdesk/internal/auth/service"
	"tourdesk/pkg/app"
	"tourdesk/pkg/config"
	"tourdesk/pkg/health"
	"tourdesk/pkg/middleware"
	"tourdesk/pkg/token"
)

func main() {
	cfg := config.Load(config.ServiceAuth)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Auth service")

	tokens := token.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	cfg.Log.Info("Issuing tokens", "access_ttl", tokens.AccessTTL(), "refresh_ttl", cfg.RefreshTokenTTL)
	authService := service.NewAuthService(
		repository.NewMongoUserRepository(cfg),
		repository.NewRedisRevocationStore(cfg.Client.Redis),
		tokens,
		cfg,
	)

	loginLimiter := middleware.NewRateLimiter(
		cfg.LoginRateLimitRequests,
		cfg.LoginRateLimitWindow,
		middleware.ClientIP,
		cfg.Log,
	)

	serverApp := app.NewApplication()
	serverApp.OnShutdown(loginLimiter.Stop)
	serverApp.SetApp(cfg, handler.NewAuthHandler(authService, tokens, loginLimiter, cfg.Log), map[string]health.Checker{
		"mongo": health.MongoChecker(cfg.Client.Mongo),
		"redis": health.RedisChecker(cfg.Client.Redis),
	})
	serverApp.Run()
}
