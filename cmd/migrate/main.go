package main

import (
	"context"
	"time"

	"tourdesk/internal/auth/repository"
	mongoMigration "tourdesk/internal/migrations/mongo"
	"tourdesk/pkg/config"
)

const migrationTimeout = 120 * time.Second

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()

	cfg := config.Load(config.ServiceMigrate)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Mongo migration job")
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}

	if cfg.AdminUsername == "" {
		cfg.Log.Info("ADMIN_USERNAME not set, skipping admin seed")
		return
	}
	seed := mongoMigration.AdminSeed{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
		Email:    cfg.AdminEmail,
	}
	if _, err := mongoMigration.SeedAdmin(ctx, repository.NewMongoUserRepository(cfg), seed, cfg.Log); err != nil {
		cfg.Log.Fatal("Admin seed failed", "error", err)
	}
	cfg.Log.Info("Migration completed")
}
