package main

import (
	"context"

	"github.com/joho/godotenv"

	"harmony/internal/app"
	"harmony/internal/cache"
	"harmony/internal/config"
	"harmony/internal/db"
	"harmony/internal/logger"
	"harmony/internal/relay"
	"harmony/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	hub := relay.NewHub(log)
	appCtx := app.New(cfg, database, redisCache, hub, log)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	if err := server.Start(appCtx); err != nil {
		log.Error("http server exited", "err", err)
	}
}
