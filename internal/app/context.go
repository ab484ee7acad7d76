package app

import (
	"log/slog"

	"gorm.io/gorm"

	"harmony/internal/cache"
	"harmony/internal/config"
	"harmony/internal/relay"
)

// AppContext holds shared dependencies (DB, Redis, relay hub, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Hub        *relay.Hub
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, hub *relay.Hub, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Hub:        hub,
		Logger:     logger,
	}
}
