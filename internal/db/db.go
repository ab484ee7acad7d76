package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"harmony/internal/config"
)

// Models lists every table in migration order (catalog before the rows that
// reference it). Shared with test setups.
func Models() []any {
	return []any{
		&User{},
		&Genre{},
		&Artist{},
		&Song{},
		&GenrePreference{},
		&ArtistPreference{},
		&SongPreference{},
		&MatchWeightSettings{},
		&Swipe{},
		&Match{},
		&MatchRejection{},
		&Conversation{},
		&Message{},
	}
}

// NewDB initializes the database connection using DSN from config.
// TranslateError is on so duplicate-key violations surface as
// gorm.ErrDuplicatedKey regardless of driver; the match ledger depends on
// that to resolve concurrent accepts.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DB.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// AutoMigrate ensures schema is in sync with models.
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}
