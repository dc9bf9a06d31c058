package database

import (
	"strings"

	"github.com/pathakanu/remindr/internal/model"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New creates a GORM database connection.
// When databaseURL is provided PostgreSQL is used, otherwise SQLite is used.
func New(databaseURL string, log zerolog.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	if databaseURL != "" {
		db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	} else {
		db, err = gorm.Open(sqlite.Open("reminders.db"), gormConfig)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logBackend(db, log)
	return db, nil
}

// Migrate creates or updates the tables used by the dispatcher.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Reminder{}, &model.User{})
}

func logBackend(db *gorm.DB, log zerolog.Logger) {
	dialector := db.Dialector.Name()
	switch strings.ToLower(dialector) {
	case "postgres":
		log.Info().Msg("database: connected to PostgreSQL")
	case "sqlite":
		log.Info().Msg("database: using SQLite reminders.db")
	default:
		log.Info().Str("dialector", dialector).Msg("database: connected")
	}
}
