package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Krish-Depani/ghost-ai-server/config"
	"github.com/Krish-Depani/ghost-ai-server/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func gormConfig(log zerolog.Logger) *gorm.Config {
	return &gorm.Config{Logger: NewGormLogger(log)}
}

func NewPostgresClient(host, user, password, dbname, port string, log zerolog.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable", host, user, password, dbname, port)

	pgClient, err := gorm.Open(postgres.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, err
	}

	return pgClient, nil
}

func NewSQLiteClient(path string, log zerolog.Logger) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	return gorm.Open(sqlite.Open(path), gormConfig(log))
}

// Open connects to the configured driver and migrates the collections.
func Open(env *config.Env, log zerolog.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch env.DBDriver {
	case "sqlite":
		db, err = NewSQLiteClient(env.DBPath, log)
	default:
		db, err = NewPostgresClient(env.DBHost, env.DBUser, env.DBPassword, env.DBName, env.DBPort, log)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.UserSession{}, &models.Message{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
