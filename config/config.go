package config

import (
	"fmt"
	"os"

	"qr-order-api/models"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Port      string
	DBPath    string
	JWTSecret []byte
	LogPath   string
}

// Load reads configuration from the environment. A .env file is loaded
// first if present; real environment variables take precedence.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Port:      getEnv("PORT", "8080"),
		DBPath:    getEnv("DB_PATH", "qr_order.db"),
		JWTSecret: []byte(getEnv("JWT_SECRET", "qr_order_dev_secret")),
		LogPath:   getEnv("LOG_PATH", "logs/app.log"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// OpenDB opens the sqlite database and migrates all models.
func OpenDB(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Restaurant{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}
