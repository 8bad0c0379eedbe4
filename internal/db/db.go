package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"drivepulse/internal/config"
)

// Connect opens a GORM database connection using APP_DATABASE_URL (PostgreSQL URL)
// and migrates the schema.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	// TranslateError maps unique violations to gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the tables. Parents come before children so
// the foreign keys can be added in one pass.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Session{},
		&NetworkMeasurement{},
		&SpeedTest{},
		&Event{},
		&MosFeedback{},
	)
}

// EnsureBootstrapUser makes sure a user exists for the bootstrap
// credentials in config. If the email is already registered the row is
// left as-is.
func EnsureBootstrapUser(db *gorm.DB, cfg *config.Config) error {
	if cfg.BootstrapEmail == "" || cfg.BootstrapPassword == "" {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapEmail))

	var count int64
	if err := db.Model(&User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.BootstrapPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Create(&User{
		Email:        email,
		PasswordHash: string(hash),
	}).Error
}
