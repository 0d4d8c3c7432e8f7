package database

import (
	"errors"
	"strings"

	"github.com/MarcoPoloResearchLab/stash/internal/library"
	"github.com/MarcoPoloResearchLab/stash/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const busyTimeoutPragma = "_pragma=busy_timeout(5000)"

var errMissingDatabasePath = errors.New("database path is required")

// OpenSQLite opens the library database on a single connection, creates every table and applies
// pending named migrations. A failed migration closes the connection.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errMissingDatabasePath
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(withPragmas(path)), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(schemaModels()...); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if err := applyMigrations(db, logger); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Info("database initialized", zap.String("path", path), zap.Int("tables", len(schemaModels())))
	return db, nil
}

func withPragmas(path string) string {
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return path + separator + busyTimeoutPragma
}

func schemaModels() []any {
	models := []any{&users.User{}}
	models = append(models, library.Models()...)
	return append(models, &migrationRecord{})
}
