package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/stash/internal/library"
	"github.com/MarcoPoloResearchLab/stash/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationRecountDenormalizedCounters = "2026-10-01_recount_denormalized_counters"

type migrationRecord struct {
	Name        string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtMs int64  `gorm:"column:applied_at_ms;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationRecountDenormalizedCounters, apply: func(tx *gorm.DB) error {
			_, err := RecountCounters(tx)
			return err
		}},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().UnixMilli()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtMs: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// RecountReport lists how many rows a recount rewrote.
type RecountReport struct {
	Users       int64
	Collections int64
}

// RecountCounters recomputes users.bookmark_count from live bookmarks and
// collections.bookmark_count from live links.
func RecountCounters(db *gorm.DB) (RecountReport, error) {
	var report RecountReport
	err := db.Transaction(func(tx *gorm.DB) error {
		global := tx.Session(&gorm.Session{AllowGlobalUpdate: true})

		usersTable := users.User{}.TableName()
		bookmarksTable := library.Bookmark{}.TableName()
		userResult := global.Model(&users.User{}).Update("bookmark_count", gorm.Expr(
			"(SELECT COUNT(*) FROM " + bookmarksTable + " WHERE " + bookmarksTable + ".user_id = " + usersTable + ".id)"))
		if userResult.Error != nil {
			return userResult.Error
		}
		report.Users = userResult.RowsAffected

		collectionsTable := library.Collection{}.TableName()
		linksTable := library.BookmarkCollection{}.TableName()
		collectionResult := global.Model(&library.Collection{}).Update("bookmark_count", gorm.Expr(
			"(SELECT COUNT(*) FROM " + linksTable + " WHERE " + linksTable + ".collection_id = " + collectionsTable + ".id)"))
		if collectionResult.Error != nil {
			return collectionResult.Error
		}
		report.Collections = collectionResult.RowsAffected
		return nil
	})
	if err != nil {
		return RecountReport{}, err
	}
	return report, nil
}
