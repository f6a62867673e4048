package repository

import (
	"fmt"

	"committee-live/internal/domain/event"
	"committee-live/internal/domain/member"
	"committee-live/internal/domain/poll"

	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&member.Member{},
		&event.Event{},
		&poll.Poll{},
		&poll.Vote{},
	}
}

// InitSchema handles the database schema migration.
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}

// Truncate removes all rows, children first.
func Truncate(db *gorm.DB) error {
	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(models[i]).Error; err != nil {
			return fmt.Errorf("truncate %T: %w", models[i], err)
		}
	}
	return nil
}
