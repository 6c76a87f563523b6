package repo

import (
	"gorm.io/gorm"

	"github.com/KNICEX/candle-sentry/internal/entity"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.SignalRecord{})
}
