package repo

import (
	"github.com/gaobi639-netizen/okx-monitor/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Trader{})
}
