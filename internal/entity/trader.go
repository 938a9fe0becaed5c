package entity

import (
	"time"
)

// Trader 被监控的带单交易员
type Trader struct {
	Id         int64  `gorm:"primaryKey;autoIncrement"`
	UniqueCode string `gorm:"uniqueIndex"`
	NickName   string
	Enabled    bool
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}
