package models

import (
	"time"

	"gorm.io/gorm"
)

// Account is a directory record owned by the wider CRM.
type Account struct {
	ID        string         `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	OwnerID   string         `gorm:"column:owner_id;type:varchar(50);index" json:"ownerId"`
	Name      string         `gorm:"column:name;type:varchar(255);index" json:"name"`
	Website   string         `gorm:"column:website;type:varchar(500)" json:"website"`
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}
