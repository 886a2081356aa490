package models

import (
	"time"

	"github.com/wahajws/amast-crm-sub001/internal/enum"
)

// LabelSyncSetting controls whether a provider label is synced for a user.
type LabelSyncSetting struct {
	ID           uint           `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	UserID       string         `gorm:"column:user_id;type:varchar(50);not null;uniqueIndex:idx_label_sync_user_label" json:"userId"`
	LabelID      string         `gorm:"column:label_id;type:varchar(255);not null;uniqueIndex:idx_label_sync_user_label" json:"labelId"`
	LabelName    string         `gorm:"column:label_name;type:varchar(255)" json:"labelName"`
	LabelType    enum.LabelType `gorm:"column:label_type;type:varchar(20)" json:"labelType"`
	IsSyncing    bool           `gorm:"column:is_syncing;not null;default:false;index" json:"isSyncing"`
	LastSyncedAt *time.Time     `gorm:"column:last_synced_at;type:timestamp" json:"lastSyncedAt"`
	CreatedAt    time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (LabelSyncSetting) TableName() string {
	return "label_sync_settings"
}
