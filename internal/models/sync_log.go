package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

// SyncLog records one label sync run. A row is created when the run starts
// and completed exactly once when it ends.
type SyncLog struct {
	ID            string           `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	RunID         string           `gorm:"column:run_id;type:varchar(50);uniqueIndex" json:"runId"`
	UserID        string           `gorm:"column:user_id;type:varchar(50);index:idx_sync_logs_user_label;not null" json:"userId"`
	LabelID       string           `gorm:"column:label_id;type:varchar(255);index:idx_sync_logs_user_label;not null" json:"labelId"`
	TriggerType   enum.SyncTrigger `gorm:"column:trigger_type;type:varchar(20);not null" json:"triggerType"`
	Status        enum.SyncStatus  `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	EmailsSynced  int              `gorm:"column:emails_synced;default:0" json:"emailsSynced"`
	EmailsSkipped int              `gorm:"column:emails_skipped;default:0" json:"emailsSkipped"`
	EmailsFailed  int              `gorm:"column:emails_failed;default:0" json:"emailsFailed"`
	ErrorMessage  string           `gorm:"column:error_message;type:text" json:"errorMessage,omitempty"`
	Details       JSONMap          `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	StartedAt     time.Time        `gorm:"column:started_at;type:timestamp;not null" json:"startedAt"`
	FinishedAt    *time.Time       `gorm:"column:finished_at;type:timestamp" json:"finishedAt"`
}

func (SyncLog) TableName() string {
	return "sync_logs"
}

func (s *SyncLog) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = utils.GenerateNanoIDWithPrefix("sync", 16)
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = utils.Now()
	}
	return nil
}

func (s *SyncLog) IsFinished() bool {
	return s.FinishedAt != nil
}
