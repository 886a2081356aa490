package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

// EmailAttachment is immutable once created. Bytes live in object storage
// when StorageKey is set, otherwise they are fetched from the provider on
// demand using ProviderAttachmentID.
type EmailAttachment struct {
	ID                   string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	EmailID              string `gorm:"column:email_id;type:varchar(50);index;not null" json:"emailId"`
	ProviderAttachmentID string `gorm:"column:provider_attachment_id;type:text" json:"-"`
	Filename             string `gorm:"column:filename;type:varchar(500)" json:"filename"`
	ContentType          string `gorm:"column:content_type;type:varchar(255)" json:"contentType"`
	Size                 int64  `gorm:"column:size;default:0" json:"size"`

	StorageService string `gorm:"column:storage_service;type:varchar(50)" json:"-"`
	StorageBucket  string `gorm:"column:storage_bucket;type:varchar(255)" json:"-"`
	StorageKey     string `gorm:"column:storage_key;type:varchar(1000)" json:"-"`
	ContentHash    string `gorm:"column:content_hash;type:varchar(64);index" json:"contentHash"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
}

func (EmailAttachment) TableName() string {
	return "email_attachments"
}

func (e *EmailAttachment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("file", 12)
	}
	e.CreatedAt = utils.Now()
	return nil
}

func (e *EmailAttachment) IsStored() bool {
	return e.StorageKey != ""
}
