package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

// MailAccount binds a CRM user to a mail provider. Gmail accounts carry
// OAuth tokens; IMAP accounts carry server credentials.
type MailAccount struct {
	ID           string            `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	UserID       string            `gorm:"column:user_id;type:varchar(50);uniqueIndex;not null" json:"userId"`
	Provider     enum.MailProvider `gorm:"column:provider;type:varchar(20);not null" json:"provider"`
	EmailAddress string            `gorm:"column:email_address;type:varchar(255)" json:"emailAddress"`

	AccessToken  string     `gorm:"column:access_token;type:text" json:"-"`
	RefreshToken string     `gorm:"column:refresh_token;type:text" json:"-"`
	TokenExpiry  *time.Time `gorm:"column:token_expiry;type:timestamp" json:"-"`

	ImapServer   string `gorm:"column:imap_server;type:varchar(255)" json:"imapServer,omitempty"`
	ImapPort     int    `gorm:"column:imap_port" json:"imapPort,omitempty"`
	ImapUsername string `gorm:"column:imap_username;type:varchar(255)" json:"imapUsername,omitempty"`
	ImapPassword string `gorm:"column:imap_password;type:varchar(255)" json:"-"`
	ImapTLS      bool   `gorm:"column:imap_tls;default:true" json:"imapTls"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (MailAccount) TableName() string {
	return "mail_accounts"
}

func (m *MailAccount) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("macc", 16)
	}
	return nil
}
