package repository

import (
	"gorm.io/gorm"

	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/services/domain_matcher"
)

type Repositories struct {
	EmailRepository            interfaces.EmailRepository
	EmailAttachmentRepository  interfaces.EmailAttachmentRepository
	SyncLogRepository          interfaces.SyncLogRepository
	LabelSyncSettingRepository interfaces.LabelSyncSettingRepository
	EmailCampaignRepository    interfaces.EmailCampaignRepository
	MailAccountRepository      interfaces.MailAccountRepository
	Directory                  interfaces.Directory
}

// InitRepositories builds the postgres repositories. attachmentStorage may
// be nil when object storage is not configured.
func InitRepositories(db *gorm.DB, matcher *domain_matcher.Matcher, attachmentStorage interfaces.StorageService, storageName string) *Repositories {
	return &Repositories{
		EmailRepository:            NewEmailRepository(db),
		EmailAttachmentRepository:  NewEmailAttachmentRepository(db, attachmentStorage, storageName),
		SyncLogRepository:          NewSyncLogRepository(db),
		LabelSyncSettingRepository: NewLabelSyncSettingRepository(db),
		EmailCampaignRepository:    NewEmailCampaignRepository(db),
		MailAccountRepository:      NewMailAccountRepository(db),
		Directory:                  NewDirectoryRepository(db, matcher),
	}
}
