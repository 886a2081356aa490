package testutil

import "github.com/wahajws/amast-crm-sub001/internal/repository"

// Fakes groups the in-memory stores behind one Repositories value.
type Fakes struct {
	Emails        *EmailRepository
	Attachments   *EmailAttachmentRepository
	SyncLogs      *SyncLogRepository
	LabelSettings *LabelSyncSettingRepository
	Campaigns     *EmailCampaignRepository
	MailAccounts  *MailAccountRepository
	Directory     *Directory
}

func NewFakes() *Fakes {
	return &Fakes{
		Emails:        NewEmailRepository(),
		Attachments:   NewEmailAttachmentRepository(),
		SyncLogs:      NewSyncLogRepository(),
		LabelSettings: NewLabelSyncSettingRepository(),
		Campaigns:     NewEmailCampaignRepository(),
		MailAccounts:  NewMailAccountRepository(),
		Directory:     NewDirectory(),
	}
}

func (f *Fakes) Repositories() *repository.Repositories {
	return &repository.Repositories{
		EmailRepository:            f.Emails,
		EmailAttachmentRepository:  f.Attachments,
		SyncLogRepository:          f.SyncLogs,
		LabelSyncSettingRepository: f.LabelSettings,
		EmailCampaignRepository:    f.Campaigns,
		MailAccountRepository:      f.MailAccounts,
		Directory:                  f.Directory,
	}
}
