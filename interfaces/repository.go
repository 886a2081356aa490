package interfaces

import (
	"context"
	"time"

	"github.com/wahajws/amast-crm-sub001/internal/models"
)

type EmailRepository interface {
	Create(ctx context.Context, email *models.Email) (bool, error)
	GetByID(ctx context.Context, userID, id string) (*models.Email, error)
	ExistsByProviderMessageID(ctx context.Context, userID, providerMessageID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Email, error)
	ListUnlinked(ctx context.Context, userID string, limit, offset int) ([]*models.Email, int64, error)
	SetRead(ctx context.Context, userID, id string, isRead bool) error
	SetStarred(ctx context.Context, userID, id string, isStarred bool) error
	SetLinks(ctx context.Context, userID, id string, contactID, accountID *string) error
	SoftDelete(ctx context.Context, userID, id string) error
}

type EmailAttachmentRepository interface {
	Create(ctx context.Context, attachment *models.EmailAttachment) error
	GetByID(ctx context.Context, id string) (*models.EmailAttachment, error)
	ListByEmail(ctx context.Context, emailID string) ([]*models.EmailAttachment, error)
	Store(ctx context.Context, attachment *models.EmailAttachment, data []byte) error
	GetData(ctx context.Context, id string) ([]byte, error)
}

type SyncLogRepository interface {
	Start(ctx context.Context, log *models.SyncLog) error
	Complete(ctx context.Context, log *models.SyncLog) error
	GetByID(ctx context.Context, id string) (*models.SyncLog, error)
	List(ctx context.Context, userID, labelID string, limit, offset int) ([]*models.SyncLog, int64, error)
}

type LabelSyncSettingRepository interface {
	Get(ctx context.Context, userID, labelID string) (*models.LabelSyncSetting, error)
	ListByUser(ctx context.Context, userID string) ([]*models.LabelSyncSetting, error)
	ListSyncing(ctx context.Context, userID string) ([]*models.LabelSyncSetting, error)
	ListUsersWithSyncingLabels(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, setting *models.LabelSyncSetting) error
	SetSyncing(ctx context.Context, userID, labelID string, isSyncing bool) error
	MarkSynced(ctx context.Context, userID, labelID string, at time.Time) error
}

type EmailCampaignRepository interface {
	GetByContactID(ctx context.Context, contactID string) (*models.EmailCampaign, error)
	// CreateIfAbsent inserts the campaign unless a live row for the contact
	// exists; it always returns the row that ends up stored.
	CreateIfAbsent(ctx context.Context, campaign *models.EmailCampaign) (*models.EmailCampaign, bool, error)
	Update(ctx context.Context, campaign *models.EmailCampaign) error
	ListByOwner(ctx context.Context, ownerID string) ([]*models.EmailCampaign, error)
	ListContactIDsWithCampaign(ctx context.Context, contactIDs []string) ([]string, error)
}

type MailAccountRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.MailAccount, error)
	Save(ctx context.Context, account *models.MailAccount) error
	UpdateTokens(ctx context.Context, userID, accessToken, refreshToken string, expiry *time.Time) error
}
